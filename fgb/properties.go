package fgb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// stringColumns declares one nullable string column per attribute name.
// SOSI values are untyped text so every column is a string column.
func stringColumns(names []string, builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(names))
	for _, name := range names {
		col := writer.NewColumn(builder)
		col.SetName(name)
		col.SetTitle(name) // the JS reader keys on title
		col.SetType(flattypes.ColumnTypeString)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

// encodeProperties writes attrs in column order as
// [u16 column index][u32 length][bytes]. Absent attributes are omitted,
// which FlatGeobuf readers treat as null.
func encodeProperties(attrs map[string]string, columns []string) []byte {
	if len(attrs) == 0 || len(columns) == 0 {
		return nil
	}

	var buf bytes.Buffer
	var scratch [4]byte
	for i, name := range columns {
		v, ok := attrs[name]
		if !ok {
			continue
		}
		binary.LittleEndian.PutUint16(scratch[:2], uint16(i))
		buf.Write(scratch[:2])
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(v)))
		buf.Write(scratch[:4])
		buf.WriteString(v)
	}
	return buf.Bytes()
}

// column is the subset of a header column needed to decode values.
type column struct {
	name string
	typ  flattypes.ColumnType
}

func headerColumns(h *flattypes.Header) []column {
	n := h.ColumnsLength()
	cols := make([]column, 0, n)
	for i := 0; i < n; i++ {
		var c flattypes.Column
		if h.Columns(&c, i) {
			cols = append(cols, column{name: string(c.Name()), typ: c.Type()})
		}
	}
	return cols
}

// decodeProperties decodes a property buffer into text attributes. Numeric
// and boolean values are formatted with strconv so every column type maps
// onto the string-valued records the store works with.
func decodeProperties(data []byte, cols []column) (map[string]string, error) {
	attrs := make(map[string]string)
	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated column index", ErrInvalidData)
		}
		idx := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if idx >= len(cols) {
			return nil, fmt.Errorf("%w: column index %d out of range", ErrInvalidData, idx)
		}

		value, n, err := readValue(data[offset:], cols[idx].typ)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cols[idx].name, err)
		}
		offset += n
		attrs[cols[idx].name] = value
	}
	return attrs, nil
}

// readValue reads one value of type t and returns its text form and the
// number of bytes consumed.
func readValue(data []byte, t flattypes.ColumnType) (string, int, error) {
	need := func(n int) error {
		if len(data) < n {
			return fmt.Errorf("%w: need %d bytes, have %d", ErrInvalidData, n, len(data))
		}
		return nil
	}

	switch t {
	case flattypes.ColumnTypeBool:
		if err := need(1); err != nil {
			return "", 0, err
		}
		return strconv.FormatBool(data[0] != 0), 1, nil
	case flattypes.ColumnTypeByte:
		if err := need(1); err != nil {
			return "", 0, err
		}
		return strconv.FormatInt(int64(int8(data[0])), 10), 1, nil
	case flattypes.ColumnTypeUByte:
		if err := need(1); err != nil {
			return "", 0, err
		}
		return strconv.FormatUint(uint64(data[0]), 10), 1, nil
	case flattypes.ColumnTypeShort:
		if err := need(2); err != nil {
			return "", 0, err
		}
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(data))), 10), 2, nil
	case flattypes.ColumnTypeUShort:
		if err := need(2); err != nil {
			return "", 0, err
		}
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint16(data)), 10), 2, nil
	case flattypes.ColumnTypeInt:
		if err := need(4); err != nil {
			return "", 0, err
		}
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(data))), 10), 4, nil
	case flattypes.ColumnTypeUInt:
		if err := need(4); err != nil {
			return "", 0, err
		}
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(data)), 10), 4, nil
	case flattypes.ColumnTypeLong:
		if err := need(8); err != nil {
			return "", 0, err
		}
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(data)), 10), 8, nil
	case flattypes.ColumnTypeULong:
		if err := need(8); err != nil {
			return "", 0, err
		}
		return strconv.FormatUint(binary.LittleEndian.Uint64(data), 10), 8, nil
	case flattypes.ColumnTypeFloat:
		if err := need(4); err != nil {
			return "", 0, err
		}
		f := math.Float32frombits(binary.LittleEndian.Uint32(data))
		return strconv.FormatFloat(float64(f), 'g', -1, 32), 4, nil
	case flattypes.ColumnTypeDouble:
		if err := need(8); err != nil {
			return "", 0, err
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(data))
		return strconv.FormatFloat(f, 'g', -1, 64), 8, nil
	case flattypes.ColumnTypeString, flattypes.ColumnTypeJson,
		flattypes.ColumnTypeDateTime, flattypes.ColumnTypeBinary:
		if err := need(4); err != nil {
			return "", 0, err
		}
		n := int(binary.LittleEndian.Uint32(data))
		if err := need(4 + n); err != nil {
			return "", 0, err
		}
		return string(data[4 : 4+n]), 4 + n, nil
	default:
		return "", 0, fmt.Errorf("%w: column type %d", ErrUnsupportedType, t)
	}
}
