package sosifile

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ND7 (also declared as DECN7) is the Norwegian 7-bit variant of ASCII.
var nd7 = strings.NewReplacer(
	"[", "Æ", `\`, "Ø", "]", "Å",
	"{", "æ", "|", "ø", "}", "å",
)

// detectCharset returns the value of ..TEGNSETT, or "" when the header has none.
// The keyword itself is ASCII in every supported encoding.
func detectCharset(data []byte) string {
	i := bytes.Index(data, []byte("..TEGNSETT"))
	if i < 0 {
		return ""
	}

	rest := data[i+len("..TEGNSETT"):]
	if j := bytes.IndexAny(rest, "\r\n!"); j >= 0 {
		rest = rest[:j]
	}
	return strings.ToUpper(strings.TrimSpace(string(rest)))
}

// decode converts data from charset to UTF-8. Without a declared charset the
// data is taken as UTF-8 when valid and ISO 8859-10 otherwise.
func decode(data []byte, charset string) (string, error) {
	var enc encoding.Encoding

	switch charset {
	case "UTF-8", "UTF8":
		return string(data), nil
	case "":
		if utf8.Valid(data) {
			return string(data), nil
		}
		enc = charmap.ISO8859_10
	case "ISO8859-1", "ISO-8859-1":
		enc = charmap.ISO8859_1
	case "ISO8859-10", "ISO-8859-10":
		enc = charmap.ISO8859_10
	case "ANSI", "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	case "DOSN8":
		enc = charmap.CodePage865
	case "ND7", "DECN7":
		return nd7.Replace(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCharset, charset)
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", charset, err)
	}
	return string(out), nil
}
