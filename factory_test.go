package sosi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFactory(opener *memOpener) *Factory {
	return &Factory{
		Name:        "SOSI",
		Description: "Norwegian national standard geodata format",
		Extension:   ".sos",
		Opener:      opener.Open,
	}
}

func TestFactory_CanProcess(t *testing.T) {
	f := testFactory(newMemOpener())

	assert.True(t, f.CanProcess("0219Adresser.SOS"))
	assert.True(t, f.CanProcess("/data/1421_Arealdekke.sos"))
	assert.True(t, f.CanProcess("Vbase_02.Sos"))
	assert.False(t, f.CanProcess("roads.shp"))
	assert.False(t, f.CanProcess("sos"))
	assert.False(t, f.CanProcess(""))

	// Pure predicate: repeated calls agree.
	for i := 0; i < 3; i++ {
		assert.True(t, f.CanProcess("a.sos"))
	}
}

func TestFactory_Available(t *testing.T) {
	assert.True(t, testFactory(newMemOpener()).Available())
	assert.False(t, (&Factory{Name: "none"}).Available())
}

func TestFactory_CreateStore(t *testing.T) {
	opener := newMemOpener(addressRecords()...)
	f := testFactory(opener)

	s, err := f.CreateStore(Params{File: "/data/0219Adresser.sos"}, &Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, "0219Adresser", s.Name())

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = f.CreateStore(Params{}, nil)
	assert.Error(t, err)
	_, err = f.CreateStore(Params{File: "roads.shp"}, nil)
	assert.Error(t, err)
}

func TestFactory_CreateNewStoreIsUnsupported(t *testing.T) {
	_, err := testFactory(newMemOpener()).CreateNewStore(Params{File: "new.sos"})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.Equal(t, "SOSI", testFactory(newMemOpener()).DisplayName())
}
