package sosi

import (
	"errors"
	"strings"
)

// Params holds the connection parameters for creating a store.
type Params struct {
	File string // Path to the data file
}

// Factory creates stores for one file format. Format packages provide
// ready-made factories.
type Factory struct {
	Name        string // Display name, e.g. "SOSI"
	Description string // Human readable description
	Extension   string // File extension including the dot, e.g. ".sos"
	Opener      Opener // Opens record sources for the format
}

// DisplayName returns the format's display name.
func (f *Factory) DisplayName() string { return f.Name }

// Available reports whether the factory can create stores.
func (f *Factory) Available() bool { return f.Opener != nil }

// CanProcess reports whether path has the factory's extension, ignoring case.
func (f *Factory) CanProcess(path string) bool {
	if path == "" || f.Extension == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(path), strings.ToLower(f.Extension))
}

// CreateStore opens a store for p.File. The Opener in opts, if any, is
// replaced by the factory's.
func (f *Factory) CreateStore(p Params, opts *Options) (*Store, error) {
	if p.File == "" {
		return nil, errors.New("sosi: missing file parameter")
	}
	if !f.CanProcess(p.File) {
		return nil, errors.New("sosi: " + f.Name + " cannot process " + p.File)
	}

	o := DefaultOptions()
	if opts != nil {
		*o = *opts
	}
	o.Opener = f.Opener

	return NewStore(p.File, o)
}

// CreateNewStore is not supported: stores are read only.
func (f *Factory) CreateNewStore(Params) (*Store, error) {
	return nil, ErrUnsupportedOperation
}
