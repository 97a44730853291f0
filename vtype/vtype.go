// Package vtype implements the varlink type converter: a small tagged-variant
// type system that maps between Go values and the JSON wire representation
// of varlink parameters and return values, threading an out-of-band channel
// through the conversion to carry file descriptors alongside JSON.
package vtype

import "fmt"

// Type is a single node in a varlink type tree. Implementations are the
// tagged variants named in the data model: Bool, Int, Float, String, Enum,
// Optional, List, Map, Object, FileDescriptor, Foreign.
type Type interface {
	// ToJSON converts a Go value into its JSON-able representation,
	// recording any file descriptors it contains into oob.
	ToJSON(value any, oob OOB) (any, error)
	// FromJSON converts a decoded JSON value back into a Go value,
	// consuming file descriptors out of oob where applicable.
	FromJSON(jsonValue any, oob OOB) (any, error)
	// AsVarlink renders the type using varlink interface-description syntax.
	AsVarlink() string
}

// OOB is the out-of-band channel threaded through conversion: a small
// dictionary keyed by converter concern (currently just file descriptors)
// rather than a process-global, per the design notes. It is a plain mutable
// map passed down through recursive ToJSON/FromJSON calls.
type OOB map[string]any

// FDKey is the OOB key used by FileDescriptorType. For ToJSON, OOB[FDKey]
// must be a *[]int that descriptors are appended to. For FromJSON, OOB[FDKey]
// must satisfy FDTaker, typically a *fdset.Array (imported by callers; vtype
// itself stays decoupled from fdset's concrete type, see filedescriptor.go),
// that descriptors are taken from by index.
const FDKey = "fd"

// ConversionError reports a failed conversion, accumulating a location path
// (a mix of string object keys and int list/array indices) as it unwinds
// through nested ToJSON/FromJSON calls, mirroring the originating
// implementation's location-stack behavior.
type ConversionError struct {
	Path []any
	Msg  string
}

func (e *ConversionError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("vtype: %s", e.Msg)
	}
	return fmt.Sprintf("vtype: at %v: %s", e.Path, e.Msg)
}

// WithContext returns a new ConversionError with ctx prepended to the path.
func (e *ConversionError) WithContext(ctx any) *ConversionError {
	path := make([]any, 0, len(e.Path)+1)
	path = append(path, ctx)
	path = append(path, e.Path...)
	return &ConversionError{Path: path, Msg: e.Msg}
}

func newConversionError(format string, args ...any) *ConversionError {
	return &ConversionError{Msg: fmt.Sprintf(format, args...)}
}

// wrapContext attaches ctx (a key or index) to err's location path if err is
// a *ConversionError, otherwise wraps err as a fresh one.
func wrapContext(err error, ctx any) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*ConversionError); ok {
		return ce.WithContext(ctx)
	}
	return (&ConversionError{Msg: err.Error()}).WithContext(ctx)
}
