package vtype

// FDTaker is the minimal interface the oob[FDKey] value must satisfy for
// FromJSON: an index-addressable, take-once array of descriptors. fdset.Array
// satisfies this; vtype does not import fdset directly so the two packages
// stay decoupled (vtype is usable without ever touching the OS).
type FDTaker interface {
	Take(i int) (int, error)
}

// HasFileno is satisfied by any value that can report its own file
// descriptor number, mirroring the source's HasFileno protocol.
type HasFileno interface {
	Fileno() int
}

// FileDescriptor is the VarlinkType mapping a Go file descriptor (a raw int,
// or anything satisfying HasFileno) to its wire form: an index into the
// per-message out-of-band descriptor array.
var FileDescriptor Type = fileDescriptorType{}

type fileDescriptorType struct{}

func (fileDescriptorType) ToJSON(value any, oob OOB) (any, error) {
	var fd int
	switch v := value.(type) {
	case int:
		fd = v
	case int64:
		fd = int(v)
	case HasFileno:
		fd = v.Fileno()
	default:
		return nil, newConversionError("expected file descriptor, got %T", value)
	}
	raw, ok := oob[FDKey]
	if !ok {
		return nil, newConversionError("file descriptor conversion requires an oob fd list")
	}
	list, ok := raw.(*[]int)
	if !ok {
		return nil, newConversionError("oob[%q] must be a *[]int for ToJSON", FDKey)
	}
	index := len(*list)
	*list = append(*list, fd)
	return index, nil
}

func (fileDescriptorType) FromJSON(jsonValue any, oob OOB) (any, error) {
	n, ok := jsonValue.(float64)
	if !ok || n < 0 || n != float64(int(n)) {
		return nil, newConversionError("expected non-negative integer index, got %v", jsonValue)
	}
	raw, ok := oob[FDKey]
	if !ok {
		return nil, newConversionError("file descriptor conversion requires an oob fd array")
	}
	taker, ok := raw.(FDTaker)
	if !ok {
		return nil, newConversionError("oob[%q] must support Take(int) for FromJSON", FDKey)
	}
	fd, err := taker.Take(int(n))
	if err != nil {
		return nil, newConversionError("taking fd at index %d: %v", int(n), err)
	}
	return fd, nil
}

func (fileDescriptorType) AsVarlink() string { return "int" }
