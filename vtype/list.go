package vtype

// ListType is the VarlinkType for a JSON array / Go slice of a uniform
// element type.
type ListType struct {
	Elem Type
}

// NewList builds a ListType over elem.
func NewList(elem Type) *ListType {
	return &ListType{Elem: elem}
}

func (l *ListType) ToJSON(value any, oob OOB) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, newConversionError("expected list, got %T", value)
	}
	out := make([]any, len(items))
	for i, item := range items {
		converted, err := l.Elem.ToJSON(item, oob)
		if err != nil {
			return nil, wrapContext(err, i)
		}
		out[i] = converted
	}
	return out, nil
}

func (l *ListType) FromJSON(jsonValue any, oob OOB) (any, error) {
	items, ok := jsonValue.([]any)
	if !ok {
		return nil, newConversionError("expected JSON array, got %T", jsonValue)
	}
	out := make([]any, len(items))
	for i, item := range items {
		converted, err := l.Elem.FromJSON(item, oob)
		if err != nil {
			return nil, wrapContext(err, i)
		}
		out[i] = converted
	}
	return out, nil
}

func (l *ListType) AsVarlink() string {
	return "[]" + l.Elem.AsVarlink()
}
