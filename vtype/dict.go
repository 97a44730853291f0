package vtype

// MapType is the VarlinkType for varlink's `[string]T`: a JSON object / Go
// map[string]any used as a homogeneous string-keyed dictionary, as opposed
// to ObjectType's fixed, named field set.
type MapType struct {
	Elem Type
}

// NewMap builds a MapType over elem.
func NewMap(elem Type) *MapType {
	return &MapType{Elem: elem}
}

func (m *MapType) ToJSON(value any, oob OOB) (any, error) {
	dict, ok := value.(map[string]any)
	if !ok {
		return nil, newConversionError("expected map, got %T", value)
	}
	out := make(map[string]any, len(dict))
	for k, v := range dict {
		converted, err := m.Elem.ToJSON(v, oob)
		if err != nil {
			return nil, wrapContext(err, k)
		}
		out[k] = converted
	}
	return out, nil
}

func (m *MapType) FromJSON(jsonValue any, oob OOB) (any, error) {
	dict, ok := jsonValue.(map[string]any)
	if !ok {
		return nil, newConversionError("expected JSON object, got %T", jsonValue)
	}
	out := make(map[string]any, len(dict))
	for k, v := range dict {
		converted, err := m.Elem.FromJSON(v, oob)
		if err != nil {
			return nil, wrapContext(err, k)
		}
		out[k] = converted
	}
	return out, nil
}

func (m *MapType) AsVarlink() string {
	return "[string]" + m.Elem.AsVarlink()
}
