package vtype

// Bool is the VarlinkType for a JSON boolean / Go bool.
var Bool Type = boolType{}

type boolType struct{}

func (boolType) ToJSON(value any, _ OOB) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, newConversionError("expected bool, got %T", value)
	}
	return b, nil
}

func (boolType) FromJSON(jsonValue any, _ OOB) (any, error) {
	b, ok := jsonValue.(bool)
	if !ok {
		return nil, newConversionError("expected JSON bool, got %T", jsonValue)
	}
	return b, nil
}

func (boolType) AsVarlink() string { return "bool" }

// Int is the VarlinkType for a JSON number / Go int64, restricted to
// integral values.
var Int Type = intType{}

type intType struct{}

func (intType) ToJSON(value any, _ OOB) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return v, nil
	default:
		return nil, newConversionError("expected int, got %T", value)
	}
}

func (intType) FromJSON(jsonValue any, _ OOB) (any, error) {
	switch v := jsonValue.(type) {
	case float64:
		if v != float64(int64(v)) {
			return nil, newConversionError("expected integral JSON number, got %v", v)
		}
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return nil, newConversionError("expected JSON number, got %T", jsonValue)
	}
}

func (intType) AsVarlink() string { return "int" }

// Float is the VarlinkType for a JSON number / Go float64; it accepts
// integers interchangeably on both directions.
var Float Type = floatType{}

type floatType struct{}

func (floatType) ToJSON(value any, _ OOB) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return nil, newConversionError("expected float, got %T", value)
	}
}

func (floatType) FromJSON(jsonValue any, _ OOB) (any, error) {
	switch v := jsonValue.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	default:
		return nil, newConversionError("expected JSON number, got %T", jsonValue)
	}
}

func (floatType) AsVarlink() string { return "float" }

// String is the VarlinkType for a JSON string / Go string.
var String Type = stringType{}

type stringType struct{}

func (stringType) ToJSON(value any, _ OOB) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, newConversionError("expected string, got %T", value)
	}
	return s, nil
}

func (stringType) FromJSON(jsonValue any, _ OOB) (any, error) {
	s, ok := jsonValue.(string)
	if !ok {
		return nil, newConversionError("expected JSON string, got %T", jsonValue)
	}
	return s, nil
}

func (stringType) AsVarlink() string { return "string" }
