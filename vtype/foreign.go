package vtype

// Foreign is the VarlinkType that performs no validation at all: whatever
// JSON value arrives is passed through unchanged, and whatever Go value is
// given is passed through as-is. Useful for parameters whose shape the
// server deliberately does not want to constrain.
var Foreign Type = foreignType{}

type foreignType struct{}

func (foreignType) ToJSON(value any, _ OOB) (any, error) { return value, nil }

func (foreignType) FromJSON(jsonValue any, _ OOB) (any, error) { return jsonValue, nil }

func (foreignType) AsVarlink() string { return "object" }
