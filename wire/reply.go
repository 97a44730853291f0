package wire

import "fmt"

// MethodReply is the parsed, validated form of a varlink method reply frame.
type MethodReply struct {
	Parameters map[string]any
	Continues  bool
	Error      string // empty when the reply is not an error
	Extensions map[string]any
}

// IsError reports whether this reply carries an error name.
func (r *MethodReply) IsError() bool {
	return r.Error != ""
}

// ErrorInterface returns the interface portion of Error.
func (r *MethodReply) ErrorInterface() (string, error) {
	iface, _, err := splitQualifiedName("error", r.Error)
	return iface, err
}

// ErrorName returns the tail portion of Error.
func (r *MethodReply) ErrorName() (string, error) {
	_, name, err := splitQualifiedName("error", r.Error)
	return name, err
}

// ReplyFromJSON parses and validates a decoded method-reply object.
func ReplyFromJSON(obj map[string]any) (*MethodReply, error) {
	params := map[string]any{}
	if raw, ok := obj["parameters"]; ok {
		p, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("wire: method reply field %q must be an object", "parameters")
		}
		params = p
	}

	continues, err := optionalBool(obj, "continues")
	if err != nil {
		return nil, err
	}

	errName := ""
	if raw, ok := obj["error"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("wire: method reply field %q must be a string", "error")
		}
		if _, _, verr := splitQualifiedName("error", s); verr != nil {
			return nil, verr
		}
		errName = s
	}

	ext := map[string]any{}
	for k, v := range obj {
		switch k {
		case "parameters", "continues", "error":
		default:
			ext[k] = v
		}
	}

	return &MethodReply{
		Parameters: params,
		Continues:  continues,
		Error:      errName,
		Extensions: ext,
	}, nil
}

// ToJSON renders the reply back into a plain JSON-able object.
func (r *MethodReply) ToJSON() map[string]any {
	obj := map[string]any{}
	if len(r.Parameters) > 0 {
		obj["parameters"] = r.Parameters
	}
	if r.Continues {
		obj["continues"] = true
	}
	if r.Error != "" {
		obj["error"] = r.Error
	}
	for k, v := range r.Extensions {
		obj[k] = v
	}
	return obj
}
