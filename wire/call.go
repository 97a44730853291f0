package wire

import "fmt"

// MethodCall is the parsed, validated form of a varlink method call frame.
type MethodCall struct {
	Method     string
	Parameters map[string]any
	Oneway     bool
	More       bool
	Upgrade    bool
	// Extensions carries any top-level keys present on the wire besides the
	// ones this type knows about, preserved round-trip.
	Extensions map[string]any
}

// MethodInterface returns the interface portion of Method ("iface" in
// "iface.Name").
func (c *MethodCall) MethodInterface() (string, error) {
	iface, _, err := splitQualifiedName("method", c.Method)
	return iface, err
}

// MethodName returns the tail portion of Method.
func (c *MethodCall) MethodName() (string, error) {
	_, name, err := splitQualifiedName("method", c.Method)
	return name, err
}

// CallFromJSON parses and validates a decoded method-call object.
func CallFromJSON(obj map[string]any) (*MethodCall, error) {
	method, ok := obj["method"]
	if !ok {
		return nil, fmt.Errorf("wire: method call missing %q", "method")
	}
	methodStr, ok := method.(string)
	if !ok {
		return nil, fmt.Errorf("wire: method call field %q must be a string", "method")
	}
	if _, _, err := splitQualifiedName("method", methodStr); err != nil {
		return nil, err
	}

	params := map[string]any{}
	if raw, ok := obj["parameters"]; ok {
		p, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("wire: method call field %q must be an object", "parameters")
		}
		params = p
	}

	oneway, err := optionalBool(obj, "oneway")
	if err != nil {
		return nil, err
	}
	more, err := optionalBool(obj, "more")
	if err != nil {
		return nil, err
	}
	upgrade, err := optionalBool(obj, "upgrade")
	if err != nil {
		return nil, err
	}
	if boolCount(oneway, more, upgrade) > 1 {
		return nil, fmt.Errorf("wire: at most one of oneway, more, upgrade may be set")
	}

	ext := map[string]any{}
	for k, v := range obj {
		switch k {
		case "method", "parameters", "oneway", "more", "upgrade":
		default:
			ext[k] = v
		}
	}

	return &MethodCall{
		Method:     methodStr,
		Parameters: params,
		Oneway:     oneway,
		More:       more,
		Upgrade:    upgrade,
		Extensions: ext,
	}, nil
}

// ToJSON renders the call back into a plain JSON-able object, writing only
// set booleans and non-empty parameters, and re-merging Extensions.
func (c *MethodCall) ToJSON() map[string]any {
	obj := map[string]any{"method": c.Method}
	if len(c.Parameters) > 0 {
		obj["parameters"] = c.Parameters
	}
	if c.Oneway {
		obj["oneway"] = true
	}
	if c.More {
		obj["more"] = true
	}
	if c.Upgrade {
		obj["upgrade"] = true
	}
	for k, v := range c.Extensions {
		obj[k] = v
	}
	return obj
}

func optionalBool(obj map[string]any, key string) (bool, error) {
	raw, ok := obj[key]
	if !ok {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("wire: field %q must be a boolean", key)
	}
	return b, nil
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
