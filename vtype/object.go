package vtype

import (
	"fmt"
	"sort"
	"strings"
)

// ObjectType is the VarlinkType for a fixed-shape record: a set of required
// fields and a set of optional fields, keyed by name. Required and optional
// key sets must be disjoint.
type ObjectType struct {
	Required map[string]Type
	Optional map[string]Type
}

// NewObject builds an ObjectType. It panics if a key appears in both
// required and optional, since the sets must be disjoint by construction.
func NewObject(required, optional map[string]Type) *ObjectType {
	for k := range optional {
		if _, dup := required[k]; dup {
			panic(fmt.Sprintf("vtype: object field %q is both required and optional", k))
		}
	}
	if required == nil {
		required = map[string]Type{}
	}
	if optional == nil {
		optional = map[string]Type{}
	}
	return &ObjectType{Required: required, Optional: optional}
}

func (o *ObjectType) fieldType(key string) (Type, bool) {
	if t, ok := o.Required[key]; ok {
		return t, true
	}
	if t, ok := o.Optional[key]; ok {
		return t, true
	}
	return nil, false
}

// ToJSON converts a Go record (map[string]any) into a JSON object. Required
// keys must be present; optional keys are included only when present and
// non-nil; unrecognized keys are rejected.
func (o *ObjectType) ToJSON(value any, oob OOB) (any, error) {
	record, ok := value.(map[string]any)
	if !ok {
		return nil, newConversionError("expected object, got %T", value)
	}
	for key := range record {
		if _, known := o.fieldType(key); !known {
			return nil, wrapContext(newConversionError("unknown field %q", key), key)
		}
	}
	out := map[string]any{}
	for key, t := range o.Required {
		v, present := record[key]
		if !present || v == nil {
			return nil, wrapContext(newConversionError("missing required field %q", key), key)
		}
		converted, err := t.ToJSON(v, oob)
		if err != nil {
			return nil, wrapContext(err, key)
		}
		out[key] = converted
	}
	for key, t := range o.Optional {
		v, present := record[key]
		if !present || v == nil {
			continue
		}
		converted, err := t.ToJSON(v, oob)
		if err != nil {
			return nil, wrapContext(err, key)
		}
		out[key] = converted
	}
	return out, nil
}

// FromJSON converts a decoded JSON object into a Go record
// (map[string]any). Required keys must be present; unknown keys are
// rejected.
func (o *ObjectType) FromJSON(jsonValue any, oob OOB) (any, error) {
	obj, ok := jsonValue.(map[string]any)
	if !ok {
		return nil, newConversionError("expected JSON object, got %T", jsonValue)
	}
	out := map[string]any{}
	for key, v := range obj {
		t, known := o.fieldType(key)
		if !known {
			return nil, wrapContext(newConversionError("unknown field %q", key), key)
		}
		converted, err := t.FromJSON(v, oob)
		if err != nil {
			return nil, wrapContext(err, key)
		}
		out[key] = converted
	}
	for key := range o.Required {
		if _, present := out[key]; !present {
			return nil, wrapContext(newConversionError("missing required field %q", key), key)
		}
	}
	return out, nil
}

func (o *ObjectType) AsVarlink() string {
	keys := make([]string, 0, len(o.Required)+len(o.Optional))
	for k := range o.Required {
		keys = append(keys, k)
	}
	for k := range o.Optional {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		t, _ := o.fieldType(k)
		prefix := ""
		if _, opt := o.Optional[k]; opt {
			prefix = "?"
		}
		parts = append(parts, fmt.Sprintf("%s: %s%s", k, prefix, t.AsVarlink()))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
