package vtype

import (
	"fmt"
	"strings"
)

// EnumType is the VarlinkType for a closed set of string member names.
type EnumType struct {
	Members []string
}

// NewEnum builds an EnumType over the given member names.
func NewEnum(members ...string) *EnumType {
	return &EnumType{Members: members}
}

func (e *EnumType) has(name string) bool {
	for _, m := range e.Members {
		if m == name {
			return true
		}
	}
	return false
}

func (e *EnumType) ToJSON(value any, _ OOB) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, newConversionError("expected enum string, got %T", value)
	}
	if !e.has(s) {
		return nil, newConversionError("unknown enum member %q", s)
	}
	return s, nil
}

func (e *EnumType) FromJSON(jsonValue any, _ OOB) (any, error) {
	s, ok := jsonValue.(string)
	if !ok {
		return nil, newConversionError("expected JSON string for enum, got %T", jsonValue)
	}
	if !e.has(s) {
		return nil, newConversionError("unknown enum member %q", s)
	}
	return s, nil
}

func (e *EnumType) AsVarlink() string {
	return fmt.Sprintf("(%s)", strings.Join(e.Members, ", "))
}
