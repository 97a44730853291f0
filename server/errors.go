package server

import "fmt"

// ErrorReply is returned by user method implementations to produce a
// varlink error reply. It corresponds to the source's VarlinkErrorReply:
// any error a handler returns that is *not* an *ErrorReply is treated as an
// internal failure and reported as org.varlink.service.InternalError rather
// than leaking Go error text across the wire.
type ErrorReply struct {
	Name       string
	Parameters map[string]any
}

func (e *ErrorReply) Error() string {
	return fmt.Sprintf("varlink error reply %s", e.Name)
}

const serviceInterface = "org.varlink.service"

// NewErrorReply builds an ErrorReply scoped to a user-defined interface.
func NewErrorReply(interfaceName, name string, parameters map[string]any) *ErrorReply {
	return &ErrorReply{Name: interfaceName + "." + name, Parameters: parameters}
}

// InterfaceNotFound is returned when a call names an interface the registry
// has no object for.
func InterfaceNotFound(iface string) *ErrorReply {
	return &ErrorReply{
		Name:       serviceInterface + ".InterfaceNotFound",
		Parameters: map[string]any{"interface": iface},
	}
}

// MethodNotFound is returned when a call names a method its interface does
// not register.
func MethodNotFound(method string) *ErrorReply {
	return &ErrorReply{
		Name:       serviceInterface + ".MethodNotFound",
		Parameters: map[string]any{"method": method},
	}
}

// InvalidParameter is returned when parameter conversion fails.
func InvalidParameter(parameter string) *ErrorReply {
	return &ErrorReply{
		Name:       serviceInterface + ".InvalidParameter",
		Parameters: map[string]any{"parameter": parameter},
	}
}

// ExpectedMore is returned when a client calls a streaming method without
// setting more=true.
func ExpectedMore() *ErrorReply {
	return &ErrorReply{Name: serviceInterface + ".ExpectedMore"}
}

// ProtocolViolation is returned when an inbound frame cannot be parsed as a
// valid method-call object.
func ProtocolViolation() *ErrorReply {
	return &ErrorReply{Name: serviceInterface + ".ProtocolViolation"}
}

// InternalError wraps an unexpected (non-ErrorReply) failure from a user
// method so that arbitrary Go error text never crosses the wire unscoped.
func InternalError() *ErrorReply {
	return &ErrorReply{Name: serviceInterface + ".InternalError"}
}
