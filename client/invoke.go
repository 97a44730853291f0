package client

import (
	"context"

	"github.com/ianremillard/govarlink/fdset"
	"github.com/ianremillard/govarlink/ifacereg"
	"github.com/ianremillard/govarlink/vtype"
	"github.com/ianremillard/govarlink/wire"
)

// Invoke performs one schema-driven single-reply call: it converts args
// through method.Params, issues the call, and converts the reply back
// through method.Return. This is the explicit, non-reflective stand-in for
// the source's VarlinkInterfaceProxy.__getattr__ dynamic proxy — callers
// name the interface and method explicitly instead of the runtime
// synthesizing a bound method from class introspection.
func Invoke(ctx context.Context, p *Protocol, iface string, method *ifacereg.Method, args map[string]any) (map[string]any, *fdsOut, error) {
	var outFDs []int
	oob := vtype.OOB{vtype.FDKey: &outFDs}
	var params map[string]any
	if method.Params != nil {
		converted, err := method.Params.ToJSON(args, oob)
		if err != nil {
			return nil, nil, err
		}
		params, _ = converted.(map[string]any)
	}

	call := &wire.MethodCall{Method: iface + "." + method.Name, Parameters: params}
	reply, err := p.Call(ctx, call, outFDs, method.Return != nil && hasFileDescriptor(method.Return))
	if err != nil {
		return nil, nil, err
	}
	if reply.IsError() {
		return nil, nil, &ErrorReply{Name: reply.Error, Parameters: reply.Parameters}
	}

	result := map[string]any{}
	if method.Return != nil {
		inOOB := vtype.OOB{}
		if reply.FDs != nil {
			inOOB[vtype.FDKey] = reply.FDs
		}
		converted, err := method.Return.FromJSON(reply.Parameters, inOOB)
		if err != nil {
			return nil, nil, err
		}
		result, _ = converted.(map[string]any)
	}
	// Any FileDescriptor-typed field in method.Return has already had its fd
	// Taken out of reply.FDs above, and the raw descriptor lives in result
	// under that field's name as an int — wrap it with os.NewFile, don't
	// Take it again. fdsOut exposes reply.FDs only for whatever the schema
	// did not claim (e.g. no FileDescriptor field, or extra trailing fds).
	return result, &fdsOut{arr: reply.FDs}, nil
}

// fdsOut lets a caller extend the lifetime of, or take ownership out of, any
// descriptors returned alongside a reply that method.Return's conversion did
// not already consume.
type fdsOut struct {
	arr *fdset.Array
}

// KeepUntil extends the FD array's lifetime until done fires.
func (f *fdsOut) KeepUntil(done <-chan struct{}) {
	if f == nil || f.arr == nil {
		return
	}
	f.arr.ReferenceUntilDone(done)
}

// Array returns the underlying descriptor array and whether one was present
// (when method.Return has no top-level FileDescriptor field, the reply's fds
// are closed on receipt and there is no array to take from; otherwise the
// array is present, possibly empty).
func (f *fdsOut) Array() (*fdset.Array, bool) {
	if f == nil || f.arr == nil {
		return nil, false
	}
	return f.arr, true
}

// ErrorReply is the client-side counterpart of server.ErrorReply: the
// reply-carried error surfaced from a call, with the same Name/Parameters
// shape so callers can type-assert regardless of which side produced it.
type ErrorReply struct {
	Name       string
	Parameters map[string]any
}

func (e *ErrorReply) Error() string { return "varlink error reply " + e.Name }

func hasFileDescriptor(t *vtype.ObjectType) bool {
	for _, f := range t.Required {
		if f == vtype.FileDescriptor {
			return true
		}
	}
	for _, f := range t.Optional {
		if f == vtype.FileDescriptor {
			return true
		}
	}
	return false
}
