// Package server implements the server side of the varlink core: a
// request dispatcher sitting on protocol.Base that looks up the target
// method in a Registry, converts parameters and return values through
// vtype, and serialises single or streamed replies.
package server

import (
	"context"
	"log"

	"github.com/ianremillard/govarlink/fdset"
	"github.com/ianremillard/govarlink/ifacereg"
	"github.com/ianremillard/govarlink/protocol"
	"github.com/ianremillard/govarlink/transport"
	"github.com/ianremillard/govarlink/vtype"
	"github.com/ianremillard/govarlink/wire"
)

// Protocol is the server-side protocol.Handler: it dispatches each parsed
// method call to the registry and writes back the reply or reply stream.
type Protocol struct {
	base     *protocol.Base
	registry *Registry
	ctx      context.Context
}

// NewProtocol builds a server Protocol dispatching against registry. ctx is
// used as the base context for every method invocation (cancelled, for
// example, when the owning connection's goroutine tears down).
func NewProtocol(ctx context.Context, registry *Registry) *Protocol {
	p := &Protocol{registry: registry, ctx: ctx}
	p.base = protocol.NewBase(p)
	return p
}

// Serve attaches t as the transport driving this protocol. Must be called
// once, immediately after constructing t over an accepted connection.
func (p *Protocol) Serve(t *transport.Transport) {
	p.base.Attach(t)
}

// Receiver returns the protocol.Base backing this Protocol. Callers outside
// this package need it to satisfy transport.NewUnix/NewPipe's Receiver
// parameter before a Transport exists to pass to Serve.
func (p *Protocol) Receiver() *protocol.Base { return p.base }

// RequestReceived implements protocol.Handler.
func (p *Protocol) RequestReceived(obj map[string]any, fds *fdset.Array) <-chan struct{} {
	if obj == nil {
		p.sendError(ProtocolViolation(), false, nil)
		fds.CloseAll()
		return nil
	}
	call, err := wire.CallFromJSON(obj)
	if err != nil {
		p.sendError(ProtocolViolation(), false, nil)
		fds.CloseAll()
		return nil
	}

	_, method, lookupErr := p.registry.Lookup(call)
	if lookupErr != nil {
		p.sendError(lookupErr.(*ErrorReply), call.Oneway, nil)
		fds.CloseAll()
		return nil
	}

	oob := vtype.OOB{vtype.FDKey: fds}
	params := map[string]any{}
	if method.Params != nil {
		converted, cerr := method.Params.FromJSON(call.Parameters, oob)
		if cerr != nil {
			fds.CloseAll()
			p.sendError(InvalidParameter(parameterFromError(cerr)), call.Oneway, nil)
			return nil
		}
		params, _ = converted.(map[string]any)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer fds.CloseAll()
		// Exception policy (spec §4.C): a panicking handler is logged and
		// treated as complete, not allowed to take the whole process down.
		defer func() {
			if r := recover(); r != nil {
				log.Printf("server: handler panic in %s: %v", call.Method, r)
				p.sendError(InternalError(), call.Oneway, nil)
			}
		}()
		p.dispatch(call, method, params)
	}()
	return done
}

func parameterFromError(err error) string {
	if ce, ok := err.(*vtype.ConversionError); ok && len(ce.Path) > 0 {
		if s, ok := ce.Path[0].(string); ok {
			return s
		}
	}
	return ""
}

func (p *Protocol) dispatch(call *wire.MethodCall, method *ifacereg.Method, params map[string]any) {
	switch method.Kind {
	case ifacereg.Streaming:
		p.dispatchStreaming(call, method, params)
	default:
		p.dispatchSingle(call, method, params)
	}
}

func (p *Protocol) dispatchSingle(call *wire.MethodCall, method *ifacereg.Method, params map[string]any) {
	result, err := method.Call(p.ctx, params)
	if err != nil {
		p.sendError(asErrorReply(err), call.Oneway, nil)
		return
	}
	p.sendResult(call.Oneway, method, result, false)
}

func (p *Protocol) dispatchStreaming(call *wire.MethodCall, method *ifacereg.Method, params map[string]any) {
	stream, err := method.CallStream(p.ctx, params)
	if err != nil {
		p.sendError(asErrorReply(err), call.Oneway, nil)
		return
	}
	final := false
	for item := range stream {
		if item.Err != nil {
			p.sendError(asErrorReply(item.Err), call.Oneway, nil)
			return
		}
		p.sendResult(call.Oneway, method, item.Parameters, !item.Final)
		final = item.Final
	}
	if !final && !call.Oneway {
		// Channel closed without a Final item: end the stream with an empty,
		// non-continuing reply.
		p.send(&wire.MethodReply{Parameters: map[string]any{}}, nil)
	}
}

func asErrorReply(err error) *ErrorReply {
	if er, ok := err.(*ErrorReply); ok {
		return er
	}
	log.Printf("server: internal error from method: %v", err)
	return InternalError()
}

func (p *Protocol) sendResult(oneway bool, method *ifacereg.Method, result map[string]any, continues bool) {
	if oneway {
		return
	}
	var outFDs []int
	var paramsJSON any = map[string]any{}
	if method.Return != nil {
		oob := vtype.OOB{vtype.FDKey: &outFDs}
		converted, err := method.Return.ToJSON(result, oob)
		if err != nil {
			log.Printf("server: converting return value: %v", err)
			p.sendError(InternalError(), false, nil)
			return
		}
		paramsJSON = converted
	}
	reply := &wire.MethodReply{Parameters: paramsJSON.(map[string]any), Continues: continues}
	p.send(reply, outFDs)
}

func (p *Protocol) sendError(er *ErrorReply, oneway bool, outFDs []int) {
	if oneway {
		return
	}
	reply := &wire.MethodReply{Parameters: er.Parameters, Error: er.Name}
	p.send(reply, outFDs)
}

func (p *Protocol) send(reply *wire.MethodReply, outFDs []int) {
	data, err := wire.EncodeFrame(reply.ToJSON())
	if err != nil {
		log.Printf("server: encoding reply: %v", err)
		return
	}
	p.base.Transport().SendMessage(data, outFDs)
}

// ErrorReceived implements protocol.Handler for frames that failed to parse
// as JSON at all.
func (p *Protocol) ErrorReceived(err error, data []byte, fds *fdset.Array) {
	log.Printf("server: malformed frame: %v", err)
	p.sendError(ProtocolViolation(), false, nil)
	fds.CloseAll()
}

// EOFReceived implements protocol.Handler.
func (p *Protocol) EOFReceived() {}
