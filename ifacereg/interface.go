// Package ifacereg implements the interface-signature layer: an explicit
// registration step that binds a user method to its wire schema (parameter
// and return object types, and whether it replies once or streams), in
// place of the decorator/reflection-based registration the design is
// ported from.
package ifacereg

import (
	"context"
	"fmt"
	"strings"

	"github.com/ianremillard/govarlink/vtype"
)

// Kind distinguishes the two dispatch shapes a method can have. Go's
// goroutine model collapses the source's four shapes (sync/cooperative ×
// single/streaming) to these two: a single-reply call runs its Func to
// completion and sends one reply; a streaming call's StreamFunc is invoked
// once and produces a channel of replies, the last of which closes the
// stream.
type Kind int

const (
	// Single methods take parameters and produce exactly one reply.
	Single Kind = iota
	// Streaming methods take parameters and produce a channel of replies,
	// the final one implicitly closing the stream.
	Streaming
)

// StreamItem is one reply produced by a streaming method. Final is set on
// the last item the method will ever send; once sent, the stream channel
// must be closed (or simply abandoned — the server treats channel closure
// the same as an item with Final set and no error).
type StreamItem struct {
	Parameters map[string]any
	Err        error
	Final      bool
}

// Func is the shape of a single-reply method implementation.
type Func func(ctx context.Context, params map[string]any) (map[string]any, error)

// StreamFunc is the shape of a streaming method implementation.
type StreamFunc func(ctx context.Context, params map[string]any) (<-chan StreamItem, error)

// Method is the descriptor/record the design notes call for: a method name,
// its wire schema, and a type-erased call thunk, assembled explicitly at
// registration time rather than discovered via reflection.
type Method struct {
	Name   string
	Params *vtype.ObjectType
	Return *vtype.ObjectType
	Kind   Kind

	Call       Func       // set when Kind == Single
	CallStream StreamFunc // set when Kind == Streaming
}

func (m *Method) asVarlink() string {
	ret := "()"
	if m.Return != nil {
		ret = m.Return.AsVarlink()
	}
	params := "()"
	if m.Params != nil {
		params = m.Params.AsVarlink()
	}
	return fmt.Sprintf("method %s%s -> %s", m.Name, params, ret)
}

// Interface is a named collection of methods, registered explicitly rather
// than discovered via struct tags or reflection over a receiver type.
type Interface struct {
	Name string

	methods map[string]*Method
	order   []string
}

// NewInterface builds an empty interface under the given dotted name.
func NewInterface(name string) *Interface {
	return &Interface{Name: name, methods: map[string]*Method{}}
}

// Register adds a method. Registration order is preserved for
// RenderDescription, matching the source's "iterate tagged methods in
// declaration order".
func (i *Interface) Register(m *Method) {
	if _, dup := i.methods[m.Name]; !dup {
		i.order = append(i.order, m.Name)
	}
	i.methods[m.Name] = m
}

// Method looks up a registered method by name.
func (i *Interface) Method(name string) (*Method, bool) {
	m, ok := i.methods[name]
	return m, ok
}

// RenderDescription renders the varlink interface-description text for this
// interface: its name followed by one `method` line per registered method
// in declaration order.
func (i *Interface) RenderDescription() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface %s\n\n", i.Name)
	for _, name := range i.order {
		b.WriteString(i.methods[name].asVarlink())
		b.WriteString("\n")
	}
	return b.String()
}
