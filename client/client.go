// Package client implements the client side of the varlink core: issuing
// calls over a protocol.Base, matching replies back to the call that
// produced them in FIFO order, and exposing both single-reply and streaming
// call shapes.
package client

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"github.com/ianremillard/govarlink/fdset"
	"github.com/ianremillard/govarlink/protocol"
	"github.com/ianremillard/govarlink/transport"
	"github.com/ianremillard/govarlink/wire"
)

// Reply bundles a parsed method reply with whatever file descriptors
// accompanied it.
type Reply struct {
	*wire.MethodReply
	FDs *fdset.Array
}

// KeepFDsUntil extends r.FDs' practical lifetime until done fires,
// mirroring clientprotocol.py's reference_until_done: a caller that must
// keep using descriptors after returning from the call that produced them
// registers its own completion signal here.
func (r *Reply) KeepFDsUntil(done <-chan struct{}) {
	if r.FDs != nil {
		r.FDs.ReferenceUntilDone(done)
	}
}

// ErrConnectionClosed is delivered to every pending call when the
// connection is torn down before a reply arrives.
var ErrConnectionClosed = errors.New("client: connection closed")

type pendingSingle struct {
	wantFDs bool
	result  chan callResult
	done    bool
}

type callResult struct {
	reply *Reply
	err   error
}

// pendingEntry is either a *pendingSingle (single-reply call) or a
// *pendingStream (streaming call); Protocol's FIFO holds whichever was
// created for each outstanding call, in send order.
type pendingEntry interface {
	deliver(reply *Reply, err error)
	fail(err error)
	wantsFDs() bool
}

func (p *pendingSingle) deliver(reply *Reply, err error) {
	if p.done {
		return
	}
	p.done = true
	p.result <- callResult{reply: reply, err: err}
	close(p.result)
}

func (p *pendingSingle) fail(err error) { p.deliver(nil, err) }

func (p *pendingSingle) wantsFDs() bool { return p.wantFDs }

type pendingStream struct {
	items chan callResult
	done  bool
}

// wantsFDs is always true for a streaming call: there is no want_fds flag on
// CallMore (spec §4.G), each yielded reply's fd array is handed to the
// consumer, who is responsible for it.
func (p *pendingStream) wantsFDs() bool { return true }

func (p *pendingStream) deliver(reply *Reply, err error) {
	if p.done {
		return
	}
	if err != nil || !reply.Continues {
		p.done = true
	}
	p.items <- callResult{reply: reply, err: err}
	if p.done {
		close(p.items)
	}
}

func (p *pendingStream) fail(err error) {
	if p.done {
		return
	}
	p.done = true
	p.items <- callResult{err: err}
	close(p.items)
}

// Protocol is the client-side protocol.Handler. Calls issued through it are
// matched to replies in FIFO order.
type Protocol struct {
	base *protocol.Base

	mu      sync.Mutex
	pending *list.List // of pendingEntry
	closed  bool
}

// NewProtocol builds a client Protocol.
func NewProtocol() *Protocol {
	p := &Protocol{pending: list.New()}
	p.base = protocol.NewBase(p)
	return p
}

// Connect attaches t as the transport driving this protocol.
func (p *Protocol) Connect(t *transport.Transport) {
	p.base.Attach(t)
}

// Receiver returns the protocol.Base backing this Protocol. Callers outside
// this package need it to satisfy transport.NewUnix/NewPipe's Receiver
// parameter before a Transport exists to pass to Connect.
func (p *Protocol) Receiver() *protocol.Base { return p.base }

// Call issues a single-reply call. If call.Oneway is set, it sends the
// frame and returns (nil, nil) immediately, matching the source's
// short-circuit. Otherwise it blocks until the reply arrives, ctx is
// cancelled, or the connection closes. If wantFDs is false, any fds
// received with the reply are closed immediately instead of being returned.
func (p *Protocol) Call(ctx context.Context, call *wire.MethodCall, fds []int, wantFDs bool) (*Reply, error) {
	if call.More {
		return nil, errors.New("client: call.More calls must use CallMore")
	}
	data, err := wire.EncodeFrame(call.ToJSON())
	if err != nil {
		return nil, err
	}
	if call.Oneway {
		p.base.Transport().SendMessage(data, fds)
		return nil, nil
	}

	pending := &pendingSingle{wantFDs: wantFDs, result: make(chan callResult, 1)}
	p.enqueue(pending)
	p.base.Transport().SendMessage(data, fds)

	select {
	case res := <-pending.result:
		return res.reply, res.err
	case <-ctx.Done():
		// The slot stays queued so later replies still match their calls;
		// the late reply fills it and is discarded.
		go func() {
			if res := <-pending.result; res.reply != nil {
				res.reply.FDs.CloseAll()
			}
		}()
		return nil, ctx.Err()
	}
}

// CallMore issues a streaming call. call.More must be set. It returns a
// channel of replies; the channel closes once a non-continuing reply (or an
// error) has been delivered, or the connection closes.
func (p *Protocol) CallMore(ctx context.Context, call *wire.MethodCall, fds []int) (<-chan *Reply, error) {
	if !call.More {
		return nil, errors.New("client: CallMore requires call.More")
	}
	data, err := wire.EncodeFrame(call.ToJSON())
	if err != nil {
		return nil, err
	}
	pending := &pendingStream{items: make(chan callResult, 4)}
	p.enqueue(pending)
	p.base.Transport().SendMessage(data, fds)

	out := make(chan *Reply)
	go func() {
		defer close(out)
		for {
			select {
			case res, ok := <-pending.items:
				if !ok {
					return
				}
				if res.err != nil {
					return
				}
				select {
				case out <- res.reply:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *Protocol) enqueue(e pendingEntry) *list.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.PushBack(e)
}

func (p *Protocol) dequeue(elem *list.Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Remove(elem)
}

// RequestReceived implements protocol.Handler: it routes the decoded reply
// to the head of the FIFO, matching clientprotocol.py's request_received.
func (p *Protocol) RequestReceived(obj map[string]any, fds *fdset.Array) <-chan struct{} {
	reply, err := wire.ReplyFromJSON(obj)
	p.mu.Lock()
	front := p.pending.Front()
	if front == nil {
		p.mu.Unlock()
		fds.CloseAll()
		return nil
	}
	entry := front.Value.(pendingEntry)
	popFront := true
	if err == nil && reply.Continues {
		popFront = false
	}
	if popFront {
		p.pending.Remove(front)
	}
	p.mu.Unlock()

	if err != nil {
		entry.fail(err)
		fds.CloseAll()
		return nil
	}
	if !entry.wantsFDs() {
		fds.CloseAll()
		fds = nil
	}
	entry.deliver(&Reply{MethodReply: reply, FDs: fds}, nil)
	return nil
}

// ErrorReceived implements protocol.Handler for frames that failed to parse
// as JSON at all; the frame's fds are closed and the call at the head of the
// queue is failed with err.
func (p *Protocol) ErrorReceived(err error, data []byte, fds *fdset.Array) {
	fds.CloseAll()
	p.mu.Lock()
	front := p.pending.Front()
	if front != nil {
		p.pending.Remove(front)
	}
	p.mu.Unlock()
	if front != nil {
		front.Value.(pendingEntry).fail(err)
	}
}

// EOFReceived implements protocol.Handler: every still-pending call is
// failed with ErrConnectionClosed.
func (p *Protocol) EOFReceived() {
	p.mu.Lock()
	p.closed = true
	pending := p.pending
	p.pending = list.New()
	p.mu.Unlock()
	for e := pending.Front(); e != nil; e = e.Next() {
		e.Value.(pendingEntry).fail(ErrConnectionClosed)
	}
}
