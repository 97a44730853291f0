// Package protocol implements the framer/backpressure layer that sits on
// top of transport.Transport: splitting received byte chunks on the NUL
// frame terminator, carrying a partial frame over to the next chunk, and
// running a FIFO consumer queue that enforces "at most one head-of-line
// handler in flight" by pausing the transport while a handler is suspended.
package protocol

import (
	"bytes"
	"log"
	"sync"

	"github.com/ianremillard/govarlink/fdset"
	"github.com/ianremillard/govarlink/transport"
	"github.com/ianremillard/govarlink/wire"
)

// Handler is implemented by the layer above Base (client.Protocol or
// server.Protocol) to process one parsed frame.
type Handler interface {
	// RequestReceived handles one decoded JSON object together with the fds
	// that arrived alongside it. It returns a channel that closes once
	// handling has completed, or nil if handling is already complete.
	RequestReceived(obj map[string]any, fds *fdset.Array) <-chan struct{}
	// ErrorReceived handles a frame that failed to decode as JSON. By
	// default implementations should close fds; they are not otherwise
	// passed to RequestReceived.
	ErrorReceived(err error, data []byte, fds *fdset.Array)
	// EOFReceived is called once when the peer closes its send side.
	EOFReceived()
}

type queueEntry struct {
	obj      map[string]any
	parseErr error
	data     []byte
	fds      *fdset.Array
}

// Base drives the consumer queue and backpressure pump for one connection.
// Concrete client/server protocols each hold one.
type Base struct {
	Handler Handler

	recvBuffer []byte

	qmu   sync.Mutex
	queue []queueEntry
	wake  chan struct{}
	stop  chan struct{}

	t *transport.Transport
}

// NewBase constructs a Base bound to handler. Callers must call Attach once
// they have built the underlying transport.Transport (transport.NewUnix /
// transport.NewPipe), since Base itself is the transport.Receiver.
func NewBase(handler Handler) *Base {
	b := &Base{
		Handler: handler,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	go b.pump()
	return b
}

// Attach binds the transport this protocol drives. Must be called exactly
// once, before any bytes flow.
func (b *Base) Attach(t *transport.Transport) {
	b.t = t
}

// Transport returns the underlying transport, for SendMessage calls by
// client/server protocols.
func (b *Base) Transport() *transport.Transport { return b.t }

// MessageReceived implements transport.Receiver. It splits data on the NUL
// frame terminator, prepending any carry-over from a previous partial
// frame, and enqueues one consumer entry per completed frame. All fds
// delivered with this read are attached to the first frame completed from
// it; later frames in the same read carry an empty fd array.
func (b *Base) MessageReceived(data []byte, fds *fdset.Array) {
	buf := data
	if len(b.recvBuffer) > 0 {
		buf = append(append([]byte{}, b.recvBuffer...), data...)
	}
	parts := bytes.Split(buf, []byte{0})
	b.recvBuffer = parts[len(parts)-1]
	complete := parts[:len(parts)-1]

	if len(complete) == 0 {
		// No frame completed from this read; nothing will ever claim
		// these fds, so close them now rather than leak them.
		fds.CloseAll()
		return
	}

	remaining := fds
	entries := make([]queueEntry, 0, len(complete))
	for _, frame := range complete {
		var v any
		err := wire.JSON.Unmarshal(frame, &v)
		var obj map[string]any
		if err == nil {
			// A frame whose JSON is syntactically valid but not an object
			// still enters the queue; the handler decides what to do with
			// a nil obj (it will fail whatever shape it expected).
			obj, _ = v.(map[string]any)
		}
		entries = append(entries, queueEntry{obj: obj, parseErr: err, data: frame, fds: remaining})
		remaining = fdset.New(nil)
	}

	b.qmu.Lock()
	b.queue = append(b.queue, entries...)
	b.qmu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// EOFReceived implements transport.Receiver.
func (b *Base) EOFReceived() {
	b.Handler.EOFReceived()
}

// ErrorReceived implements transport.Receiver for transport-level (OS)
// errors; these are distinct from per-frame JSON decode errors, which are
// queued and delivered to Handler.ErrorReceived by the pump instead.
func (b *Base) ErrorReceived(err error) {
	log.Printf("protocol: transport error: %v", err)
}

func (b *Base) pump() {
	for {
		b.qmu.Lock()
		if len(b.queue) == 0 {
			b.qmu.Unlock()
			select {
			case <-b.wake:
				continue
			case <-b.stop:
				return
			}
		}
		entry := b.queue[0]
		b.queue = b.queue[1:]
		b.qmu.Unlock()

		done := b.invoke(entry)
		if done != nil {
			if b.t != nil {
				b.t.PauseReceiving()
			}
			<-done
		}

		b.qmu.Lock()
		empty := len(b.queue) == 0
		b.qmu.Unlock()
		if empty && b.t != nil {
			b.t.ResumeReceiving()
		}
	}
}

// invoke calls the handler for one entry, recovering from panics per the
// exception policy: log and treat the entry as complete so the queue stays
// live.
func (b *Base) invoke(entry queueEntry) (done <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("protocol: handler panic: %v", r)
			done = nil
		}
	}()
	if entry.parseErr != nil {
		b.Handler.ErrorReceived(entry.parseErr, entry.data, entry.fds)
		return nil
	}
	return b.Handler.RequestReceived(entry.obj, entry.fds)
}

// Stop halts the consumer pump goroutine. Safe to call once, typically from
// connection teardown.
func (b *Base) Stop() {
	close(b.stop)
}
