// Package transport implements the framer/transport layer of the varlink
// core: delivery of NUL-terminated byte chunks together with any ancillary
// file descriptors that arrived alongside them, and a send queue that
// coalesces FD-free writes while keeping FD-bearing writes atomic.
//
// The originating design assumes a single-threaded event loop driving
// non-blocking sockets by hand (epoll add/remove readers, EWOULDBLOCK
// retries). Go's runtime-managed netpoller already gives every goroutine
// that property for free, so this port uses a dedicated reader goroutine and
// a dedicated writer goroutine making ordinary blocking calls; "pause
// receiving" becomes the reader goroutine waiting on a gate before issuing
// its next read (and before delivering a read already in progress), rather
// than removing an epoll watch.
package transport

import (
	"errors"
	"io"
	"sync"

	"github.com/ianremillard/govarlink/fdset"
)

// MaxRecvFDs bounds how many file descriptors a single receive may bundle,
// mirroring the spec's MAX_RECV_FDS.
const MaxRecvFDs = 1024

// recvBufferSize is the minimum read chunk size the spec requires ("at
// least 4 KiB").
const recvBufferSize = 4096

// ErrClosed is returned by SendMessage once the transport has begun closing.
var ErrClosed = errors.New("transport: closed")

// ErrFDsNotSupported is returned when fds are supplied to a send on an
// endpoint that cannot carry ancillary data (anything but a unix stream
// socket).
var ErrFDsNotSupported = errors.New("transport: file descriptor passing not supported on this endpoint")

// Receiver is implemented by the layer above the transport (the protocol
// base) to receive framed bytes, descriptors, and lifecycle events.
type Receiver interface {
	// MessageReceived delivers one chunk of bytes together with any file
	// descriptors that arrived in the same underlying read.
	MessageReceived(data []byte, fds *fdset.Array)
	// EOFReceived is called exactly once when the receive side reaches EOF.
	EOFReceived()
	// ErrorReceived is called on a non-transient OS error on the receive
	// side, just before the receiver is closed.
	ErrorReceived(err error)
}

// reader abstracts a receive endpoint: a unix stream socket capable of
// SCM_RIGHTS, or a plain byte stream (e.g. a pipe half) that cannot carry
// fds.
type reader interface {
	readChunk(buf []byte) (n int, fds []int, err error)
	supportsFDs() bool
	Close() error
}

// writer abstracts a send endpoint symmetrically.
type writer interface {
	writeChunk(data []byte, fds []int) (n int, err error)
	supportsFDs() bool
	Close() error
}

type sendItem struct {
	data   []byte
	fds    []int
	result *SendResult
	// inflight is set by writeLoop, under sendMu, while item.data/fds are
	// being read outside the lock by a writeChunk call in progress. While
	// set, SendMessage must not coalesce into this entry: appending to
	// item.data concurrently with writeLoop's unlocked read of it would be a
	// data race.
	inflight bool
}

// SendResult is the completion signal returned by SendMessage. Multiple
// sends that coalesce into the same underlying write share one SendResult;
// closing Done() wakes every waiter.
type SendResult struct {
	done chan struct{}
	err  error
}

func newSendResult() *SendResult {
	return &SendResult{done: make(chan struct{})}
}

// Done returns a channel that closes once the send (and everything
// coalesced into it) has been written or has failed.
func (r *SendResult) Done() <-chan struct{} { return r.done }

// Err returns the send's outcome; valid only after Done() closes.
func (r *SendResult) Err() error { return r.err }

func (r *SendResult) finish(err error) {
	r.err = err
	close(r.done)
}

// Transport drives one bidirectional (or half/half) byte+FD connection.
type Transport struct {
	recv Receiver

	r reader
	w writer

	pauseMu  sync.Mutex
	paused   bool
	resumeCh chan struct{}

	sendMu    sync.Mutex
	sendQueue []*sendItem
	wake      chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
	closingMu sync.Mutex
	closing   bool
}

func newTransport(r reader, w writer, recv Receiver) *Transport {
	t := &Transport{
		recv:   recv,
		r:      r,
		w:      w,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	go t.readLoop()
	go t.writeLoop()
	return t
}

// PauseReceiving stops the reader goroutine from issuing further reads, and
// from delivering the chunk of a read already in progress, until
// ResumeReceiving is called. Idempotent.
func (t *Transport) PauseReceiving() {
	t.pauseMu.Lock()
	defer t.pauseMu.Unlock()
	if !t.paused {
		t.paused = true
		t.resumeCh = make(chan struct{})
	}
}

// ResumeReceiving lifts a prior PauseReceiving. Idempotent.
func (t *Transport) ResumeReceiving() {
	t.pauseMu.Lock()
	defer t.pauseMu.Unlock()
	if t.paused {
		t.paused = false
		close(t.resumeCh)
	}
}

func (t *Transport) waitIfPaused() {
	t.pauseMu.Lock()
	paused := t.paused
	ch := t.resumeCh
	t.pauseMu.Unlock()
	if paused {
		<-ch
	}
}

func (t *Transport) readLoop() {
	buf := make([]byte, recvBufferSize)
	for {
		t.waitIfPaused()
		n, fds, err := t.r.readChunk(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.recv.EOFReceived()
			} else {
				t.recv.ErrorReceived(err)
			}
			t.r.Close()
			return
		}
		if n == 0 {
			t.recv.EOFReceived()
			t.r.Close()
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		// A read that was already in progress when PauseReceiving was called
		// is held back until ResumeReceiving.
		t.waitIfPaused()
		t.recv.MessageReceived(data, fdset.New(fds))
	}
}

// SendMessage enqueues data (including its framing terminator) and,
// optionally, file descriptors to send atomically with it. Consecutive
// sends with no fds coalesce into the previous queue entry and share its
// SendResult; a send carrying fds always starts a new entry.
func (t *Transport) SendMessage(data []byte, fds []int) *SendResult {
	t.closingMu.Lock()
	closing := t.closing
	t.closingMu.Unlock()
	if closing {
		r := newSendResult()
		r.finish(ErrClosed)
		return r
	}
	if len(fds) > 0 && !t.w.supportsFDs() {
		r := newSendResult()
		r.finish(ErrFDsNotSupported)
		return r
	}

	t.sendMu.Lock()
	var result *SendResult
	if len(fds) == 0 && len(t.sendQueue) > 0 {
		last := t.sendQueue[len(t.sendQueue)-1]
		if len(last.fds) == 0 && !last.inflight {
			last.data = append(last.data, data...)
			result = last.result
		}
	}
	if result == nil {
		result = newSendResult()
		t.sendQueue = append(t.sendQueue, &sendItem{data: data, fds: fds, result: result})
	}
	t.sendMu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return result
}

func (t *Transport) writeLoop() {
	for {
		t.sendMu.Lock()
		empty := len(t.sendQueue) == 0
		t.sendMu.Unlock()
		if empty {
			t.closingMu.Lock()
			closing := t.closing
			t.closingMu.Unlock()
			if closing {
				t.w.Close()
				close(t.closed)
				return
			}
			<-t.wake
			continue
		}
		t.sendMu.Lock()
		item := t.sendQueue[0]
		item.inflight = true
		t.sendMu.Unlock()

		n, err := t.w.writeChunk(item.data, item.fds)
		if err != nil {
			t.sendMu.Lock()
			t.sendQueue = t.sendQueue[1:]
			t.sendMu.Unlock()
			item.result.finish(err)
			continue
		}
		if n < len(item.data) {
			t.sendMu.Lock()
			item.data = item.data[n:]
			item.fds = nil // already delivered with the first byte
			item.inflight = false
			t.sendMu.Unlock()
			continue
		}
		t.sendMu.Lock()
		t.sendQueue = t.sendQueue[1:]
		t.sendMu.Unlock()
		item.result.finish(nil)
	}
}

// Close begins two-phase shutdown: new sends fail immediately, the receive
// side is closed, and once the send queue drains the send side is closed
// too. Close does not block; it returns once shutdown has been initiated.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		t.closingMu.Lock()
		t.closing = true
		t.closingMu.Unlock()
		t.r.Close()
		select {
		case t.wake <- struct{}{}:
		default:
		}
	})
}

// IsClosing reports whether Close has been called.
func (t *Transport) IsClosing() bool {
	t.closingMu.Lock()
	defer t.closingMu.Unlock()
	return t.closing
}
