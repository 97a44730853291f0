// Package fdset implements the ownership-tracking array of file descriptors
// that accompanies a varlink message. A varlink frame may carry ancillary
// file descriptors alongside its JSON body (SCM_RIGHTS on a unix socket;
// pipe-like transports carry none); exactly one owner is
// responsible for closing each descriptor, and that ownership moves from the
// transport to the protocol layer to the eventual call/reply record as the
// message is handled.
package fdset

import (
	"fmt"
	"os"
	"sync"
)

// Array owns a fixed sequence of file descriptors received alongside (or to
// be sent alongside) a single varlink message. A slot can be taken exactly
// once; after that it no longer participates in CloseAll. Array is safe for
// concurrent use.
type Array struct {
	mu       sync.Mutex
	fds      []int
	released []bool
	extend   []<-chan struct{} // optional lifetime extensions, see ReferenceUntilDone
}

// New builds an Array that owns the given file descriptors. Ownership of fds
// transfers to the Array: callers must not close them directly afterwards.
func New(fds []int) *Array {
	if len(fds) == 0 {
		return &Array{}
	}
	cp := make([]int, len(fds))
	copy(cp, fds)
	return &Array{fds: cp, released: make([]bool, len(cp))}
}

// Len reports how many slots the array has, released or not.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.fds)
}

// IsNonEmpty reports whether the array owns at least one descriptor.
func (a *Array) IsNonEmpty() bool {
	return a.Len() > 0
}

// ErrAlreadyReleased is returned by Take when the requested slot has already
// been taken or closed.
var ErrAlreadyReleased = fmt.Errorf("fdset: descriptor slot already released")

// ErrIndexOutOfRange is returned by Take when the index is outside the array.
var ErrIndexOutOfRange = fmt.Errorf("fdset: index out of range")

// Take hands ownership of the descriptor at index i to the caller. The slot
// is marked released so a subsequent Take or CloseAll will not touch it
// again. The caller becomes responsible for closing the returned descriptor.
func (a *Array) Take(i int) (int, error) {
	if a == nil {
		return -1, ErrIndexOutOfRange
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.fds) {
		return -1, ErrIndexOutOfRange
	}
	if a.released[i] {
		return -1, ErrAlreadyReleased
	}
	a.released[i] = true
	return a.fds[i], nil
}

// TakeFile is like Take but wraps the descriptor in an *os.File carrying the
// given name for diagnostics.
func (a *Array) TakeFile(i int, name string) (*os.File, error) {
	fd, err := a.Take(i)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), name), nil
}

// CloseAll closes every descriptor that has not already been released, and
// is idempotent: calling it more than once, or after some slots have been
// taken, only closes what remains.
func (a *Array) CloseAll() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, released := range a.released {
		if released {
			continue
		}
		a.released[i] = true
		// Best effort: a close error here is not actionable by the caller,
		// who never had a reference to the descriptor in the first place.
		_ = syscallClose(a.fds[i])
	}
}

// ReferenceUntilDone extends the array's practical lifetime: callers holding
// onto raw descriptor numbers obtained via Take before done fires must not
// assume the Array itself keeps anything alive (Take already transferred
// ownership out), but code that wants to defer CloseAll of the *unreleased*
// remainder until some asynchronous consumer completes can register done
// here and call CloseAllWhenDone once.
func (a *Array) ReferenceUntilDone(done <-chan struct{}) {
	if a == nil || done == nil {
		return
	}
	a.mu.Lock()
	a.extend = append(a.extend, done)
	a.mu.Unlock()
}

// CloseAllWhenDone waits for every channel registered via ReferenceUntilDone
// to close or fire, then calls CloseAll. If nothing was registered it closes
// immediately. It is meant to be invoked in its own goroutine by callers that
// handed out an Array whose fds must outlive the immediate call return, such
// as a client awaiting a streamed reply's final frame.
func (a *Array) CloseAllWhenDone() {
	if a == nil {
		return
	}
	a.mu.Lock()
	waits := a.extend
	a.extend = nil
	a.mu.Unlock()
	for _, w := range waits {
		<-w
	}
	a.CloseAll()
}

// Equal reports whether two arrays agree slot-by-slot: a released slot in
// one must be released in the other, and still-owned slots must carry the
// same numeric fd. Used mostly by tests.
func Equal(a, b *Array) bool {
	if a.Len() != b.Len() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range a.fds {
		if a.released[i] != b.released[i] {
			return false
		}
		if !a.released[i] && a.fds[i] != b.fds[i] {
			return false
		}
	}
	return true
}
