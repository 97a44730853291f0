package fdset

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeFDs(t *testing.T) (int, int) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	// Dup so CloseAll in the test doesn't double-close the *os.File's fd
	// out from under the cleanup above.
	rfd, err := dup(int(r.Fd()))
	require.NoError(t, err)
	wfd, err := dup(int(w.Fd()))
	require.NoError(t, err)
	return rfd, wfd
}

func TestTakeReturnsDescriptorOnce(t *testing.T) {
	a, b := pipeFDs(t)
	arr := New([]int{a, b})
	assert.Equal(t, 2, arr.Len())
	assert.True(t, arr.IsNonEmpty())

	got, err := arr.Take(0)
	require.NoError(t, err)
	assert.Equal(t, a, got)
	syscallClose(got)

	_, err = arr.Take(0)
	assert.ErrorIs(t, err, ErrAlreadyReleased)
}

func TestTakeOutOfRange(t *testing.T) {
	arr := New(nil)
	_, err := arr.Take(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestCloseAllIdempotent(t *testing.T) {
	a, b := pipeFDs(t)
	arr := New([]int{a, b})
	taken, err := arr.Take(0)
	require.NoError(t, err)
	defer syscallClose(taken)

	arr.CloseAll()
	arr.CloseAll() // must not panic or double-close a's slot (already taken)

	_, err = arr.Take(1)
	assert.ErrorIs(t, err, ErrAlreadyReleased)
}

func TestEqual(t *testing.T) {
	a, b := pipeFDs(t)
	defer syscallClose(a)
	defer syscallClose(b)
	x := New([]int{a, b})
	y := New([]int{a, b})
	assert.True(t, Equal(x, y))
	z := New([]int{b, a})
	assert.False(t, Equal(x, z))
}

func TestFDImplementsFileno(t *testing.T) {
	var f FD = 7
	assert.Equal(t, 7, f.Fileno())
}

func TestReferenceUntilDoneDefersClose(t *testing.T) {
	a, b := pipeFDs(t)
	arr := New([]int{a, b})
	done := make(chan struct{})
	arr.ReferenceUntilDone(done)
	finished := make(chan struct{})
	go func() {
		arr.CloseAllWhenDone()
		close(finished)
	}()

	select {
	case <-finished:
		t.Fatal("CloseAllWhenDone returned before done fired")
	default:
	}
	close(done)
	<-finished

	_, err := arr.Take(0)
	assert.ErrorIs(t, err, ErrAlreadyReleased)
}
