package activation

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetListenFDMissing(t *testing.T) {
	pid := strconv.Itoa(os.Getpid())

	t.Run("missing LISTEN_PID", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "1")
		_, ok := GetListenFD("spam")
		assert.False(t, ok)
	})

	t.Run("wrong LISTEN_PID", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "1")
		t.Setenv("LISTEN_PID", strconv.Itoa(os.Getpid()+1))
		_, ok := GetListenFD("spam")
		assert.False(t, ok)
	})

	t.Run("missing LISTEN_FDNAMES", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "2")
		t.Setenv("LISTEN_PID", pid)
		_, ok := GetListenFD("spam")
		assert.False(t, ok)
	})

	t.Run("mismatch LISTEN_FDNAMES", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "1")
		t.Setenv("LISTEN_PID", pid)
		t.Setenv("LISTEN_FDNAMES", "beacon")
		_, ok := GetListenFD("spam")
		assert.False(t, ok)
	})

	t.Run("bad LISTEN_FDNAMES length", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "2")
		t.Setenv("LISTEN_PID", pid)
		t.Setenv("LISTEN_FDNAMES", "beacon")
		_, ok := GetListenFD("spam")
		assert.False(t, ok)
	})

	t.Run("name not in LISTEN_FDNAMES", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "2")
		t.Setenv("LISTEN_PID", pid)
		t.Setenv("LISTEN_FDNAMES", "beacon:egg")
		_, ok := GetListenFD("spam")
		assert.False(t, ok)
	})
}

func TestGetListenFDFound(t *testing.T) {
	pid := strconv.Itoa(os.Getpid())

	t.Run("single fd, no names, backwards compatible", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "1")
		t.Setenv("LISTEN_PID", pid)
		fd, ok := GetListenFD("spam")
		assert.True(t, ok)
		assert.Equal(t, 3, fd)
	})

	t.Run("single fd, matching name", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "1")
		t.Setenv("LISTEN_PID", pid)
		t.Setenv("LISTEN_FDNAMES", "spam")
		fd, ok := GetListenFD("spam")
		assert.True(t, ok)
		assert.Equal(t, 3, fd)
	})

	t.Run("multiple fds, name at offset", func(t *testing.T) {
		t.Setenv("LISTEN_FDS", "2")
		t.Setenv("LISTEN_PID", pid)
		t.Setenv("LISTEN_FDNAMES", "baecon:spam")
		fd, ok := GetListenFD("spam")
		assert.True(t, ok)
		assert.Equal(t, 4, fd)
	})
}
