package vtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRoundTrip(t *testing.T) {
	v, err := Bool.ToJSON(true, nil)
	require.NoError(t, err)
	back, err := Bool.FromJSON(v, nil)
	require.NoError(t, err)
	assert.Equal(t, true, back)

	_, err = Bool.FromJSON("nope", nil)
	assert.Error(t, err)
}

func TestFloatAcceptsInt(t *testing.T) {
	v, err := Float.ToJSON(int(3), nil)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)
}

func TestOptionalNilRoundTrip(t *testing.T) {
	opt := NewOptional(String)
	v, err := opt.ToJSON(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
	back, err := opt.FromJSON(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, back)

	v, err = opt.ToJSON("hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestOptionalRejectsNesting(t *testing.T) {
	assert.Panics(t, func() {
		NewOptional(NewOptional(String))
	})
}

func TestListContextOnError(t *testing.T) {
	l := NewList(Int)
	_, err := l.ToJSON([]any{1, "bad", 3}, nil)
	require.Error(t, err)
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []any{1}, ce.Path)
}

func TestObjectRequiredAndOptional(t *testing.T) {
	obj := NewObject(
		map[string]Type{"name": String},
		map[string]Type{"age": Int},
	)
	out, err := obj.FromJSON(map[string]any{"name": "spam"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "spam"}, out)

	_, err = obj.FromJSON(map[string]any{}, nil)
	assert.Error(t, err)

	_, err = obj.FromJSON(map[string]any{"name": "spam", "unknown": 1}, nil)
	assert.Error(t, err)
}

func TestObjectRejectsOverlappingKeys(t *testing.T) {
	assert.Panics(t, func() {
		NewObject(map[string]Type{"x": Int}, map[string]Type{"x": String})
	})
}

func TestEnumMembers(t *testing.T) {
	e := NewEnum("red", "green", "blue")
	v, err := e.ToJSON("green", nil)
	require.NoError(t, err)
	assert.Equal(t, "green", v)

	_, err = e.FromJSON("purple", nil)
	assert.Error(t, err)
}

type fakeFDArray struct {
	fds      []int
	released []bool
}

func (f *fakeFDArray) Take(i int) (int, error) {
	if i < 0 || i >= len(f.fds) {
		return -1, assertErr("index out of range")
	}
	if f.released[i] {
		return -1, assertErr("already released")
	}
	f.released[i] = true
	return f.fds[i], nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestFileDescriptorRoundTrip(t *testing.T) {
	outgoing := []int{}
	oob := OOB{FDKey: &outgoing}
	idx, err := FileDescriptor.ToJSON(42, oob)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []int{42}, outgoing)

	arr := &fakeFDArray{fds: []int{42}, released: make([]bool, 1)}
	inOOB := OOB{FDKey: arr}
	fd, err := FileDescriptor.FromJSON(float64(0), inOOB)
	require.NoError(t, err)
	assert.Equal(t, 42, fd)

	_, err = FileDescriptor.FromJSON(float64(0), inOOB)
	assert.Error(t, err)
}

func TestFileDescriptorRequiresOOB(t *testing.T) {
	_, err := FileDescriptor.ToJSON(1, nil)
	assert.Error(t, err)
}

func TestForeignPassthrough(t *testing.T) {
	v, err := Foreign.ToJSON(map[string]any{"anything": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"anything": 1}, v)
}
