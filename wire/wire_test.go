package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallFromJSONRoundTrip(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"method":"com.example.demo.Method","parameters":{"argument":"spam"}}`))
	require.NoError(t, err)
	call, err := CallFromJSON(obj)
	require.NoError(t, err)
	assert.Equal(t, "com.example.demo.Method", call.Method)
	iface, err := call.MethodInterface()
	require.NoError(t, err)
	assert.Equal(t, "com.example.demo", iface)
	name, err := call.MethodName()
	require.NoError(t, err)
	assert.Equal(t, "Method", name)

	back := call.ToJSON()
	assert.Equal(t, "com.example.demo.Method", back["method"])
	assert.Equal(t, map[string]any{"argument": "spam"}, back["parameters"])
	assert.NotContains(t, back, "oneway")
}

func TestCallFromJSONRejectsMultipleModifiers(t *testing.T) {
	obj := map[string]any{"method": "com.example.demo.Method", "oneway": true, "more": true}
	_, err := CallFromJSON(obj)
	assert.Error(t, err)
}

func TestCallFromJSONRejectsBadMethodName(t *testing.T) {
	_, err := CallFromJSON(map[string]any{"method": "lowercasetail"})
	assert.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCallFromJSONPreservesExtensions(t *testing.T) {
	call, err := CallFromJSON(map[string]any{
		"method": "com.example.demo.Method",
		"future": "field",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"future": "field"}, call.Extensions)
	back := call.ToJSON()
	assert.Equal(t, "field", back["future"])
}

func TestReplyFromJSONError(t *testing.T) {
	reply, err := ReplyFromJSON(map[string]any{"error": "com.example.demo.DemoFailure"})
	require.NoError(t, err)
	assert.True(t, reply.IsError())
	iface, err := reply.ErrorInterface()
	require.NoError(t, err)
	assert.Equal(t, "com.example.demo", iface)
}

func TestReplyFromJSONBadParametersType(t *testing.T) {
	_, err := ReplyFromJSON(map[string]any{"parameters": "not an object"})
	assert.Error(t, err)
}

func TestEncodeFrameAppendsNUL(t *testing.T) {
	data, err := EncodeFrame(map[string]any{"parameters": map[string]any{"result": "egg"}})
	require.NoError(t, err)
	assert.Equal(t, byte(0), data[len(data)-1])
	obj, err := DecodeObject(data[:len(data)-1])
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "egg"}, obj["parameters"])
}
