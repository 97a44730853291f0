package server

import (
	"context"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/ianremillard/govarlink/ifacereg"
	"github.com/ianremillard/govarlink/protocol"
	"github.com/ianremillard/govarlink/transport"
	"github.com/ianremillard/govarlink/vtype"
	"github.com/ianremillard/govarlink/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketpair(t *testing.T) (*net.UnixConn, *net.UnixConn) {
	t.Helper()
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	require.NoError(t, err)
	toConn := func(fd int) *net.UnixConn {
		f := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(f)
		require.NoError(t, err)
		f.Close()
		return c.(*net.UnixConn)
	}
	return toConn(fds[0]), toConn(fds[1])
}

func demoRegistry() *Registry {
	registry := NewRegistry()
	demo := ifacereg.NewInterface("com.example.demo")
	demo.Register(&ifacereg.Method{
		Name:   "Method",
		Params: vtype.NewObject(map[string]vtype.Type{"argument": vtype.String}, nil),
		Return: vtype.NewObject(map[string]vtype.Type{"result": vtype.String}, nil),
		Kind:   ifacereg.Single,
		Call: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"result": "egg"}, nil
		},
	})
	demo.Register(&ifacereg.Method{
		Name:   "MoreMethod",
		Return: vtype.NewObject(map[string]vtype.Type{"result": vtype.String}, nil),
		Kind:   ifacereg.Streaming,
		CallStream: func(ctx context.Context, params map[string]any) (<-chan ifacereg.StreamItem, error) {
			ch := make(chan ifacereg.StreamItem, 2)
			ch <- ifacereg.StreamItem{Parameters: map[string]any{"result": "spam"}}
			ch <- ifacereg.StreamItem{Parameters: map[string]any{"result": "egg"}, Final: true}
			close(ch)
			return ch, nil
		},
	})
	demo.Register(&ifacereg.Method{
		Name: "DemoFailure",
		Kind: ifacereg.Single,
		Call: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			return nil, NewErrorReply("com.example.demo", "DemoFailure", nil)
		},
	})
	registry.Register(demo)
	svc := &Service{Vendor: "Example", Product: "demo", Version: "1", Registry: registry}
	registry.Register(NewServiceInterface(svc))
	return registry
}

func startServer(t *testing.T, registry *Registry) *net.UnixConn {
	t.Helper()
	serverConn, clientConn := socketpair(t)
	p := NewProtocol(context.Background(), registry)
	p.Serve(transport.NewUnix(serverConn, p.base))
	return clientConn
}

func readFrame(t *testing.T, conn *net.UnixConn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 4096)
	var all []byte
	for {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		all = append(all, buf[:n]...)
		if i := indexByte(all, 0); i >= 0 {
			obj, err := wire.DecodeObject(all[:i])
			require.NoError(t, err)
			return obj
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func TestUnitReply(t *testing.T) {
	conn := startServer(t, demoRegistry())
	frame, err := wire.EncodeFrame((&wire.MethodCall{
		Method:     "com.example.demo.Method",
		Parameters: map[string]any{"argument": "spam"},
	}).ToJSON())
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	obj := readFrame(t, conn)
	reply, err := wire.ReplyFromJSON(obj)
	require.NoError(t, err)
	assert.Equal(t, "egg", reply.Parameters["result"])
}

func TestStreamingReplies(t *testing.T) {
	conn := startServer(t, demoRegistry())
	frame, err := wire.EncodeFrame((&wire.MethodCall{
		Method: "com.example.demo.MoreMethod",
		More:   true,
	}).ToJSON())
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	first := readFrame(t, conn)
	r1, err := wire.ReplyFromJSON(first)
	require.NoError(t, err)
	assert.Equal(t, "spam", r1.Parameters["result"])
	assert.True(t, r1.Continues)

	second := readFrame(t, conn)
	r2, err := wire.ReplyFromJSON(second)
	require.NoError(t, err)
	assert.Equal(t, "egg", r2.Parameters["result"])
	assert.False(t, r2.Continues)
}

func TestErrorPropagation(t *testing.T) {
	conn := startServer(t, demoRegistry())
	frame, err := wire.EncodeFrame((&wire.MethodCall{Method: "com.example.demo.DemoFailure"}).ToJSON())
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	obj := readFrame(t, conn)
	reply, err := wire.ReplyFromJSON(obj)
	require.NoError(t, err)
	assert.Equal(t, "com.example.demo.DemoFailure", reply.Error)
}

func TestUnknownInterface(t *testing.T) {
	conn := startServer(t, demoRegistry())
	frame, err := wire.EncodeFrame((&wire.MethodCall{Method: "com.example.nope.Method"}).ToJSON())
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	obj := readFrame(t, conn)
	reply, err := wire.ReplyFromJSON(obj)
	require.NoError(t, err)
	assert.Equal(t, "org.varlink.service.InterfaceNotFound", reply.Error)
}

func TestGetInfoListsInterfaces(t *testing.T) {
	conn := startServer(t, demoRegistry())
	frame, err := wire.EncodeFrame((&wire.MethodCall{Method: "org.varlink.service.GetInfo"}).ToJSON())
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	obj := readFrame(t, conn)
	reply, err := wire.ReplyFromJSON(obj)
	require.NoError(t, err)
	ifaces, _ := reply.Parameters["interfaces"].([]any)
	assert.Contains(t, ifaces, "com.example.demo")
	assert.Contains(t, ifaces, "org.varlink.service")
}
