package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// unixEndpoint wraps a unix domain SOCK_STREAM connection, capable of
// carrying SCM_RIGHTS ancillary data on both reads and writes.
type unixEndpoint struct {
	conn *net.UnixConn
}

func (u *unixEndpoint) supportsFDs() bool { return true }

func (u *unixEndpoint) Close() error { return u.conn.Close() }

func (u *unixEndpoint) readChunk(buf []byte) (int, []int, error) {
	oob := make([]byte, unix.CmsgSpace(MaxRecvFDs*4))
	n, oobn, _, _, err := u.conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return 0, nil, err
	}
	var fds []int
	if oobn > 0 {
		fds, err = parseRights(oob[:oobn])
		if err != nil {
			return 0, nil, err
		}
	}
	return n, fds, nil
}

func (u *unixEndpoint) writeChunk(data []byte, fds []int) (int, error) {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	n, _, err := u.conn.WriteMsgUnix(data, oob, nil)
	return n, err
}

func parseRights(oob []byte) ([]int, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for _, m := range msgs {
		got, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		fds = append(fds, got...)
	}
	return fds, nil
}

// NewUnix builds a Transport over a single unix domain SOCK_STREAM
// connection used for both receiving and sending, the common case for a
// varlink client or server connection and the only case that supports FD
// passing in both directions.
func NewUnix(conn *net.UnixConn, recv Receiver) *Transport {
	ep := &unixEndpoint{conn: conn}
	return newTransport(ep, ep, recv)
}
