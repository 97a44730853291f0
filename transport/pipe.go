package transport

import "os"

// pipeReader wraps a plain byte-stream read endpoint (e.g. one half of a
// socketpair used without ancillary data, or a regular pipe) that cannot
// carry file descriptors.
type pipeReader struct {
	f *os.File
}

func (p *pipeReader) supportsFDs() bool { return false }
func (p *pipeReader) Close() error      { return p.f.Close() }
func (p *pipeReader) readChunk(buf []byte) (int, []int, error) {
	n, err := p.f.Read(buf)
	return n, nil, err
}

// pipeWriter is the send-side counterpart of pipeReader.
type pipeWriter struct {
	f *os.File
}

func (p *pipeWriter) supportsFDs() bool { return false }
func (p *pipeWriter) Close() error      { return p.f.Close() }
func (p *pipeWriter) writeChunk(data []byte, fds []int) (int, error) {
	if len(fds) > 0 {
		return 0, ErrFDsNotSupported
	}
	return p.f.Write(data)
}

// NewPipe builds a Transport over two independent byte-stream endpoints with
// no ancillary-data capability. recv and send may be the same *os.File for a
// full-duplex pipe-like connection, or distinct files for a pair of
// unidirectional pipes.
func NewPipe(recv, send *os.File, receiver Receiver) *Transport {
	return newTransport(&pipeReader{f: recv}, &pipeWriter{f: send}, receiver)
}
