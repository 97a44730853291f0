package main

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/ianremillard/govarlink/ifacereg"
	"github.com/ianremillard/govarlink/vtype"
)

// terminalInterface is "org.example.terminal": the concrete, end-to-end
// demonstration of spec §3's Ownership contract crossing a real OS resource.
// Open starts a shell behind a PTY and hands the master end back to the
// caller as a varlink FileDescriptor — exactly the FD round-trip scenario
// spec §8 describes (scenario 4), using the teacher's pty.Start/Setsize
// (internal/daemon/instance.go:startAgent) retargeted from "supervise an
// agent" to "demonstrate FD-bearing calls".
const terminalInterfaceName = "org.example.terminal"

// terminalService retains every PTY master it hands out for the life of the
// process so the *os.File finalizer never closes the descriptor out from
// under a client that is still using it.
type terminalService struct {
	mu    sync.Mutex
	held  []*os.File
	procs []*exec.Cmd
}

func newTerminalInterface(svc *terminalService) *ifacereg.Interface {
	iface := ifacereg.NewInterface(terminalInterfaceName)

	iface.Register(&ifacereg.Method{
		Name: "Open",
		Params: vtype.NewObject(nil, map[string]vtype.Type{
			"cols": vtype.Int,
			"rows": vtype.Int,
		}),
		Return: vtype.NewObject(map[string]vtype.Type{
			"pty": vtype.FileDescriptor,
		}, nil),
		Kind: ifacereg.Single,
		Call: svc.open,
	})

	return iface
}

func shellCommand() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (s *terminalService) open(ctx context.Context, params map[string]any) (map[string]any, error) {
	cmd := exec.Command(shellCommand())
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	ws := &pty.Winsize{Cols: 80, Rows: 24}
	if cols, ok := params["cols"].(int64); ok && cols > 0 {
		ws.Cols = uint16(cols)
	}
	if rows, ok := params["rows"].(int64); ok && rows > 0 {
		ws.Rows = uint16(rows)
	}
	pty.Setsize(ptmx, ws)

	s.mu.Lock()
	s.held = append(s.held, ptmx)
	s.procs = append(s.procs, cmd)
	s.mu.Unlock()

	return map[string]any{"pty": int(ptmx.Fd())}, nil
}
