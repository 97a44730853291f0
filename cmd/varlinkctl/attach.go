package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/ianremillard/govarlink/client"
	"github.com/ianremillard/govarlink/ifacereg"
	"github.com/ianremillard/govarlink/vtype"
)

// ptyResultField is the name Open's Return schema gives its FileDescriptor
// field; client.Invoke already Takes it out of the reply's fd array and
// leaves the raw descriptor at this key.
const ptyResultField = "pty"

var openTerminalMethod = &ifacereg.Method{
	Name: "Open",
	Params: vtype.NewObject(nil, map[string]vtype.Type{
		"cols": vtype.Int,
		"rows": vtype.Int,
	}),
	Return: vtype.NewObject(map[string]vtype.Type{
		"pty": vtype.FileDescriptor,
	}, nil),
}

// cmdAttach calls org.example.terminal.Open, takes ownership of the returned
// PTY master descriptor, and proxies the local terminal to it. This mirrors
// the teacher's cmdAttach (cmd/catherd/main.go): raw mode on stdin, restored
// on exit, bytes copied in both directions until either side reaches EOF.
// Unlike the teacher's bespoke attach framing, there is no wire-level resize
// message here — see SPEC_FULL.md's DOMAIN STACK note on Setsize.
func cmdAttach(proto *client.Protocol) {
	args := map[string]any{}
	if cols, rows, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
		args["cols"] = int64(cols)
		args["rows"] = int64(rows)
	}

	result, _, err := client.Invoke(context.Background(), proto, terminalInterfaceName, openTerminalMethod, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "varlinkctl: Open: %v\n", err)
		os.Exit(1)
	}

	// "pty" was already taken out of the reply's fd array by FromJSON
	// (client.Invoke's FileDescriptor conversion); the raw descriptor is the
	// int sitting at this key, not something to Take a second time.
	rawFd, ok := result[ptyResultField].(int)
	if !ok {
		fmt.Fprintln(os.Stderr, "varlinkctl: server did not return a PTY descriptor")
		os.Exit(1)
	}
	ptyFile := os.NewFile(uintptr(rawFd), ptyResultField)
	defer ptyFile.Close()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "varlinkctl: cannot set raw mode: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(fd, oldState)

	fmt.Fprint(os.Stdout, "\r\n[varlinkctl] attached (Ctrl-D to exit the shell)\r\n")

	done := make(chan struct{}, 1)
	go func() {
		io.Copy(os.Stdout, ptyFile)
		select {
		case done <- struct{}{}:
		default:
		}
	}()
	go func() {
		io.Copy(ptyFile, os.Stdin)
		select {
		case done <- struct{}{}:
		default:
		}
	}()
	<-done

	term.Restore(fd, oldState)
	fmt.Fprint(os.Stdout, "\n[varlinkctl] detached\n")
}

const terminalInterfaceName = "org.example.terminal"
