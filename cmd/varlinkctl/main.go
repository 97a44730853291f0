// varlinkctl is an example varlink client CLI, dispatching on its first
// argument exactly like the teacher's cmd/catherd/main.go switches on
// os.Args[1]. It exercises the client package's plain single-reply calls
// ("info") and its FD-bearing call/attach path ("attach"), the latter in
// the same raw-terminal-mode style as catherd's cmdAttach.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/ianremillard/govarlink/client"
	"github.com/ianremillard/govarlink/ifacereg"
	"github.com/ianremillard/govarlink/transport"
	"github.com/ianremillard/govarlink/vtype"
)

func defaultSocketPath() string {
	if env := os.Getenv("VARLINKD_SOCKET"); env != "" {
		return env
	}
	return "/run/varlinkd/varlinkd.sock"
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: varlinkctl [--socket <path>] <command>")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  info     print org.varlink.service.GetInfo")
	fmt.Fprintln(os.Stderr, "  attach   open a shell PTY through org.example.terminal and attach to it")
	os.Exit(1)
}

func main() {
	socket := flag.String("socket", defaultSocketPath(), "varlinkd unix socket path (env: VARLINKD_SOCKET)")
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		usage()
	}

	conn, err := net.Dial("unix", *socket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "varlinkctl: cannot connect to %s: %v\n", *socket, err)
		os.Exit(1)
	}
	uconn := conn.(*net.UnixConn)

	proto := client.NewProtocol()
	t := transport.NewUnix(uconn, proto.Receiver())
	proto.Connect(t)

	switch args[0] {
	case "info":
		cmdInfo(proto)
	case "attach":
		cmdAttach(proto)
	default:
		usage()
	}
}

var getInfoMethod = &ifacereg.Method{
	Name: "GetInfo",
	Return: vtype.NewObject(map[string]vtype.Type{
		"vendor":     vtype.String,
		"product":    vtype.String,
		"version":    vtype.String,
		"url":        vtype.String,
		"interfaces": vtype.NewList(vtype.String),
	}, nil),
}

func cmdInfo(proto *client.Protocol) {
	result, _, err := client.Invoke(context.Background(), proto, "org.varlink.service", getInfoMethod, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "varlinkctl: GetInfo: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("vendor:     %v\n", result["vendor"])
	fmt.Printf("product:    %v\n", result["product"])
	fmt.Printf("version:    %v\n", result["version"])
	fmt.Printf("url:        %v\n", result["url"])
	fmt.Printf("interfaces: %v\n", result["interfaces"])
}
