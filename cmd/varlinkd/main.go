// varlinkd is an example varlink service: org.varlink.service introspection
// plus a small org.example.terminal interface that hands out PTY file
// descriptors, demonstrating the FD-ownership contract end to end.
//
// Usage:
//
//	varlinkd [--config <path>] [--socket <path>]
//
// varlinkd listens on a Unix domain socket, accepting a pre-bound listener
// from a supervisor via systemd-style socket activation (see the
// activation package) in preference to binding its own, exactly as
// groved checks GROVE_ROOT before falling back to a default.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ianremillard/govarlink/activation"
	"github.com/ianremillard/govarlink/server"
	"github.com/ianremillard/govarlink/transport"
)

const activationName = "varlinkd"

func defaultConfigPath() string {
	if env := os.Getenv("VARLINKD_CONFIG"); env != "" {
		return env
	}
	return "/etc/varlinkd/varlinkd.yaml"
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "service manifest (env: VARLINKD_CONFIG)")
	socketOverride := flag.String("socket", "", "unix socket path to listen on (overrides the manifest)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("varlinkd: %v", err)
	}
	if *socketOverride != "" {
		cfg.Socket = *socketOverride
	}

	registry := server.NewRegistry()
	term := &terminalService{}
	if err := registry.Register(newTerminalInterface(term)); err != nil {
		log.Fatalf("varlinkd: %v", err)
	}
	svc := &server.Service{
		Vendor:   cfg.Vendor,
		Product:  cfg.Product,
		Version:  cfg.Version,
		URL:      cfg.URL,
		Registry: registry,
	}
	if err := registry.Register(server.NewServiceInterface(svc)); err != nil {
		log.Fatalf("varlinkd: %v", err)
	}

	ln, err := listen(cfg.Socket)
	if err != nil {
		log.Fatalf("varlinkd: %v", err)
	}
	defer ln.Close()
	log.Printf("varlinkd listening on %s", cfg.Socket)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %v, shutting down", sig)
		ln.Close()
		os.Exit(0)
	}()

	if err := serve(ln, registry); err != nil {
		log.Fatalf("varlinkd: %v", err)
	}
}

// listen binds cfg.Socket, preferring a socket handed down via LISTEN_FDS
// (e.g. systemd Socket-activated units) over binding a fresh one.
func listen(socketPath string) (net.Listener, error) {
	if fd, ok := activation.GetListenFD(activationName); ok {
		f := os.NewFile(uintptr(fd), activationName)
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("activation fd %d: %w", fd, err)
		}
		return ln, nil
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	return ln, nil
}

// serve accepts connections until ln is closed, dispatching each over its
// own server.Protocol against registry.
func serve(ln net.Listener, registry *server.Registry) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}
		uconn, ok := conn.(*net.UnixConn)
		if !ok {
			conn.Close()
			continue
		}
		go handleConn(uconn, registry)
	}
}

func handleConn(conn *net.UnixConn, registry *server.Registry) {
	ctx := context.Background()
	proto := server.NewProtocol(ctx, registry)
	t := transport.NewUnix(conn, proto.Receiver())
	proto.Serve(t)
}
