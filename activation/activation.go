// Package activation implements systemd-style socket activation lookup
// (LISTEN_PID / LISTEN_FDS / LISTEN_FDNAMES), exactly as described by
// asyncvarlink's util.py:get_listen_fd. Spec §1 calls socket activation an
// external collaborator, not core: nothing under fdset, wire, vtype,
// transport, protocol, client, or server imports this package. It exists so
// cmd/varlinkd has somewhere to get a pre-bound listening socket from a
// supervisor instead of always calling net.Listen itself.
package activation

import (
	"os"
	"strconv"
	"strings"
)

// listenFDsStart is the first inherited descriptor number under the
// systemd socket activation protocol; descriptors 0-2 are stdio.
const listenFDsStart = 3

// GetListenFD looks up the inherited file descriptor registered under name.
// It mirrors get_listen_fd's rules:
//   - LISTEN_PID must be set and equal to the current process id, and
//     LISTEN_FDS must be a positive integer; otherwise (false, -1).
//   - With exactly one inherited fd and no LISTEN_FDNAMES (or one equal to
//     name), that single fd (3) is returned, for backwards compatibility
//     with daemons that predate fd naming.
//   - With LISTEN_FDNAMES set, it must list exactly LISTEN_FDS
//     colon-separated names; the fd at name's position is returned.
func GetListenFD(name string) (fd int, ok bool) {
	pidStr, hasPID := os.LookupEnv("LISTEN_PID")
	fdsStr, hasFDs := os.LookupEnv("LISTEN_FDS")
	if !hasPID || !hasFDs {
		return -1, false
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid != os.Getpid() {
		return -1, false
	}
	fds, err := strconv.Atoi(fdsStr)
	if err != nil || fds < 1 {
		return -1, false
	}

	names, hasNames := os.LookupEnv("LISTEN_FDNAMES")
	if fds == 1 && !hasNames {
		return listenFDsStart, true
	}
	if !hasNames {
		return -1, false
	}
	if fds == 1 && names == name {
		return listenFDsStart, true
	}

	parts := strings.Split(names, ":")
	if len(parts) != fds {
		return -1, false
	}
	for i, n := range parts {
		if n == name {
			return listenFDsStart + i, true
		}
	}
	return -1, false
}
