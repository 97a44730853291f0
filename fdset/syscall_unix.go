package fdset

import "syscall"

func syscallClose(fd int) error {
	return syscall.Close(fd)
}

func dup(fd int) (int, error) {
	return syscall.Dup(fd)
}
