package fdset

// FD is a raw file descriptor number that can be used directly as a Go
// struct field wherever a varlink parameter or return record carries one,
// mirroring asyncvarlink.types.FileDescriptor(int) in the originating
// implementation. It satisfies vtype.HasFileno so vtype.FileDescriptor's
// ToJSON accepts it without the caller unwrapping to a plain int first.
type FD int

// Fileno implements vtype.HasFileno.
func (f FD) Fileno() int { return int(f) }
