//go:build unix

package mat

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmap(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func munmap(buf []byte) error { return unix.Munmap(buf) }

func pidAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
