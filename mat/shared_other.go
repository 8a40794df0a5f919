//go:build !unix

package mat

import (
	"errors"
	"os"
)

// Shared matrices degrade to plain heap copies on platforms without a usable
// mmap; the worker pool runs in-process there anyway.

func mmap(f *os.File, size int) ([]byte, error) {
	return nil, errors.New("mat: shared memory not supported on this platform")
}

func munmap(buf []byte) error { return nil }

func pidAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
