package mat

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"
)

// Region is a shared memory mapping with a per-pid ref-count file beside it.
// Worker processes map the same file by name; the backing is deleted when the
// last ref-count file disappears.
type Region struct {
	name  string
	path  string
	buf   []byte
	refFn string
}

var shmDir string

// ShmDir returns the directory that shared matrix files live in: /dev/shm
// where it exists, otherwise a per-user directory under the temp dir.
func ShmDir() string {
	if shmDir != "" {
		return shmDir
	}
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		shmDir = "/dev/shm"
	} else {
		shmDir = filepath.Join(os.TempDir(), fmt.Sprintf("medview-%d", os.Getuid()))
		os.MkdirAll(shmDir, 0700)
	}
	return shmDir
}

// SetShmDir overrides the shared memory directory, normally from config.
func SetShmDir(dir string) { shmDir = dir }

// NewRegion creates and maps a shared region of the given byte size. The
// region starts with one reference, held by this process.
func NewRegion(name string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mat: shared region %q has size %d", name, size)
	}
	path := filepath.Join(ShmDir(), name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("mat: creating shared region %q: %w", name, err)
	}
	defer f.Close()
	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("mat: sizing shared region %q: %w", name, err)
	}

	buf, err := mmap(f, size)
	if err != nil {
		return nil, fmt.Errorf("mat: mapping shared region %q: %w", name, err)
	}

	refFn := fmt.Sprintf("%s.%d", path, os.Getpid())
	if err := os.WriteFile(refFn, nil, 0600); err != nil {
		munmap(buf)
		return nil, fmt.Errorf("mat: ref file for region %q: %w", name, err)
	}

	return &Region{name: name, path: path, buf: buf, refFn: refFn}, nil
}

// OpenRegion maps an existing shared region created by another process and
// adds this process's reference to it.
func OpenRegion(name string, size int) (*Region, error) {
	path := filepath.Join(ShmDir(), name)
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("mat: opening shared region %q: %w", name, err)
	}
	defer f.Close()

	buf, err := mmap(f, size)
	if err != nil {
		return nil, fmt.Errorf("mat: mapping shared region %q: %w", name, err)
	}

	refFn := fmt.Sprintf("%s.%d", path, os.Getpid())
	if err := os.WriteFile(refFn, nil, 0600); err != nil {
		munmap(buf)
		return nil, fmt.Errorf("mat: ref file for region %q: %w", name, err)
	}
	return &Region{name: name, path: path, buf: buf, refFn: refFn}, nil
}

// Bytes returns the mapped storage.
func (r *Region) Bytes() []byte { return r.buf }

// Release unmaps the region and drops this process's reference. The backing
// file is removed when no ref-count files remain.
func (r *Region) Release() {
	if r.buf != nil {
		munmap(r.buf)
		r.buf = nil
	}
	os.Remove(r.refFn)

	refs, err := filepath.Glob(r.path + ".*")
	if err == nil && len(refs) == 0 {
		os.Remove(r.path)
	}
}

// SweepStale removes ref-count files owned by dead processes, then any
// region files left with no references. Called once at startup so that a
// crashed worker cannot leak shared memory forever.
func SweepStale() {
	dir := ShmDir()
	ents, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	live := map[string]bool{}
	for _, ent := range ents {
		fn := ent.Name()
		dot := strings.LastIndexByte(fn, '.')
		if dot <= 0 {
			continue
		}
		pid, err := strconv.Atoi(fn[dot+1:])
		if err != nil {
			continue
		}
		if pidAlive(pid) {
			live[fn[:dot]] = true
		} else {
			log.Printf("Sweeping stale shared matrix ref %s (pid %d dead)", fn, pid)
			os.Remove(filepath.Join(dir, fn))
		}
	}

	for _, ent := range ents {
		fn := ent.Name()
		if strings.LastIndexByte(fn, '.') > 0 {
			continue
		}
		if !live[fn] {
			if refs, _ := filepath.Glob(filepath.Join(dir, fn) + ".*"); len(refs) == 0 {
				os.Remove(filepath.Join(dir, fn))
			}
		}
	}
}

// SetShared moves the matrix between heap and shared storage. Promotion
// fails with ErrStorageLocked while sub-matrix handles exist.
func (t *table[T]) SetShared(shared bool) error {
	if t.sub {
		return fmt.Errorf("%w: sub-matrix %q cannot change storage",
			ErrStorageLocked, t.name)
	}
	if shared == (t.store.shm != nil) {
		return nil
	}
	if t.store.foreign > 0 {
		return fmt.Errorf("%w: %d outstanding handles on %q",
			ErrStorageLocked, t.store.foreign, t.name)
	}

	n := len(t.store.data)
	if shared {
		if n == 0 {
			return fmt.Errorf("mat: cannot share empty matrix %q", t.name)
		}
		region, err := NewRegion(t.name, n*t.elemSize)
		if err != nil {
			return err
		}
		data := unsafe.Slice((*T)(unsafe.Pointer(&region.Bytes()[0])), n)
		copy(data, t.store.data)
		t.store.data = data[:n:n]
		t.store.shm = region
		return nil
	}

	heap := make([]T, n)
	copy(heap, t.store.data)
	t.store.shm.Release()
	t.store.shm = nil
	t.store.data = heap
	return nil
}
