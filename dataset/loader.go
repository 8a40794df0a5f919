package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Loader reads and writes one family of scene-object file formats. Loaders
// declare extension patterns and are resolved on load by first acceptance.
type Loader interface {
	// Patterns returns the file extension globs the loader claims, like
	// "*.vtk".
	Patterns() []string
	// Accept reports whether the loader can read the file. It may open
	// the file to sniff.
	Accept(path string) bool
	// Load reads the file into a scene object. An empty name derives one
	// from the path.
	Load(path, name string) (SceneObject, error)
	// Save writes the object back out.
	Save(obj SceneObject, path string, overwrite, setFilenames bool) error
	// ObjectFiles lists the files an object was loaded from.
	ObjectFiles(obj SceneObject) []string
	// RenameObjectFiles moves an object's files to a new base name.
	RenameObjectFiles(obj SceneObject, oldName string, overwrite bool) error
}

var (
	loaderMu sync.RWMutex
	loaders  []Loader
)

// RegisterLoader adds a loader to the resolution list. Registration order
// is resolution order.
func RegisterLoader(l Loader) {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	loaders = append(loaders, l)
}

// ResolveLoader returns the first loader whose patterns match the path and
// which accepts the file.
func ResolveLoader(path string) (Loader, error) {
	base := strings.ToLower(filepath.Base(path))
	loaderMu.RLock()
	defer loaderMu.RUnlock()
	for _, l := range loaders {
		for _, pat := range l.Patterns() {
			ok, err := filepath.Match(strings.ToLower(pat), base)
			if err != nil || !ok {
				continue
			}
			if l.Accept(path) {
				return l, nil
			}
		}
	}
	return nil, fmt.Errorf("dataset: no loader accepts %q", path)
}

// LoadFile resolves a loader and loads the file.
func LoadFile(path string) (SceneObject, error) {
	l, err := ResolveLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Load(path, "")
}
