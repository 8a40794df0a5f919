/*package config reads the application's config.ini: platform-named
sections with an All-section fallthrough, shader locations, script
variables, and default command-line arguments.
*/
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"
)

// Render systems the backend can be asked for.
var renderSystems = map[string]bool{
	"":       true,
	"OpenGL": true,
	"D3D9":   true,
	"D3D10":  true,
	"D3D11":  true,
}

// Settings is one platform section (or the All section). Empty values in a
// platform section fall through to All.
type Settings struct {
	ResDir     string
	ShmDir     string
	UserAppDir string
	Stylesheet string

	// WinSize is "WIDTHxHEIGHT"; empty leaves the window manager's
	// default.
	WinSize string

	UIStyle      string
	RenderSystem string
	VSync        string
	MaxProcs     int
	CameraZLock  string

	// PreloadScripts is a comma separated list of script paths run at
	// startup.
	PreloadScripts string
}

// Shaders locates the shader sources handed to the backend.
type Shaders struct {
	Dir      string
	Language string
}

// Var is one script variable preset from a [var "name"] section.
type Var struct {
	Value string
}

// Args holds default command line arguments applied before the real ones.
type Args struct {
	Arg []string
}

// File is the full parsed config.ini.
type File struct {
	All     Settings
	Linux   Settings
	Windows Settings
	MacOS   Settings
	Shaders Shaders
	Var     map[string]*Var
	Args    Args
}

// Read parses a config.ini.
func Read(path string) (*File, error) {
	f := &File{}
	if err := gcfg.ReadFileInto(f, path); err != nil {
		return nil, err
	}
	return f, nil
}

// ReadString parses config text, mainly for tests and embedded defaults.
func ReadString(text string) (*File, error) {
	f := &File{}
	if err := gcfg.ReadStringInto(f, text); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) platformSection(platform string) Settings {
	switch platform {
	case "windows":
		return f.Windows
	case "darwin":
		return f.MacOS
	default:
		return f.Linux
	}
}

// Resolve merges the platform section over the All section and applies
// platform defaults. platform is a GOOS value; empty means the current
// one.
func (f *File) Resolve(platform string) (Settings, error) {
	if platform == "" {
		platform = runtime.GOOS
	}
	s := f.platformSection(platform)
	all := f.All

	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&s.ResDir, all.ResDir)
	fill(&s.ShmDir, all.ShmDir)
	fill(&s.UserAppDir, all.UserAppDir)
	fill(&s.Stylesheet, all.Stylesheet)
	fill(&s.WinSize, all.WinSize)
	fill(&s.UIStyle, all.UIStyle)
	fill(&s.RenderSystem, all.RenderSystem)
	fill(&s.VSync, all.VSync)
	fill(&s.CameraZLock, all.CameraZLock)
	fill(&s.PreloadScripts, all.PreloadScripts)
	if s.MaxProcs == 0 {
		s.MaxProcs = all.MaxProcs
	}

	if s.ShmDir == "" && platform == "linux" {
		s.ShmDir = "/dev/shm"
	}

	if !renderSystems[s.RenderSystem] {
		return s, fmt.Errorf(
			"config: unrecognized RenderSystem '%s'. Recognized systems "+
				"are OpenGL, D3D9, D3D10, and D3D11.", s.RenderSystem)
	}
	if s.WinSize != "" {
		if _, _, err := s.ParseWinSize(); err != nil {
			return s, err
		}
	}
	return s, nil
}

// ParseWinSize splits WinSize into width and height.
func (s *Settings) ParseWinSize() (w, h int, err error) {
	parts := strings.SplitN(s.WinSize, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf(
			"config: WinSize must look like 1024x768, got '%s'", s.WinSize)
	}
	if w, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, fmt.Errorf("config: bad WinSize width '%s'", parts[0])
	}
	if h, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, fmt.Errorf("config: bad WinSize height '%s'", parts[1])
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("config: WinSize must be positive, got %dx%d", w, h)
	}
	return w, h, nil
}

// BoolValue interprets the loose boolean spellings config files use.
func BoolValue(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Scripts splits the preload script list.
func (s *Settings) Scripts() []string {
	if s.PreloadScripts == "" {
		return nil
	}
	parts := strings.Split(s.PreloadScripts, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const ExampleConfigFile = `[All]

# Values here apply on every platform unless the platform section below
# sets its own.

# Directory containing icons, fonts, and other bundled resources.
ResDir = path/to/res

# Window size at startup, WIDTHxHEIGHT.
WinSize = 1280x800

# Rendering backend. One of:
# [ OpenGL | D3D9 | D3D10 | D3D11 ]
# Direct3D systems are only available on Windows.
RenderSystem = OpenGL

# Synchronise buffer swaps with the display.
VSync = yes

# Worker process cap for parallel kernels. 0 picks a count automatically
# from the hardware.
MaxProcs = 0

# Lock the camera's up axis to +Z.
CameraZLock = no

# Comma separated scripts run after startup.
# PreloadScripts = scripts/startup.py, scripts/site.py

[Linux]

# Shared-memory matrices are backed by files in this directory.
ShmDir = /dev/shm

[Windows]

RenderSystem = D3D11

[MacOS]

[Shaders]

# Directory holding the shader sources and the language they are written
# in.
Dir = path/to/shaders
Language = glsl

# Script variables, readable from user scripts by name.
[var "datadir"]
Value = path/to/data

[Args]

# Default command line arguments, applied before the real ones.
# Arg = -l
`
