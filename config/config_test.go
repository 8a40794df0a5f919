package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleConfigParses(t *testing.T) {
	f, err := ReadString(ExampleConfigFile)
	require.NoError(t, err)

	assert.Equal(t, "path/to/res", f.All.ResDir)
	assert.Equal(t, "/dev/shm", f.Linux.ShmDir)
	assert.Equal(t, "D3D11", f.Windows.RenderSystem)
	assert.Equal(t, "glsl", f.Shaders.Language)
	require.Contains(t, f.Var, "datadir")
	assert.Equal(t, "path/to/data", f.Var["datadir"].Value)
}

func TestResolveFallthrough(t *testing.T) {
	f, err := ReadString(`[All]
ResDir = shared/res
WinSize = 800x600
MaxProcs = 4
[Linux]
ResDir = linux/res
`)
	require.NoError(t, err)

	s, err := f.Resolve("linux")
	require.NoError(t, err)
	// Platform value wins; the rest falls through to All.
	assert.Equal(t, "linux/res", s.ResDir)
	assert.Equal(t, "800x600", s.WinSize)
	assert.Equal(t, 4, s.MaxProcs)
	// Platform default applies when neither section sets it.
	assert.Equal(t, "/dev/shm", s.ShmDir)

	w, h, err := s.ParseWinSize()
	require.NoError(t, err)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestResolveRejectsBadValues(t *testing.T) {
	f, err := ReadString("[All]\nRenderSystem = Glide\n")
	require.NoError(t, err)
	_, err = f.Resolve("linux")
	assert.Error(t, err)

	f, err = ReadString("[All]\nWinSize = huge\n")
	require.NoError(t, err)
	_, err = f.Resolve("linux")
	assert.Error(t, err)

	f, err = ReadString("[All]\nWinSize = 0x600\n")
	require.NoError(t, err)
	_, err = f.Resolve("linux")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(ExampleConfigFile), 0666))

	f, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "path/to/shaders", f.Shaders.Dir)

	_, err = Read(filepath.Join(dir, "missing.ini"))
	assert.Error(t, err)
}

func TestBoolValue(t *testing.T) {
	assert.True(t, BoolValue("yes", false))
	assert.True(t, BoolValue("On", false))
	assert.True(t, BoolValue("1", false))
	assert.False(t, BoolValue("no", true))
	assert.False(t, BoolValue("0", true))
	assert.True(t, BoolValue("", true))
	assert.False(t, BoolValue("maybe", false))
}

func TestScripts(t *testing.T) {
	s := Settings{PreloadScripts: "a.py, b.py ,,c.py"}
	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, s.Scripts())
	assert.Nil(t, (&Settings{}).Scripts())
}

func TestArgsSection(t *testing.T) {
	f, err := ReadString("[Args]\nArg = -l\nArg = -t\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"-l", "-t"}, f.Args.Arg)
}
