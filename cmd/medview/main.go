package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/medview/medview/config"
	"github.com/medview/medview/dataset"
	"github.com/medview/medview/mat"
)

// varFlag collects repeated --var NAME,VAL arguments.
type varFlag map[string]string

func (v varFlag) String() string { return fmt.Sprintf("%v", map[string]string(v)) }

func (v varFlag) Set(s string) error {
	name, val, ok := strings.Cut(s, ",")
	if !ok || name == "" {
		return fmt.Errorf("--var wants NAME,VAL, got '%s'", s)
	}
	v[name] = val
	return nil
}

// settingFlag collects repeated --setting KEY=VAL arguments.
type settingFlag map[string]string

func (v settingFlag) String() string { return fmt.Sprintf("%v", map[string]string(v)) }

func (v settingFlag) Set(s string) error {
	key, val, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("--setting wants KEY=VAL, got '%s'", s)
	}
	v[strings.ToLower(key)] = val
	return nil
}

func main() {
	var (
		configPath    string
		exampleConfig bool
		trace         bool
		logToFile     bool
		showConsole   bool
	)
	vars := varFlag{}
	settings := settingFlag{}

	flag.StringVar(&configPath, "config", "", "Path to config.ini.")
	flag.Var(vars, "var", "Script variable as NAME,VAL. May repeat.")
	flag.Var(settings, "setting", "Config override as KEY=VAL. May repeat.")
	flag.BoolVar(&trace, "t", false, "Enable call tracing.")
	flag.BoolVar(&logToFile, "l", false, "Write the log to a file.")
	flag.BoolVar(&showConsole, "c", false, "Show the script console at startup.")
	flag.BoolVar(&exampleConfig, "ExampleConfig", false,
		"Prints an example configuration file to stdout and exits.")
	flag.Parse()

	if exampleConfig {
		fmt.Print(config.ExampleConfigFile)
		return
	}

	log.SetFlags(log.Ltime)
	if trace {
		log.SetFlags(log.Ltime | log.Lshortfile)
	}
	if logToFile {
		f, err := os.Create("medview.log")
		if err != nil {
			log.Fatalf("Cannot open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	// Stray shared-memory ref files from crashed runs are cleaned before
	// any matrix allocation.
	mat.SweepStale()

	cfg := &config.File{}
	if configPath != "" {
		var err error
		cfg, err = config.Read(configPath)
		if err != nil {
			log.Fatalf("Cannot read config '%s': %v", configPath, err)
		}
	}
	applySettings(cfg, settings)

	resolved, err := cfg.Resolve(runtime.GOOS)
	if err != nil {
		log.Fatal(err)
	}
	if resolved.ShmDir != "" {
		mat.SetShmDir(resolved.ShmDir)
	}

	if cfg.Var == nil {
		cfg.Var = map[string]*config.Var{}
	}
	for name, val := range vars {
		cfg.Var[name] = &config.Var{Value: val}
	}

	if showConsole {
		log.Printf("Script console enabled.")
	}
	for _, script := range resolved.Scripts() {
		log.Printf("Preload script: %s", script)
	}

	for _, path := range flag.Args() {
		obj, err := dataset.LoadFile(path)
		if err != nil {
			log.Fatalf("Cannot load '%s': %v", path, err)
		}
		log.Printf("Loaded %s (%d timesteps).", obj.ObjName(), len(obj.Timesteps()))
	}
}

// applySettings patches --setting overrides into the All section so they
// win on every platform.
func applySettings(cfg *config.File, settings settingFlag) {
	for key, val := range settings {
		switch key {
		case "resdir":
			cfg.All.ResDir = val
		case "shmdir":
			cfg.All.ShmDir = val
		case "userappdir":
			cfg.All.UserAppDir = val
		case "stylesheet":
			cfg.All.Stylesheet = val
		case "winsize":
			cfg.All.WinSize = val
		case "uistyle":
			cfg.All.UIStyle = val
		case "rendersystem":
			cfg.All.RenderSystem = val
		case "vsync":
			cfg.All.VSync = val
		case "camerazlock":
			cfg.All.CameraZLock = val
		case "preloadscripts":
			cfg.All.PreloadScripts = val
		case "maxprocs":
			n, err := strconv.Atoi(val)
			if err != nil {
				log.Printf("Bad maxprocs '%s' ignored.", val)
				continue
			}
			cfg.All.MaxProcs = n
		default:
			log.Printf("Unrecognized setting '%s' ignored.", key)
		}
	}
}
