package loader

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/netsimio/simbridge/errors"
)

// Resolve locates the engine module on disk, first match wins. The returned
// error lists every path attempted so a missing engine is diagnosable from
// the failure alone.
func Resolve(cfg *Config) (string, error) {
	programDir := ""
	if exe, err := os.Executable(); err == nil {
		programDir = filepath.Dir(exe)
	}
	return resolveIn(cfg, programDir)
}

func resolveIn(cfg *Config, programDir string) (string, error) {
	name := defaultEngineName
	var override string
	if cfg != nil {
		if cfg.Engine.Name != "" {
			name = cfg.Engine.Name
		}
		override = cfg.Engine.Path
	}

	var candidates []string
	if override != "" {
		candidates = append(candidates, override)
	}
	if programDir != "" {
		candidates = append(candidates,
			filepath.Join(programDir, name),
			filepath.Join(programDir, "engines", runtime.GOOS+"_"+runtime.GOARCH, name))
	}
	for _, dir := range platformDefaultDirs() {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", errors.Newf(errors.PhaseResolve, errors.KindNotFound,
		"engine module not found; attempted: %s", strings.Join(candidates, ", "))
}

func platformDefaultDirs() []string {
	switch runtime.GOOS {
	case "windows":
		if pf := os.Getenv("ProgramFiles"); pf != "" {
			return []string{filepath.Join(pf, "simbridge")}
		}
		return nil
	case "darwin":
		return []string{"/usr/local/lib/simbridge", "/opt/homebrew/lib/simbridge"}
	default:
		return []string{"/usr/local/lib/simbridge", "/usr/lib/simbridge"}
	}
}
