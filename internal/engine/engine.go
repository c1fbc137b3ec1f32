// Package engine builds command lines for the two supported external
// extraction engine families and resolves their executables. It never
// runs anything itself.
package engine

import (
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
)

// Kind selects an engine's argument vocabulary.
type Kind string

const (
	// KindBandizip engines take colon-separated flags (-p:, -o:).
	KindBandizip Kind = "bandizip"
	// KindSevenZip engines take joined flags (-p, -o) and need -y plus an
	// explicit -p (possibly empty) to never block on an interactive prompt.
	KindSevenZip Kind = "7zip"
)

// Engine is one configured extraction executable.
type Engine struct {
	Kind Kind
	Path string
}

// OverwriteFlag maps the shared overwrite policy vocabulary to the flag
// both engine families understand. Unknown policies fall back to skip.
func OverwriteFlag(policy string) string {
	switch policy {
	case "rename":
		return "-aou"
	case "overwrite":
		return "-aoa"
	default:
		return "-aos"
	}
}

// TestCmd builds the integrity-test invocation for archive.
func (e Engine) TestCmd(archive, pwd string) []string {
	if e.Kind == KindBandizip {
		cmd := []string{e.Path, "t"}
		if pwd != "" {
			cmd = append(cmd, "-p:"+pwd)
		}
		return append(cmd, archive)
	}
	return []string{e.Path, "t", "-p" + pwd, "-y", archive}
}

// ExtractCmd builds the extraction invocation for archive into outDir.
func (e Engine) ExtractCmd(archive, outDir, pwd, policy string) []string {
	if e.Kind == KindBandizip {
		cmd := []string{e.Path, "x"}
		if pwd != "" {
			cmd = append(cmd, "-p:"+pwd)
		}
		cmd = append(cmd, "-cp:65001", OverwriteFlag(policy), "-o:"+outDir)
		return append(cmd, archive)
	}
	return []string{e.Path, "x", "-o" + outDir, OverwriteFlag(policy), "-p" + pwd, "-y", archive}
}

// Config names the configured executables, either of which may be empty
// or point at a missing file.
type Config struct {
	Bandizip string
	SevenZip string
}

// Resolve picks the primary and secondary engines from cfg, falling
// back to auto-discovery when neither configured path exists. Either
// return value may be nil.
func Resolve(cfg Config, logger *zap.Logger) (primary, secondary *Engine) {
	if isFile(cfg.Bandizip) {
		primary = &Engine{Kind: KindBandizip, Path: cfg.Bandizip}
	}
	if isFile(cfg.SevenZip) {
		e := &Engine{Kind: KindSevenZip, Path: cfg.SevenZip}
		if primary == nil {
			primary = e
		} else {
			secondary = e
		}
	}
	if primary != nil {
		return primary, secondary
	}

	if path := discover("bz", "bz.exe"); path != "" {
		logger.Info("auto-discovered bandizip", zap.String("path", path))
		primary = &Engine{Kind: KindBandizip, Path: path}
	}
	if path := discover("7z", "7zz", "7za", "7z.exe"); path != "" {
		logger.Info("auto-discovered 7-zip", zap.String("path", path))
		e := &Engine{Kind: KindSevenZip, Path: path}
		if primary == nil {
			primary = e
		} else {
			secondary = e
		}
	}
	return primary, secondary
}

// wellKnownDirs are install locations probed when PATH lookup fails.
func wellKnownDirs() []string {
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	programFilesX86 := os.Getenv("ProgramFiles(x86)")
	if programFilesX86 == "" {
		programFilesX86 = `C:\Program Files (x86)`
	}
	return []string{
		filepath.Join(programFiles, "Bandizip"),
		filepath.Join(programFilesX86, "Bandizip"),
		filepath.Join(programFiles, "7-Zip"),
		filepath.Join(programFilesX86, "7-Zip"),
	}
}

func discover(names ...string) string {
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	for _, dir := range wellKnownDirs() {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if isFile(candidate) {
				return candidate
			}
		}
	}
	return ""
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
