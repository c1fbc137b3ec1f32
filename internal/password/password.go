// Package password infers probable extraction passwords from the names
// and surroundings of an archive: the file name itself, the parent
// directory name, and small hint files sitting next to the archive.
// Matching is heuristic and best-effort; an absent result is a normal
// outcome, not an error.
package password

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// maxHintFileSize is the largest hint file worth reading.
	maxHintFileSize = 64 * 1024
	// maxHintChars bounds how much of a hint file is scanned.
	maxHintChars = 4000
)

// hintExts are extensions of files considered password hints.
var hintExts = map[string]struct{}{
	".txt": {},
	".md":  {},
	".nfo": {},
	".url": {},
	".ini": {},
}

// The three matcher families, in priority order. The phrase matcher is
// anchored to the start of a line so a marker embedded in brackets
// (【解压密码：x】) falls through to the bracket family, which knows where
// the value ends.
var (
	phraseRE  = regexp.MustCompile(`(?im)^\s*(?:解压密码|压缩密码|解压码|密码|password|pass)(?:\s*(?:统一为|为|是|is))?\s*[：:\s]\s*(.+)$`)
	bracketRE = regexp.MustCompile(`(?i)[\[(（【]\s*(?:pwd|password|pass|解压密码|解压码|压缩密码|提取码|密码)[：:\s=]*([^\]\)）】\s]+)`)
	inlineRE  = regexp.MustCompile(`(?i)(?:解压码|解压密码|压缩密码|提取码|密码|pw|pass|password|key)[：:\s=]*([^\s\]\\/:<>"'` + "`" + `]+)`)
)

// surrounding punctuation stripped from extracted values
const trimSet = "，。,:：;；)]}】）"

func clean(pwd string) string {
	return strings.Trim(strings.TrimSpace(pwd), trimSet)
}

// ExtractFromText runs the matcher families against s in priority order
// and returns the first cleaned non-empty value. Pure function.
func ExtractFromText(s string) (string, bool) {
	for _, re := range []*regexp.Regexp{phraseRE, bracketRE, inlineRE} {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if val := clean(m[1]); val != "" {
			return val, true
		}
	}
	return "", false
}

// cacheEntry remembers a directory's hint-file answer, including a
// definitive "nothing found".
type cacheEntry struct {
	password string
	found    bool
}

// Inferrer owns the per-directory hint cache. Safe for concurrent use;
// a lost race costs at worst one redundant hint-file read.
type Inferrer struct {
	fs     afero.Fs
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewInferrer(fs afero.Fs, logger *zap.Logger) *Inferrer {
	return &Inferrer{
		fs:     fs,
		logger: logger,
		cache:  make(map[string]cacheEntry),
	}
}

// Infer derives a probable password for the archive at path. Sources in
// order: extension-stripped stem, full file name, parent directory
// name, then hint files in the same directory (cached per directory).
// The stem goes first so an inline match never swallows the extension.
func (i *Inferrer) Infer(path string) (string, bool) {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, blob := range []string{stem, name} {
		if pwd, ok := ExtractFromText(blob); ok {
			return pwd, true
		}
	}

	dir := filepath.Dir(path)
	if pwd, ok := ExtractFromText(filepath.Base(dir)); ok {
		return pwd, true
	}

	return i.fromHintFiles(dir)
}

func (i *Inferrer) fromHintFiles(dir string) (string, bool) {
	key := dirKey(dir)

	i.mu.Lock()
	if entry, ok := i.cache[key]; ok {
		i.mu.Unlock()
		return entry.password, entry.found
	}
	i.mu.Unlock()

	pwd, found := i.scanHintFiles(dir)

	i.mu.Lock()
	i.cache[key] = cacheEntry{password: pwd, found: found}
	i.mu.Unlock()
	return pwd, found
}

func (i *Inferrer) scanHintFiles(dir string) (string, bool) {
	entries, err := afero.ReadDir(i.fs, dir)
	if err != nil {
		i.logger.Debug("hint directory unreadable", zap.String("dir", dir), zap.Error(err))
		return "", false
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := hintExts[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		if entry.Size() > maxHintFileSize {
			continue
		}
		data, err := afero.ReadFile(i.fs, filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		text := truncateRunes(strings.ToValidUTF8(string(data), ""), maxHintChars)
		if pwd, ok := ExtractFromText(text); ok {
			i.logger.Debug("password found in hint file",
				zap.String("dir", dir), zap.String("file", entry.Name()))
			return pwd, true
		}
	}
	return "", false
}

func dirKey(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
