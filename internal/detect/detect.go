package detect

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// knownExts are extensions accepted as-is by extension classification.
var knownExts = map[string]struct{}{
	".zip": {},
	".7z":  {},
	".rar": {},
	".001": {},
	".z01": {},
}

var (
	nonAlnumRE   = regexp.MustCompile(`[^0-9a-z]`)
	partRarRE    = regexp.MustCompile(`\.part\d+\.rar$`)
	firstPartRE  = regexp.MustCompile(`\.part0*1\.rar$`)
	zVolumeRE    = regexp.MustCompile(`\.z\d{2}$`)
	rarFamilyRE  = regexp.MustCompile(`(?i)^(.+?)\.part0*1\.rar$`)
	threeDigitRE = regexp.MustCompile(`\.\d{3}$`)
)

// Archive is one discovered logical compressed unit. A multipart set is
// represented by its first part only.
type Archive struct {
	Path     string
	Size     int64
	Kind     Kind
	Password string

	// Selection state owned by the caller; the pipeline never interprets it.
	Checked  bool
	Favorite bool
}

// Name returns the base name of the archive file.
func (a Archive) Name() string {
	return filepath.Base(a.Path)
}

// Stem returns the base name with its last extension stripped, used to
// name the extraction output directory.
func (a Archive) Stem() string {
	name := filepath.Base(a.Path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Detector classifies files by signature and naming layout.
type Detector struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewDetector(fs afero.Fs, logger *zap.Logger) *Detector {
	return &Detector{fs: fs, logger: logger}
}

// SniffSignature reads the first bytes of path and matches them against
// the magic table. It returns KindUnknown on read failure or no match,
// never an error.
func (d *Detector) SniffSignature(path string) Kind {
	f, err := d.fs.Open(path)
	if err != nil {
		return KindUnknown
	}
	defer f.Close()

	head := make([]byte, 8)
	n, err := io.ReadFull(f, head)
	if err != nil && n == 0 {
		return KindUnknown
	}
	head = head[:n]

	for _, entry := range magicSigs {
		if bytes.HasPrefix(head, entry.sig) {
			return entry.kind
		}
	}
	return KindUnknown
}

// ClassifyExtension normalizes a misleading extension. Extensions whose
// cleaned token contains rar/7z/zip are mapped to the canonical form and
// the file is renamed on disk. A failed rename is non-fatal: the
// original path is returned.
func (d *Detector) ClassifyExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if _, known := knownExts[ext]; known {
		return path
	}
	if ext == "" {
		return path
	}

	cleaned := nonAlnumRE.ReplaceAllString(ext, "")
	var target string
	switch {
	case strings.Contains(cleaned, "rar"):
		target = ".rar"
	case strings.Contains(cleaned, "7z"):
		target = ".7z"
	case strings.Contains(cleaned, "zip"):
		target = ".zip"
	default:
		return path
	}

	renamed := strings.TrimSuffix(path, filepath.Ext(path)) + target
	if err := d.fs.Rename(path, renamed); err != nil {
		d.logger.Debug("extension rename failed, keeping original path",
			zap.String("path", path), zap.Error(err))
		return path
	}
	return renamed
}

// IsMultipartFirst reports whether name belongs to a multipart family
// and whether it is the family's first part. Rules are checked in order;
// a bare .001 is leniently treated as a first part.
func IsMultipartFirst(name string) (multipart, first bool) {
	low := strings.ToLower(name)
	switch {
	case firstPartRE.MatchString(low):
		return true, true
	case partRarRE.MatchString(low):
		return true, false
	case strings.HasSuffix(low, ".7z.001"), strings.HasSuffix(low, ".zip.001"):
		return true, true
	case strings.HasSuffix(low, ".001"):
		return true, true
	case strings.HasSuffix(low, ".z01"):
		return true, true
	case zVolumeRE.MatchString(low):
		return true, false
	}
	return false, false
}

// LooksLikeArchive matches the discovery rule on a file name: known
// archive extensions, multipart volume suffixes, or partNN.rar names.
func LooksLikeArchive(name string) bool {
	low := strings.ToLower(name)
	return strings.HasSuffix(low, ".zip") ||
		strings.HasSuffix(low, ".7z") ||
		strings.HasSuffix(low, ".rar") ||
		strings.HasSuffix(low, ".001") ||
		strings.HasSuffix(low, ".z01") ||
		partRarRE.MatchString(low)
}

// Gather walks root and returns every archive-looking file in traversal
// order, one record per multipart family (its first part). Extensions
// are normalized along the way.
func (d *Detector) Gather(root string, recursive bool) ([]Archive, error) {
	var found []Archive

	consider := func(path string, size int64) {
		path = d.ClassifyExtension(path)
		if !LooksLikeArchive(filepath.Base(path)) {
			return
		}
		if multi, first := IsMultipartFirst(filepath.Base(path)); multi && !first {
			return
		}
		found = append(found, Archive{Path: path, Size: size})
	}

	if !recursive {
		entries, err := afero.ReadDir(d.fs, root)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", root, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			consider(filepath.Join(root, entry.Name()), entry.Size())
		}
		return found, nil
	}

	err := afero.Walk(d.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			d.logger.Debug("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() {
			return nil
		}
		consider(path, info.Size())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return found, nil
}

// Siblings returns every fragment of firstPart's multipart family found
// on disk, the first part included. The family is recomputed from disk
// state on every call. A non-multipart archive is its own only sibling.
func (d *Detector) Siblings(firstPart string) []string {
	name := filepath.Base(firstPart)
	low := strings.ToLower(name)
	parent := filepath.Dir(firstPart)

	var matches func(candidate string) bool
	switch {
	case strings.HasSuffix(low, ".7z.001"), strings.HasSuffix(low, ".zip.001"):
		stem := low[:len(low)-len(".001")]
		matches = func(c string) bool {
			cl := strings.ToLower(c)
			return strings.HasPrefix(cl, stem+".") && threeDigitRE.MatchString(cl)
		}
	case strings.HasSuffix(low, ".z01"):
		base := low[:len(low)-len("z01")]
		matches = func(c string) bool {
			return strings.HasPrefix(strings.ToLower(c), base+"z")
		}
	default:
		m := rarFamilyRE.FindStringSubmatch(name)
		if m == nil {
			return []string{firstPart}
		}
		prefix := strings.ToLower(m[1])
		matches = func(c string) bool {
			cl := strings.ToLower(c)
			return strings.HasPrefix(cl, prefix+".part") && strings.HasSuffix(cl, ".rar") && partRarRE.MatchString(cl)
		}
	}

	entries, err := afero.ReadDir(d.fs, parent)
	if err != nil {
		return []string{firstPart}
	}

	var siblings []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matches(entry.Name()) {
			siblings = append(siblings, filepath.Join(parent, entry.Name()))
		}
	}

	seen := false
	for _, s := range siblings {
		if s == firstPart {
			seen = true
			break
		}
	}
	if !seen {
		siblings = append(siblings, firstPart)
	}
	sort.Strings(siblings)
	return siblings
}
