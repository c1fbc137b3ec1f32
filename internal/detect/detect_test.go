package detect

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func TestSniffSignature(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Kind
	}{
		{name: "zip local header", data: []byte{0x50, 0x4B, 0x03, 0x04, 0, 0, 0, 0}, want: KindZip},
		{name: "zip empty archive", data: []byte{0x50, 0x4B, 0x05, 0x06, 0, 0, 0, 0}, want: KindZip},
		{name: "7z", data: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C, 0, 4}, want: KindSevenZip},
		{name: "rar4", data: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00, 0x90}, want: KindRar},
		{name: "rar5", data: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}, want: KindRar},
		{name: "html placeholder", data: []byte("<html><body>404</body>"), want: KindHTML},
		{name: "xml placeholder", data: []byte("<?xml version=\"1.0\"?>"), want: KindXML},
		{name: "pdf placeholder", data: []byte("%PDF-1.7 junk"), want: KindPDF},
		{name: "zero length file", data: nil, want: KindUnknown},
		{name: "short garbage", data: []byte{0x00, 0x01}, want: KindUnknown},
		{name: "no match", data: []byte("plain text file here"), want: KindUnknown},
	}

	fs := afero.NewMemMapFs()
	d := NewDetector(fs, zap.NewNop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Extension is deliberately misleading: only bytes matter.
			path := "/data/" + tt.name + ".rar"
			writeFile(t, fs, path, tt.data)
			assert.Equal(t, tt.want, d.SniffSignature(path))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		assert.Equal(t, KindUnknown, d.SniffSignature("/data/nope.zip"))
	})
}

func TestClassifyExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDetector(fs, zap.NewNop())

	writeFile(t, fs, "/in/movie.raR_", []byte("x"))
	got := d.ClassifyExtension("/in/movie.raR_")
	assert.Equal(t, filepath.Join("/in", "movie.rar"), got)
	exists, err := afero.Exists(fs, filepath.Join("/in", "movie.rar"))
	require.NoError(t, err)
	assert.True(t, exists)

	// A digit inside the token is not noise: "r4r" does not contain
	// "rar", so the path stays as it is.
	writeFile(t, fs, "/in/movie.r4r!", []byte("x"))
	assert.Equal(t, "/in/movie.r4r!", d.ClassifyExtension("/in/movie.r4r!"))

	writeFile(t, fs, "/in/keep.zip", []byte("x"))
	assert.Equal(t, "/in/keep.zip", d.ClassifyExtension("/in/keep.zip"))

	writeFile(t, fs, "/in/readme.txt", []byte("x"))
	assert.Equal(t, "/in/readme.txt", d.ClassifyExtension("/in/readme.txt"))

	// Rename fails (file never created): original path survives.
	assert.Equal(t, "/in/ghost.rarrr", d.ClassifyExtension("/in/ghost.rarrr"))
}

func TestIsMultipartFirst(t *testing.T) {
	tests := []struct {
		name  string
		multi bool
		first bool
	}{
		{"a.part1.rar", true, true},
		{"a.part01.rar", true, true},
		{"a.part001.rar", true, true},
		{"a.part2.rar", true, false},
		{"a.part17.rar", true, false},
		{"b.7z.001", true, true},
		{"b.zip.001", true, true},
		{"c.001", true, true},
		{"d.z01", true, true},
		{"d.z02", true, false},
		{"plain.rar", false, false},
		{"plain.zip", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multi, first := IsMultipartFirst(tt.name)
			assert.Equal(t, tt.multi, multi, "multipart")
			assert.Equal(t, tt.first, first, "first")
		})
	}
}

func TestGather(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDetector(fs, zap.NewNop())

	for _, p := range []string{
		"/root/a.rar",
		"/root/sub/a.part1.rar",
		"/root/sub/a.part2.rar",
		"/root/sub/deep/b.7z.001",
		"/root/sub/deep/b.7z.002",
		"/root/notes.txt",
	} {
		writeFile(t, fs, p, []byte("x"))
	}

	archives, err := d.Gather("/root", true)
	require.NoError(t, err)

	var names []string
	for _, a := range archives {
		names = append(names, a.Name())
	}
	assert.ElementsMatch(t, []string{"a.rar", "a.part1.rar", "b.7z.001"}, names)

	// Non-recursive stays on the top level.
	top, err := d.Gather("/root", false)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "a.rar", top[0].Name())
}

func TestSiblings(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDetector(fs, zap.NewNop())

	t.Run("numbered volumes", func(t *testing.T) {
		for _, p := range []string{"/v/b.7z.001", "/v/b.7z.002", "/v/b.7z.010", "/v/b.7z.txt", "/v/other.7z.001"} {
			writeFile(t, fs, p, []byte("x"))
		}
		got := d.Siblings("/v/b.7z.001")
		assert.ElementsMatch(t, []string{"/v/b.7z.001", "/v/b.7z.002", "/v/b.7z.010"}, got)
	})

	t.Run("part rar family", func(t *testing.T) {
		for _, p := range []string{"/r/a.part1.rar", "/r/a.part2.rar", "/r/a.part3.rar", "/r/b.part1.rar"} {
			writeFile(t, fs, p, []byte("x"))
		}
		got := d.Siblings("/r/a.part1.rar")
		assert.ElementsMatch(t, []string{"/r/a.part1.rar", "/r/a.part2.rar", "/r/a.part3.rar"}, got)
	})

	t.Run("z volumes include final zip", func(t *testing.T) {
		for _, p := range []string{"/z/c.z01", "/z/c.z02", "/z/c.zip"} {
			writeFile(t, fs, p, []byte("x"))
		}
		got := d.Siblings("/z/c.z01")
		assert.ElementsMatch(t, []string{"/z/c.z01", "/z/c.z02", "/z/c.zip"}, got)
	})

	t.Run("single archive is its own family", func(t *testing.T) {
		writeFile(t, fs, "/s/solo.rar", []byte("x"))
		assert.Equal(t, []string{"/s/solo.rar"}, d.Siblings("/s/solo.rar"))
	})
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "0.0B", HumanSize(0))
	assert.Equal(t, "512.0B", HumanSize(512))
	assert.Equal(t, "1.0KB", HumanSize(1024))
	assert.Equal(t, "1.5MB", HumanSize(3*1024*1024/2))
	assert.Equal(t, "2.0GB", HumanSize(2*1024*1024*1024))
}
