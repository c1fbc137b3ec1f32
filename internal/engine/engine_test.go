package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverwriteFlag(t *testing.T) {
	assert.Equal(t, "-aos", OverwriteFlag("skip"))
	assert.Equal(t, "-aou", OverwriteFlag("rename"))
	assert.Equal(t, "-aoa", OverwriteFlag("overwrite"))
	assert.Equal(t, "-aos", OverwriteFlag(""))
}

func TestBandizipCommands(t *testing.T) {
	e := Engine{Kind: KindBandizip, Path: "/opt/bandizip/bz"}

	assert.Equal(t,
		[]string{"/opt/bandizip/bz", "t", "-p:s3cret", "/in/a.rar"},
		e.TestCmd("/in/a.rar", "s3cret"))
	assert.Equal(t,
		[]string{"/opt/bandizip/bz", "t", "/in/a.rar"},
		e.TestCmd("/in/a.rar", ""))

	assert.Equal(t,
		[]string{"/opt/bandizip/bz", "x", "-p:s3cret", "-cp:65001", "-aou", "-o:/out/a", "/in/a.rar"},
		e.ExtractCmd("/in/a.rar", "/out/a", "s3cret", "rename"))
	assert.Equal(t,
		[]string{"/opt/bandizip/bz", "x", "-cp:65001", "-aos", "-o:/out/a", "/in/a.rar"},
		e.ExtractCmd("/in/a.rar", "/out/a", "", "skip"))
}

func TestSevenZipCommands(t *testing.T) {
	e := Engine{Kind: KindSevenZip, Path: "/usr/bin/7z"}

	// -p is always present, empty when no password, so the engine can
	// never stall on an interactive prompt.
	assert.Equal(t,
		[]string{"/usr/bin/7z", "t", "-p", "-y", "/in/a.7z"},
		e.TestCmd("/in/a.7z", ""))
	assert.Equal(t,
		[]string{"/usr/bin/7z", "t", "-ppw", "-y", "/in/a.7z"},
		e.TestCmd("/in/a.7z", "pw"))

	assert.Equal(t,
		[]string{"/usr/bin/7z", "x", "-o/out/a", "-aoa", "-ppw", "-y", "/in/a.7z"},
		e.ExtractCmd("/in/a.7z", "/out/a", "pw", "overwrite"))
}
