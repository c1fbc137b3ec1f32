package detect

// Kind classifies a file by its leading magic bytes.
type Kind string

const (
	KindZip      Kind = "zip"
	KindSevenZip Kind = "7z"
	KindRar      Kind = "rar"
	KindHTML     Kind = "html"
	KindXML      Kind = "xml"
	KindPDF      Kind = "pdf"
	KindUnknown  Kind = "unknown"
)

// magicSigs maps leading byte signatures to kinds. The html/xml/pdf
// entries are negative markers: they flag mis-downloaded placeholder
// pages saved under an archive extension.
var magicSigs = []struct {
	kind Kind
	sig  []byte
}{
	{KindZip, []byte{0x50, 0x4B, 0x03, 0x04}},
	{KindZip, []byte{0x50, 0x4B, 0x05, 0x06}},
	{KindZip, []byte{0x50, 0x4B, 0x07, 0x08}},
	{KindSevenZip, []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}},
	{KindRar, []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}},
	{KindRar, []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}},
	{KindHTML, []byte("<!DOCTYP")},
	{KindHTML, []byte("<html")},
	{KindHTML, []byte("<HTML")},
	{KindXML, []byte("<?xml")},
	{KindPDF, []byte("%PDF")},
}

// IsArchive reports whether the kind is an extractable archive format.
func (k Kind) IsArchive() bool {
	return k == KindZip || k == KindSevenZip || k == KindRar
}

// IsPlaceholder reports whether the kind marks a non-archive placeholder
// file (a web page or document saved where an archive was expected).
func (k Kind) IsPlaceholder() bool {
	return k == KindHTML || k == KindXML || k == KindPDF
}
