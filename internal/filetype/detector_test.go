package filetype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pdfSample = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< >>\n%%EOF\n")
	zipHeader = append([]byte("PK\x03\x04"), make([]byte, 26)...)
	oleHeader = append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 504)...)
)

func TestDetectBytesPDF(t *testing.T) {
	info, err := DetectBytes(pdfSample, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, KindPDF, info.Kind)
	assert.Equal(t, "application/pdf", info.MIMEType)
	assert.False(t, info.DirectText)
}

func TestDetectBytesPlainText(t *testing.T) {
	info, err := DetectBytes([]byte("hello world\njust some plain text\n"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, KindPlainText, info.Kind)
	assert.True(t, info.DirectText)
}

func TestDetectBytesCSV(t *testing.T) {
	info, err := DetectBytes([]byte("name,qty,price\nwidget,2,9.99\ngadget,1,4.50\n"), "items.csv")
	require.NoError(t, err)
	assert.Equal(t, KindCSV, info.Kind)
	assert.True(t, info.DirectText)
}

func TestDetectBytesHTML(t *testing.T) {
	info, err := DetectBytes([]byte("<!DOCTYPE html><html><body>hi</body></html>"), "page.html")
	require.NoError(t, err)
	assert.Equal(t, KindHTML, info.Kind)
	assert.True(t, info.DirectText)
}

func TestDetectBytesRTF(t *testing.T) {
	info, err := DetectBytes([]byte(`{\rtf1\ansi Hello}`), "doc.rtf")
	require.NoError(t, err)
	assert.Equal(t, KindRichText, info.Kind)
}

// ZIP containers are disambiguated by extension: the magic bytes alone cannot
// tell a .docx from a .xlsx.
func TestDetectBytesZIPByExtension(t *testing.T) {
	cases := []struct {
		filename string
		kind     Kind
		mime     string
	}{
		{"report.docx", KindWord, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"sheet.xlsx", KindExcel, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"slides.pptx", KindPowerPoint, "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
		{"letter.odt", KindOpenDocText, "application/vnd.oasis.opendocument.text"},
		{"calc.ods", KindOpenDocCalc, "application/vnd.oasis.opendocument.spreadsheet"},
		{"deck.odp", KindOpenDocShow, "application/vnd.oasis.opendocument.presentation"},
	}
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			info, err := DetectBytes(zipHeader, tc.filename)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, info.Kind)
			assert.Equal(t, tc.mime, info.MIMEType)
		})
	}
}

func TestDetectBytesZIPUnknownExtension(t *testing.T) {
	_, err := DetectBytes(zipHeader, "archive.zip")
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestDetectBytesOLEByExtension(t *testing.T) {
	cases := []struct {
		filename string
		kind     Kind
		mime     string
	}{
		{"legacy.doc", KindWord, "application/msword"},
		{"legacy.xls", KindExcel, "application/vnd.ms-excel"},
		{"legacy.ppt", KindPowerPoint, "application/vnd.ms-powerpoint"},
	}
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			info, err := DetectBytes(oleHeader, tc.filename)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, info.Kind)
			assert.Equal(t, tc.mime, info.MIMEType)
		})
	}
}

func TestDetectBytesEmpty(t *testing.T) {
	_, err := DetectBytes(nil, "empty.bin")
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestDetectBytesUnknownBinary(t *testing.T) {
	_, err := DetectBytes([]byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE}, "blob.bin")
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestDetectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, pdfSample, 0o644))

	info, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, KindPDF, info.Kind)
}

func TestDetectFileMissing(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}

func TestSizeWithin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(2<<20)) // sparse 2 MB
	require.NoError(t, f.Close())

	ok, err := SizeWithin(path, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = SizeWithin(path, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// zero disables the limit
	ok, err = SizeWithin(path, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
