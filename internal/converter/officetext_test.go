package converter

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/local/docextract/internal/filetype"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> run.</w:t></w:r></w:p>
</w:body>
</w:document>`

func writeDocx(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(docxBody))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func writeXlsx(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "totals.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "vendor"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "total"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "ACME"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 19.99))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestExtractDocxText(t *testing.T) {
	text, err := extractDocxText(writeDocx(t))
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond run.\n", text)
}

func TestExtractDocxTextNotAnArchive(t *testing.T) {
	path := writeInput(t, "broken.docx", "not a zip at all")
	_, err := extractDocxText(path)
	assert.Error(t, err)
}

func TestExtractDocxTextMissingDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("unrelated.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = extractDocxText(path)
	assert.Error(t, err)
}

func TestExtractExcelText(t *testing.T) {
	text, err := extractExcelText(writeXlsx(t))
	require.NoError(t, err)
	assert.Contains(t, text, "vendor\ttotal")
	assert.Contains(t, text, "ACME\t19.99")
}

// OOXML sources must not pay a subprocess spawn: the binary here does not
// exist, so reaching the engine would fail the extraction.
func TestExtractTextDocxBypassesEngine(t *testing.T) {
	info := &filetype.Info{
		MIMEType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Extension: ".docx",
		Kind:      filetype.KindWord,
	}
	e := New("/nonexistent/soffice", t.TempDir(), time.Minute)
	rec, err := e.ExtractText(context.Background(), writeDocx(t), info)
	require.NoError(t, err)
	assert.Contains(t, rec.Text, "First paragraph.")
}

func TestExtractTextXlsxBypassesEngine(t *testing.T) {
	info := &filetype.Info{
		MIMEType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension: ".xlsx",
		Kind:      filetype.KindExcel,
	}
	e := New("/nonexistent/soffice", t.TempDir(), time.Minute)
	rec, err := e.ExtractText(context.Background(), writeXlsx(t), info)
	require.NoError(t, err)
	assert.Contains(t, rec.Text, "ACME")
}

// Legacy binary formats have no in-process reader and still go through the
// engine.
func TestExtractTextLegacyDocUsesEngine(t *testing.T) {
	soffice := fakeSoffice(t, `printf 'engine output' > "$6/legacy.txt"`)
	input := writeInput(t, "legacy.doc", "fake ole payload")
	info := &filetype.Info{MIMEType: "application/msword", Extension: ".doc", Kind: filetype.KindWord}

	e := New(soffice, t.TempDir(), time.Minute)
	rec, err := e.ExtractText(context.Background(), input, info)
	require.NoError(t, err)
	assert.Equal(t, "engine output", rec.Text)
}
