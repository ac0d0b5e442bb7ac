package textio

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestDecodeUTF8(t *testing.T) {
	rec := Decode([]byte("héllo wörld ñ"))
	assert.Equal(t, "héllo wörld ñ", rec.Text)
	assert.Equal(t, "utf-8", rec.Encoding)
	assert.False(t, rec.Degraded)
}

func TestDecodeASCIIIsUTF8(t *testing.T) {
	rec := Decode([]byte("plain ascii content"))
	assert.Equal(t, "utf-8", rec.Encoding)
	assert.Equal(t, "plain ascii content", rec.Text)
}

func TestDecodeStripsUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, "hello"...)
	rec := Decode(data)
	assert.Equal(t, "hello", rec.Text)
	assert.Equal(t, "utf-8-sig", rec.Encoding)
	assert.False(t, rec.Degraded)
}

func TestDecodeUTF16WithBOM(t *testing.T) {
	units := utf16.Encode([]rune("héllo"))
	data := []byte{0xFF, 0xFE}
	for _, u := range units {
		data = append(data, byte(u), byte(u>>8))
	}
	rec := Decode(data)
	assert.Equal(t, "héllo", rec.Text)
	assert.Equal(t, "utf-16", rec.Encoding)
}

func TestDecodeWindows1252(t *testing.T) {
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte("café résumé"))
	require.NoError(t, err)

	rec := Decode(data)
	assert.Equal(t, "café résumé", rec.Text)
	assert.Equal(t, "windows-1252", rec.Encoding)
	assert.False(t, rec.Degraded)
}

func TestDecodeISO88591WhenRestricted(t *testing.T) {
	candidates := []Candidate{
		{Name: "utf-8", Decode: decodeUTF8},
		{Name: "iso-8859-1", Decode: charmapStrict(charmap.ISO8859_1)},
	}
	rec := DecodeWith([]byte{'c', 'a', 'f', 0xE9}, candidates)
	assert.Equal(t, "café", rec.Text)
	assert.Equal(t, "iso-8859-1", rec.Encoding)
	assert.False(t, rec.Degraded)
}

func TestDecodeLossyFallback(t *testing.T) {
	candidates := []Candidate{{Name: "utf-8", Decode: decodeUTF8}}

	// 0xC3 announces a two-byte sequence that never arrives
	rec := DecodeWith([]byte{'o', 'k', ' ', 0xC3}, candidates)
	assert.True(t, rec.Degraded)
	assert.Equal(t, "ok �", rec.Text)
	assert.Equal(t, "utf-8", rec.Encoding)
}

func TestDecodeNeverFails(t *testing.T) {
	// every byte value at once still comes back as some string
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	rec := Decode(data)
	assert.NotEmpty(t, rec.Text)
}

func TestUTF16RequiresBOM(t *testing.T) {
	_, err := decodeUTF16([]byte("no bom here"))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte("café"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rec, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "café", rec.Text)
	assert.Equal(t, "windows-1252", rec.Encoding)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
