package textio

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Recovered is the outcome of a text recovery pass. Text is always populated;
// Degraded marks a lossy decode where undecodable sequences were replaced.
type Recovered struct {
	Text     string
	Encoding string
	Degraded bool
}

// Candidate pairs an encoding label with a strict decoder. A strict decoder
// fails rather than substitute, so the chain can fall through.
type Candidate struct {
	Name   string
	Decode func([]byte) (string, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultCandidates is the ordered list of encodings tried before the lossy
// fallback. BOM-marked encodings run first so a byte-order mark is stripped
// rather than carried into the text; Windows-1252 runs before ISO-8859-1
// because the latter accepts every byte and would otherwise win always.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "utf-8-sig", Decode: decodeUTF8SIG},
		{Name: "utf-16", Decode: decodeUTF16},
		{Name: "utf-8", Decode: decodeUTF8},
		{Name: "windows-1252", Decode: charmapStrict(charmap.Windows1252)},
		{Name: "iso-8859-1", Decode: charmapStrict(charmap.ISO8859_1)},
	}
}

// ReadFile recovers text from the file at path. It never fails on decode
// errors; IO errors are the only error condition.
func ReadFile(path string) (Recovered, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recovered{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data), nil
}

// Decode recovers a string from raw bytes using the default candidate chain.
func Decode(data []byte) Recovered {
	return DecodeWith(data, DefaultCandidates())
}

// DecodeWith tries each candidate in order and returns the first strict full
// decode. If every candidate fails it performs a lossy UTF-8 decode replacing
// undecodable sequences with U+FFFD; recovery always produces some string,
// favoring degraded output over failure.
func DecodeWith(data []byte, candidates []Candidate) Recovered {
	for _, c := range candidates {
		text, err := c.Decode(data)
		if err != nil {
			continue
		}
		if c.Name != "utf-8" {
			log.Debug().Str("encoding", c.Name).Msg("text recovered with fallback encoding")
		}
		return Recovered{Text: text, Encoding: c.Name}
	}

	lossy := strings.ToValidUTF8(string(data), string(utf8.RuneError))
	log.Warn().Int("bytes", len(data)).Msg("text recovery used lossy decode")
	return Recovered{Text: lossy, Encoding: "utf-8", Degraded: true}
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid utf-8")
	}
	return string(data), nil
}

// decodeUTF8SIG requires the UTF-8 byte-order mark and strips it.
func decodeUTF8SIG(data []byte) (string, error) {
	if !bytes.HasPrefix(data, utf8BOM) {
		return "", fmt.Errorf("no utf-8 bom")
	}
	return decodeUTF8(data[len(utf8BOM):])
}

// decodeUTF16 requires a UTF-16 byte-order mark of either endianness.
func decodeUTF16(data []byte) (string, error) {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	return rejectSubstitutions("utf-16", data, out)
}

// charmapStrict wraps a charmap decoder, which substitutes U+FFFD for
// unassigned bytes instead of failing, into a decoder that fails.
func charmapStrict(cm *charmap.Charmap) func([]byte) (string, error) {
	return func(data []byte) (string, error) {
		out, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return rejectSubstitutions(cm.String(), data, out)
	}
}

func rejectSubstitutions(name string, in, out []byte) (string, error) {
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(in, []byte(string(utf8.RuneError))) {
		return "", fmt.Errorf("%s: replacement during decode", name)
	}
	return string(out), nil
}
