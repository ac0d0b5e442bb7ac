package pipeline

import (
	"time"

	"github.com/local/docextract/internal/converter"
)

// Format is a conversion target format.
type Format = converter.Target

const (
	FormatText = converter.TargetText
	FormatPDF  = converter.TargetPDF
	FormatCSV  = converter.TargetCSV
	FormatHTML = converter.TargetHTML
)

// SourceDocument is an ingested document: either a path on disk or raw bytes.
// Immutable once handed to the pipeline; persistence is the caller's concern.
type SourceDocument struct {
	Path         string
	Bytes        []byte
	Filename     string // original name, used for extension fallback
	DeclaredMIME string // caller-declared type; sniffing always runs regardless
}

// ConversionResult is created exactly once per conversion request and never
// mutated afterwards.
type ConversionResult struct {
	Success    bool
	OutputPath string
	PageCount  int
	Kind       Kind // failure classification, empty on success
	Error      string
	Duration   time.Duration
}

// ExtractionResult is the outcome of a structured extraction run. Exactly one
// of Data and Error is populated; Success implies Data validated against the
// template's schema. Degraded marks lossy text recovery on an otherwise
// successful result.
type ExtractionResult struct {
	Success  bool
	Data     map[string]any
	Kind     Kind
	Error    string
	Model    string
	Duration time.Duration
	Degraded bool
}
