package filetype

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is the closed set of document kinds the pipeline accepts.
type Kind string

const (
	KindPDF          Kind = "pdf"
	KindWord         Kind = "word"
	KindExcel        Kind = "excel"
	KindPowerPoint   Kind = "powerpoint"
	KindPlainText    Kind = "text"
	KindCSV          Kind = "csv"
	KindHTML         Kind = "html"
	KindRichText     Kind = "rtf"
	KindOpenDocText  Kind = "odt"
	KindOpenDocCalc  Kind = "ods"
	KindOpenDocShow  Kind = "odp"
)

// Info contains detected file type information.
type Info struct {
	MIMEType    string
	Extension   string
	Kind        Kind
	DirectText  bool // text can be read without the conversion engine
	Description string
}

// UnsupportedError reports an input whose MIME type is outside the accepted set.
type UnsupportedError struct {
	MIME string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.MIME)
}

// Detect sniffs the file at path using magic bytes. The filename is used only
// to disambiguate container formats (ZIP-based OOXML/ODF, OLE-based legacy
// Office) where content sniffing is inconclusive.
func Detect(path string) (*Info, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}
	return classify(mtype.String(), mtype.Extension(), path)
}

// DetectBytes sniffs raw document bytes; filename is the extension fallback.
func DetectBytes(data []byte, filename string) (*Info, error) {
	if len(data) == 0 {
		return nil, &UnsupportedError{MIME: "empty input"}
	}
	mtype := mimetype.Detect(data)
	return classify(mtype.String(), mtype.Extension(), filename)
}

func classify(mimeType, extension, name string) (*Info, error) {
	log.Debug().Str("mime", mimeType).Str("ext", extension).Str("name", name).Msg("detected file type")

	// ZIP-based Office formats share the application/zip signature; the
	// extension is the only cheap disambiguator.
	if mimeType == "application/zip" || strings.Contains(mimeType, "application/x-zip") {
		ext := strings.ToLower(filepath.Ext(name))
		switch ext {
		case ".docx":
			mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
			extension = ".docx"
		case ".xlsx":
			mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
			extension = ".xlsx"
		case ".pptx":
			mimeType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
			extension = ".pptx"
		case ".odt":
			mimeType = "application/vnd.oasis.opendocument.text"
			extension = ".odt"
		case ".ods":
			mimeType = "application/vnd.oasis.opendocument.spreadsheet"
			extension = ".ods"
		case ".odp":
			mimeType = "application/vnd.oasis.opendocument.presentation"
			extension = ".odp"
		default:
			log.Warn().Str("ext", ext).Msg("ZIP file with unrecognized extension")
		}
	}

	// OLE/CFB container covers legacy .doc/.xls/.ppt.
	if mimeType == "application/x-ole-storage" || mimeType == "application/x-cfb" {
		ext := strings.ToLower(filepath.Ext(name))
		switch ext {
		case ".doc":
			mimeType = "application/msword"
			extension = ".doc"
		case ".xls":
			mimeType = "application/vnd.ms-excel"
			extension = ".xls"
		case ".ppt":
			mimeType = "application/vnd.ms-powerpoint"
			extension = ".ppt"
		default:
			log.Warn().Str("ext", ext).Msg("OLE storage with unrecognized extension")
		}
	}

	info := &Info{MIMEType: mimeType, Extension: extension}
	if !assignKind(info) {
		return nil, &UnsupportedError{MIME: mimeType}
	}
	return info, nil
}

// assignKind maps a MIME type onto the supported Kind set. Returns false for
// anything outside the accepted enumeration.
func assignKind(info *Info) bool {
	switch {
	case info.MIMEType == "application/pdf":
		info.Kind = KindPDF
		info.Description = "PDF document"

	case info.MIMEType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		info.MIMEType == "application/msword":
		info.Kind = KindWord
		info.Description = "Microsoft Word document"

	case info.MIMEType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		info.MIMEType == "application/vnd.ms-excel":
		info.Kind = KindExcel
		info.Description = "Microsoft Excel spreadsheet"

	case info.MIMEType == "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		info.MIMEType == "application/vnd.ms-powerpoint":
		info.Kind = KindPowerPoint
		info.Description = "Microsoft PowerPoint presentation"

	case info.MIMEType == "application/vnd.oasis.opendocument.text":
		info.Kind = KindOpenDocText
		info.Description = "OpenDocument text"

	case info.MIMEType == "application/vnd.oasis.opendocument.spreadsheet":
		info.Kind = KindOpenDocCalc
		info.Description = "OpenDocument spreadsheet"

	case info.MIMEType == "application/vnd.oasis.opendocument.presentation":
		info.Kind = KindOpenDocShow
		info.Description = "OpenDocument presentation"

	case info.MIMEType == "application/rtf", info.MIMEType == "text/rtf":
		info.Kind = KindRichText
		info.Description = "Rich Text Format"

	case info.MIMEType == "text/csv", strings.HasPrefix(info.MIMEType, "text/csv;"):
		info.Kind = KindCSV
		info.DirectText = true
		info.Description = "CSV file"

	case info.MIMEType == "text/html", strings.HasPrefix(info.MIMEType, "text/html;"):
		info.Kind = KindHTML
		info.DirectText = true
		info.Description = "HTML document"

	case strings.HasPrefix(info.MIMEType, "text/"):
		info.Kind = KindPlainText
		info.DirectText = true
		info.Description = "Plain text file"

	default:
		return false
	}
	return true
}

// SizeWithin reports whether the file at path fits the size limit in MB.
// A limit of zero disables the check.
func SizeWithin(path string, limitMB int) (bool, error) {
	if limitMB <= 0 {
		return true, nil
	}
	st, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return st.Size() <= int64(limitMB)*1024*1024, nil
}
