package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/docextract/internal/filetype"
	"github.com/local/docextract/internal/textio"
)

// Target is a supported conversion output format.
type Target string

const (
	TargetText Target = "text"
	TargetPDF  Target = "pdf"
	TargetCSV  Target = "csv"
	TargetHTML Target = "html"
)

// convertTo maps a target onto the soffice --convert-to argument and the
// extension of the produced file.
var convertTo = map[Target]struct {
	arg string
	ext string
}{
	TargetText: {arg: "txt:Text (encoded):UTF8", ext: ".txt"},
	TargetPDF:  {arg: "pdf", ext: ".pdf"},
	TargetCSV:  {arg: "csv", ext: ".csv"},
	TargetHTML: {arg: "html", ext: ".html"},
}

// Job describes a single document conversion.
type Job struct {
	InputPath string
	Info      *filetype.Info // detected source kind; enables the direct fast path
	Target    Target
	OutputDir string        // destination for the converted file; defaults to the input's directory
	Timeout   time.Duration // zero means the engine default
}

// Result is created exactly once per job and never mutated afterwards.
type Result struct {
	Success    bool
	OutputPath string
	PageCount  int // populated for PDF outputs
	Error      string
	TimedOut   bool
	Duration   time.Duration
}

// Engine converts documents through LibreOffice in headless mode, one
// subprocess per job. No converter state is shared across invocations: every
// job runs with its own profile and output directory.
type Engine struct {
	soffice        string
	workDir        string
	defaultTimeout time.Duration
}

// New creates a conversion engine. soffice is the LibreOffice binary path,
// workDir hosts per-job isolated workspaces.
func New(soffice, workDir string, defaultTimeout time.Duration) *Engine {
	if soffice == "" {
		soffice = "libreoffice"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 60 * time.Second
	}
	return &Engine{soffice: soffice, workDir: workDir, defaultTimeout: defaultTimeout}
}

// CheckInstallation verifies LibreOffice is available.
func (e *Engine) CheckInstallation() error {
	out, err := exec.Command(e.soffice, "--version").Output()
	if err != nil {
		return fmt.Errorf("LibreOffice not found at %q: %w", e.soffice, err)
	}
	log.Info().Str("version", strings.TrimSpace(string(out))).Msg("LibreOffice found")
	return nil
}

// Convert converts the document described by job. Plain-text sources headed
// for a text target never spawn the external engine; everything else runs a
// single time-bounded soffice subprocess in an isolated workspace.
func (e *Engine) Convert(ctx context.Context, job Job) Result {
	start := time.Now()

	spec, ok := convertTo[job.Target]
	if !ok {
		return Result{Error: fmt.Sprintf("unsupported target format: %s", job.Target), Duration: time.Since(start)}
	}

	if err := validateInput(job.InputPath); err != nil {
		return Result{Error: fmt.Sprintf("input validation failed: %v", err), Duration: time.Since(start)}
	}

	outputDir := job.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(job.InputPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{Error: fmt.Sprintf("create output directory: %v", err), Duration: time.Since(start)}
	}

	// Direct fast path: a text-like source converting to text is a read plus
	// a re-encode, not a job for the external engine.
	if job.Target == TargetText && job.Info != nil && job.Info.DirectText {
		return e.directText(job.InputPath, outputDir, start)
	}

	// Per-job isolated workspace: soffice profile plus staging output dir.
	workspace := filepath.Join(e.workDir, "docextract_"+uuid.New().String())
	profileDir := filepath.Join(workspace, "profile")
	stageDir := filepath.Join(workspace, "out")
	for _, d := range []string{profileDir, stageDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Result{Error: fmt.Sprintf("create workspace: %v", err), Duration: time.Since(start)}
		}
	}
	defer os.RemoveAll(workspace)

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	cmd := exec.Command(
		e.soffice,
		fmt.Sprintf("-env:UserInstallation=file://%s", profileDir),
		"--headless",
		"--convert-to", spec.arg,
		"--outdir", stageDir,
		job.InputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("conversion command")

	if err := cmd.Start(); err != nil {
		return Result{Error: fmt.Sprintf("start converter: %v", err), Duration: time.Since(start)}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return Result{
				Error:    fmt.Sprintf("conversion failed: %v: %s", err, strings.TrimSpace(stderr.String())),
				Duration: time.Since(start),
			}
		}
	case <-time.After(timeout):
		reap(cmd, done)
		return Result{
			Error:    fmt.Sprintf("conversion timeout after %v", timeout),
			TimedOut: true,
			Duration: time.Since(start),
		}
	case <-ctx.Done():
		// Caller abandoned the request; the child still gets reaped.
		reap(cmd, done)
		return Result{
			Error:    fmt.Sprintf("conversion canceled: %v", ctx.Err()),
			Duration: time.Since(start),
		}
	}

	staged, err := findOutput(stageDir, spec.ext)
	if err != nil {
		return Result{
			Error:    fmt.Sprintf("output file not created: %v: %s", err, strings.TrimSpace(stderr.String())),
			Duration: time.Since(start),
		}
	}

	stem := strings.TrimSuffix(filepath.Base(job.InputPath), filepath.Ext(job.InputPath))
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s%s", stem, job.Target, spec.ext))
	if err := moveFile(staged, outputPath); err != nil {
		return Result{Error: fmt.Sprintf("move output: %v", err), Duration: time.Since(start)}
	}

	res := Result{Success: true, OutputPath: outputPath, Duration: time.Since(start)}
	if job.Target == TargetPDF {
		if n, err := pdfPageCount(outputPath); err != nil {
			log.Warn().Err(err).Str("file", outputPath).Msg("could not count pages of produced PDF")
		} else {
			res.PageCount = n
		}
	}

	log.Info().Str("output", outputPath).Dur("duration", res.Duration).Msg("conversion successful")
	return res
}

// ExtractText returns recovered text for a document, choosing the cheapest
// route: direct read for text-like sources, MuPDF for PDFs, in-process
// readers for OOXML Word and Excel, and a convert-to-text round trip through
// the engine for everything else (legacy binary Office included). A failed
// fast path falls back to the engine rather than failing the document.
func (e *Engine) ExtractText(ctx context.Context, path string, info *filetype.Info) (textio.Recovered, error) {
	if info != nil {
		if info.DirectText {
			return textio.ReadFile(path)
		}
		switch {
		case info.Kind == filetype.KindPDF:
			text, err := extractPDFText(path)
			if err == nil {
				return textio.Recovered{Text: text, Encoding: "utf-8"}, nil
			}
			log.Warn().Err(err).Str("file", path).Msg("pdf text extraction failed, falling back to conversion")
		case info.Kind == filetype.KindWord && info.Extension == ".docx":
			text, err := extractDocxText(path)
			if err == nil {
				return textio.Recovered{Text: text, Encoding: "utf-8"}, nil
			}
			log.Warn().Err(err).Str("file", path).Msg("docx text extraction failed, falling back to conversion")
		case info.Kind == filetype.KindExcel && info.Extension == ".xlsx":
			text, err := extractExcelText(path)
			if err == nil {
				return textio.Recovered{Text: text, Encoding: "utf-8"}, nil
			}
			log.Warn().Err(err).Str("file", path).Msg("workbook text extraction failed, falling back to conversion")
		}
	}

	res := e.Convert(ctx, Job{InputPath: path, Info: info, Target: TargetText, OutputDir: filepath.Join(e.workDir, "docextract_text_"+uuid.New().String())})
	if !res.Success {
		return textio.Recovered{}, fmt.Errorf("convert to text: %s", res.Error)
	}
	defer os.RemoveAll(filepath.Dir(res.OutputPath))
	return textio.ReadFile(res.OutputPath)
}

// directText reads a text-like source and writes it back out as UTF-8.
func (e *Engine) directText(inputPath, outputDir string, start time.Time) Result {
	rec, err := textio.ReadFile(inputPath)
	if err != nil {
		return Result{Error: fmt.Sprintf("read text source: %v", err), Duration: time.Since(start)}
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, stem+"_text.txt")
	if err := os.WriteFile(outputPath, []byte(rec.Text), 0o644); err != nil {
		return Result{Error: fmt.Sprintf("write text output: %v", err), Duration: time.Since(start)}
	}

	log.Debug().Str("input", inputPath).Str("encoding", rec.Encoding).Msg("direct text extraction, engine bypassed")
	return Result{Success: true, OutputPath: outputPath, Duration: time.Since(start)}
}

// reap kills the child and waits for it so no orphan survives the job.
func reap(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	<-done
}

func validateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file")
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file not readable: %w", err)
	}
	return f.Close()
}

func findOutput(dir, ext string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s output in %s", ext, dir)
	}
	return matches[0], nil
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
