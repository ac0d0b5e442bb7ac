package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/docextract/internal/ai"
	"github.com/local/docextract/internal/config"
	"github.com/local/docextract/internal/converter"
	"github.com/local/docextract/internal/filetype"
	"github.com/local/docextract/internal/metrics"
	"github.com/local/docextract/internal/prompt"
	"github.com/local/docextract/internal/reconcile"
	"github.com/local/docextract/internal/textio"
)

// Pipeline runs the document-to-structured-data flow: detect, convert,
// recover text, compose prompt, call the LLM, reconcile the response.
// It holds no shared mutable state; invocations are independent and safe to
// run concurrently.
type Pipeline struct {
	cfg    *config.Config
	engine *converter.Engine
	client ai.Client
}

// New constructs a pipeline from configuration, selecting the active LLM
// provider. Provider misconfiguration surfaces here, before any document is
// touched.
func New(cfg *config.Config) (*Pipeline, error) {
	client, err := ai.New(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return NewWithClient(cfg, client), nil
}

// NewWithClient constructs a pipeline around an injected client. Used by
// tests and callers that manage provider construction themselves. A nil
// client leaves Convert usable; Extract then fails with
// KindProviderNotConfigured.
func NewWithClient(cfg *config.Config, client ai.Client) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		engine: converter.New(cfg.Conversion.SofficePath, cfg.Conversion.WorkDir, cfg.Conversion.Timeout),
		client: client,
	}
}

// Convert converts a source document to the target format.
func (p *Pipeline) Convert(ctx context.Context, doc SourceDocument, target Format) ConversionResult {
	start := time.Now()

	path, cleanup, err := p.materialize(doc)
	if err != nil {
		return ConversionResult{Kind: KindConversionFailed, Error: err.Error(), Duration: time.Since(start)}
	}
	defer cleanup()

	info, err := p.admit(path)
	if err != nil {
		res := ConversionResult{Kind: KindUnsupportedFormat, Error: err.Error(), Duration: time.Since(start)}
		metrics.ObserveConversion(string(target), string(res.Kind), res.Duration)
		return res
	}

	job := converter.Job{InputPath: path, Info: info, Target: target}
	if doc.Path == "" {
		// bytes-sourced input lives in a workspace that is removed on return;
		// the artifact must land outside it
		job.OutputDir = filepath.Join(p.cfg.Conversion.WorkDir, "docextract_out_"+uuid.New().String())
	}
	cr := p.engine.Convert(ctx, job)

	res := ConversionResult{
		Success:    cr.Success,
		OutputPath: cr.OutputPath,
		PageCount:  cr.PageCount,
		Error:      cr.Error,
		Duration:   cr.Duration,
	}
	switch {
	case cr.Success:
		metrics.ObserveConversion(string(target), "success", cr.Duration)
	case cr.TimedOut:
		res.Kind = KindConversionTimeout
		metrics.ObserveConversion(string(target), string(res.Kind), cr.Duration)
	default:
		res.Kind = KindConversionFailed
		metrics.ObserveConversion(string(target), string(res.Kind), cr.Duration)
	}
	return res
}

// Extract runs the full extraction flow against a template and returns a
// typed result. It never retries; retry policy belongs to the caller.
func (p *Pipeline) Extract(ctx context.Context, doc SourceDocument, tpl prompt.Template) ExtractionResult {
	start := time.Now()

	fail := func(kind Kind, msg string) ExtractionResult {
		metrics.IncExtraction(string(kind))
		res := ExtractionResult{Kind: kind, Error: msg, Duration: time.Since(start)}
		if p.client != nil {
			res.Model = p.client.Model()
		}
		return res
	}

	if p.client == nil {
		return fail(KindProviderNotConfigured, "no LLM provider configured")
	}

	path, cleanup, err := p.materialize(doc)
	if err != nil {
		return fail(KindConversionFailed, err.Error())
	}
	defer cleanup()

	info, err := p.admit(path)
	if err != nil {
		return fail(KindUnsupportedFormat, err.Error())
	}

	recovered, kind, err := p.documentText(ctx, path, info, tpl.PreferredFormat)
	if err != nil {
		return fail(kind, err.Error())
	}
	if recovered.Degraded {
		metrics.IncDegradedDecode()
		log.Warn().Str("file", doc.Filename).Msg("text recovery degraded, continuing with lossy text")
	}

	system, user, err := prompt.Compose(tpl, recovered.Text)
	if err != nil {
		return fail(KindTemplateInvalid, err.Error())
	}

	llmStart := time.Now()
	resp, err := p.client.Complete(ctx, ai.Request{
		System:      system,
		User:        user,
		Temperature: p.cfg.Provider.Temperature,
		MaxTokens:   p.cfg.Provider.MaxTokens,
	})
	llmDur := time.Since(llmStart)
	if err != nil {
		metrics.ObserveProvider(p.client.Name(), p.client.Model(), "error", llmDur)
		return fail(classifyExtraction(err), err.Error())
	}
	metrics.ObserveProvider(p.client.Name(), p.client.Model(), "success", llmDur)

	data, err := p.reconcile(resp.Text, tpl.Schema)
	if err != nil {
		return fail(classifyExtraction(err), err.Error())
	}

	metrics.IncExtraction("success")
	log.Info().
		Str("template", tpl.Name).
		Str("model", resp.Model).
		Dur("llm_duration", llmDur).
		Dur("total_duration", time.Since(start)).
		Bool("degraded", recovered.Degraded).
		Msg("extraction successful")

	return ExtractionResult{
		Success:  true,
		Data:     data,
		Model:    resp.Model,
		Duration: time.Since(start),
		Degraded: recovered.Degraded,
	}
}

// documentText produces the text handed to the prompt compositor. The
// template's preferred format decides whether the document is converted first
// or read through the cheap text path.
func (p *Pipeline) documentText(ctx context.Context, path string, info *filetype.Info, preferred string) (textio.Recovered, Kind, error) {
	if preferred == "" || preferred == string(FormatText) {
		rec, err := p.engine.ExtractText(ctx, path, info)
		if err != nil {
			return textio.Recovered{}, KindConversionFailed, err
		}
		return rec, "", nil
	}

	cr := p.engine.Convert(ctx, converter.Job{InputPath: path, Info: info, Target: Format(preferred)})
	if !cr.Success {
		if cr.TimedOut {
			return textio.Recovered{}, KindConversionTimeout, fmt.Errorf("conversion timeout: %s", cr.Error)
		}
		return textio.Recovered{}, KindConversionFailed, fmt.Errorf("conversion failed: %s", cr.Error)
	}
	defer os.Remove(cr.OutputPath)

	outInfo, err := filetype.Detect(cr.OutputPath)
	if err != nil {
		return textio.Recovered{}, classifyExtraction(err), err
	}
	rec, err := p.engine.ExtractText(ctx, cr.OutputPath, outInfo)
	if err != nil {
		return textio.Recovered{}, KindConversionFailed, err
	}
	return rec, "", nil
}

func (p *Pipeline) reconcile(raw string, schema map[string]any) (map[string]any, error) {
	if p.cfg.Extraction.StrictSchemaValidation {
		return reconcile.ReconcileStrict(raw, schema)
	}
	return reconcile.Reconcile(raw, schema)
}

// admit sniffs the document and enforces the accepted-MIME list and the size
// limit before any work is spent on it.
func (p *Pipeline) admit(path string) (*filetype.Info, error) {
	info, err := filetype.Detect(path)
	if err != nil {
		return nil, err
	}

	if accepted := p.cfg.Ingest.AcceptedMIMETypes; len(accepted) > 0 {
		found := false
		for _, m := range accepted {
			if info.MIMEType == m {
				found = true
				break
			}
		}
		if !found {
			return nil, &filetype.UnsupportedError{MIME: info.MIMEType}
		}
	}

	ok, err := filetype.SizeWithin(path, p.cfg.Ingest.MaxInputSizeMB)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &filetype.UnsupportedError{MIME: fmt.Sprintf("%s (exceeds %d MB size limit)", info.MIMEType, p.cfg.Ingest.MaxInputSizeMB)}
	}
	return info, nil
}

// materialize puts the document on disk if it arrived as bytes. The returned
// cleanup removes only what materialize created.
func (p *Pipeline) materialize(doc SourceDocument) (string, func(), error) {
	if doc.Path != "" {
		return doc.Path, func() {}, nil
	}
	if len(doc.Bytes) == 0 {
		return "", nil, fmt.Errorf("source document has neither path nor bytes")
	}

	dir := filepath.Join(p.cfg.Conversion.WorkDir, "docextract_in_"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create ingest dir: %w", err)
	}
	name := doc.Filename
	if name == "" {
		name = "document"
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, doc.Bytes, 0o644); err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("write ingest file: %w", err)
	}
	return path, func() { os.RemoveAll(dir) }, nil
}
