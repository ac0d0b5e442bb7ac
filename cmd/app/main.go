package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/docextract/internal/config"
	"github.com/local/docextract/internal/converter"
	logpkg "github.com/local/docextract/internal/logger"
	"github.com/local/docextract/internal/metrics"
	"github.com/local/docextract/internal/pipeline"
	"github.com/local/docextract/internal/prompt"
)

// Operational entry point: runs one conversion or extraction against a file.
// The HTTP/CRUD layer that normally drives the pipeline lives outside this
// repository.
func main() {
	var (
		filePath     = flag.String("file", "", "path to the source document")
		templatePath = flag.String("template", "", "path to an extraction template JSON file")
		target       = flag.String("target", "", "conversion target format (text|pdf|csv|html); ignored when -template is set")
		metricsAddr  = flag.String("metrics-addr", "", "address to serve Prometheus metrics on (e.g. :9090); empty disables")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Str("addr", *metricsAddr).Msg("metrics listener failed")
			}
		}()
	}

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	doc := pipeline.SourceDocument{Path: *filePath, Filename: *filePath}

	if *templatePath != "" {
		p, err := pipeline.New(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("pipeline construction failed")
		}

		tpl, err := loadTemplate(*templatePath)
		if err != nil {
			log.Fatal().Err(err).Str("template", *templatePath).Msg("failed to load template")
		}

		res := p.Extract(ctx, doc, tpl)
		printJSON(res)
		if !res.Success {
			os.Exit(1)
		}
		return
	}

	if *target == "" {
		log.Fatal().Msg("either -template or -target is required")
	}

	engine := converter.New(cfg.Conversion.SofficePath, cfg.Conversion.WorkDir, cfg.Conversion.Timeout)
	if err := engine.CheckInstallation(); err != nil {
		log.Fatal().Err(err).Msg("converter unavailable")
	}

	p := pipeline.NewWithClient(cfg, nil)
	res := p.Convert(ctx, doc, pipeline.Format(*target))
	printJSON(res)
	if !res.Success {
		os.Exit(1)
	}
}

func loadTemplate(path string) (prompt.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return prompt.Template{}, err
	}
	var tpl prompt.Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return prompt.Template{}, fmt.Errorf("parse template: %w", err)
	}
	return tpl, nil
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
