package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"time"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/ocr"
)

const defaultPingTimeout = 10 * time.Second

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// PingTimeout bounds the startup check of the llm engine.
	PingTimeout time.Duration
}

// Bootstrap loads configuration, sets up logging and builds the recognizer.
// The llm engine is pinged once so bad credentials fail at startup rather
// than on the first tap.
func Bootstrap(opts Options) (*config.Config, *ocr.Recognizer, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	rec, err := ocr.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OCR engine: %w", err)
	}

	if eng, ok := rec.Engine().(*ocr.LLMEngine); ok {
		timeout := opts.PingTimeout
		if timeout <= 0 {
			timeout = defaultPingTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := eng.Client().Ping(ctx); err != nil {
			_ = rec.Close()
			return nil, nil, fmt.Errorf("startup check failed: %w", err)
		}
		log.Printf("LLM ping succeeded (model %s, key %s)", cfg.Model, logutil.RedactKey(cfg.APIKey))
	}

	log.Printf("OCR engine: %s, deadline: %ds", rec.Engine().Name(), cfg.OCRDeadlineSec)
	return cfg, rec, nil
}
