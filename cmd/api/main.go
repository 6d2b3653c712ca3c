package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lookanalyst/lookanalyst"
	"github.com/lookanalyst/lookanalyst/api"
	"github.com/lookanalyst/lookanalyst/models"
	"github.com/lookanalyst/lookanalyst/storage"
	"github.com/lookanalyst/lookanalyst/tracing"
	"github.com/lookanalyst/lookanalyst/vision"
)

func main() {
	app := &cli.App{
		Name:    "lookanalyst",
		Usage:   "clothing recognition API for uploaded images, image URLs, and Pinterest pins",
		Version: api.Version,
		Flags:   globalFlags(),
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:      "extract",
				Usage:     "resolve a Pinterest pin to its image URL and print it as JSON",
				ArgsUsage: "<pin-url>",
				Action:    extract,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "port", Value: "3000", Usage: "server port", EnvVars: []string{"PORT"}},
		&cli.StringFlag{Name: "upload-dir", Value: "uploads", Usage: "directory for staged images (local backend)", EnvVars: []string{"UPLOAD_DIR"}},
		&cli.Int64Flag{Name: "max-file-size", Value: 8 * 1024 * 1024, Usage: "maximum upload size in bytes", EnvVars: []string{"MAX_FILE_SIZE"}},
		&cli.StringFlag{Name: "frontend-url", Value: "http://localhost:3000", Usage: "public base URL of the service", EnvVars: []string{"FRONTEND_URL"}},
		&cli.StringFlag{Name: "gemini-api-key", Usage: "Gemini API key", EnvVars: []string{"GEMINI_API_KEY"}},
		&cli.StringFlag{Name: "gemini-model", Value: vision.DefaultModel, Usage: "Gemini model", EnvVars: []string{"GEMINI_MODEL"}},
		&cli.StringFlag{Name: "policy-file", Usage: "YAML host policy table (defaults to the built-in Pinterest policy)", EnvVars: []string{"POLICY_FILE"}},
		&cli.StringFlag{Name: "staging-backend", Value: "local", Usage: "where images are staged: local or s3", EnvVars: []string{"STAGING_BACKEND"}},
		&cli.StringFlag{Name: "s3-endpoint", Usage: "custom S3 endpoint (MinIO, Spaces)", EnvVars: []string{"S3_ENDPOINT"}},
		&cli.StringFlag{Name: "s3-region", Usage: "S3 region", EnvVars: []string{"S3_REGION"}},
		&cli.StringFlag{Name: "s3-bucket", Usage: "S3 bucket", EnvVars: []string{"S3_BUCKET"}},
		&cli.StringFlag{Name: "s3-prefix", Value: "staging", Usage: "S3 key prefix", EnvVars: []string{"S3_PREFIX"}},
		&cli.StringFlag{Name: "s3-access-key-id", Usage: "S3 access key ID", EnvVars: []string{"S3_ACCESS_KEY_ID"}},
		&cli.StringFlag{Name: "s3-secret-access-key", Usage: "S3 secret access key", EnvVars: []string{"S3_SECRET_ACCESS_KEY"}},
		&cli.BoolFlag{Name: "s3-path-style", Usage: "use path-style S3 addressing", EnvVars: []string{"S3_USE_PATH_STYLE"}},
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn, or error", EnvVars: []string{"LOG_LEVEL"}},
		&cli.BoolFlag{Name: "disable-cors", Usage: "disable CORS headers", EnvVars: []string{"DISABLE_CORS"}},
	}
}

// setupLogger installs a JSON slog logger on stdout
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	}))
	slog.SetDefault(logger)
	return logger
}

// pipelineConfig builds the pipeline configuration from flags
func pipelineConfig(c *cli.Context) (lookanalyst.Config, error) {
	config := lookanalyst.DefaultConfig()
	config.MaxUploadBytes = c.Int64("max-file-size")
	if config.MaxUploadBytes <= 0 {
		return config, fmt.Errorf("max-file-size must be positive, got %d", config.MaxUploadBytes)
	}

	if path := c.String("policy-file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return config, fmt.Errorf("failed to open policy file: %w", err)
		}
		defer f.Close()

		policies, err := lookanalyst.LoadPolicies(f)
		if err != nil {
			return config, fmt.Errorf("failed to load policy file %s: %w", path, err)
		}
		config.Policies = policies
	}

	return config, nil
}

// newStager creates the configured staging backend
func newStager(ctx context.Context, c *cli.Context) (storage.Stager, error) {
	switch strings.ToLower(c.String("staging-backend")) {
	case "", "local":
		return storage.NewLocal(storage.Config{BasePath: c.String("upload-dir")})
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Endpoint:        c.String("s3-endpoint"),
			Region:          c.String("s3-region"),
			Bucket:          c.String("s3-bucket"),
			Prefix:          c.String("s3-prefix"),
			AccessKeyID:     c.String("s3-access-key-id"),
			SecretAccessKey: c.String("s3-secret-access-key"),
			UsePathStyle:    c.Bool("s3-path-style"),
		})
	default:
		return nil, fmt.Errorf("unknown staging backend %q", c.String("staging-backend"))
	}
}

func serve(c *cli.Context) error {
	logger := setupLogger(c.String("log-level"))
	logger.Info("lookanalyst service initializing", "version", api.Version)

	ctx := c.Context

	tp, err := tracing.InitTracer(ctx, "lookanalyst")
	switch {
	case errors.Is(err, tracing.ErrNotConfigured):
		logger.Info("tracing disabled, OTEL_EXPORTER_OTLP_ENDPOINT not set")
	case err != nil:
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	default:
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	config, err := pipelineConfig(c)
	if err != nil {
		return err
	}

	stager, err := newStager(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to initialize staging: %w", err)
	}

	analyzer, err := vision.NewGemini(ctx, vision.GeminiConfig{
		APIKey: c.String("gemini-api-key"),
		Model:  c.String("gemini-model"),
	})
	if err != nil {
		return err
	}

	pipeline := lookanalyst.New(config, stager, analyzer)
	server := api.NewServer(api.Config{
		Addr:        ":" + c.String("port"),
		CORSEnabled: !c.Bool("disable-cors"),
		FrontendURL: c.String("frontend-url"),
	}, pipeline)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("lookanalyst service starting",
			"port", c.String("port"),
			"staging_backend", c.String("staging-backend"),
			"model", analyzer.Model(),
			"max_file_size", config.MaxUploadBytes,
			"policies", len(config.Policies),
			"cors_enabled", !c.Bool("disable-cors"),
		)

		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// extract resolves a pin without staging or analyzing anything
func extract(c *cli.Context) error {
	setupLogger(c.String("log-level"))

	if c.NArg() != 1 {
		return cli.Exit("usage: lookanalyst extract <pin-url>", 2)
	}

	config, err := pipelineConfig(c)
	if err != nil {
		return err
	}

	pipeline := lookanalyst.New(config, nil, nil)
	result, err := pipeline.ResolvePage(c.Context, models.ExtractionRequest{PageURL: c.Args().First()})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
