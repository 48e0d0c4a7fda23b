package main

import (
	"context"
	"log"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"farmwise/internal/app"
	"farmwise/internal/artifact"
	"farmwise/internal/config"
	"farmwise/internal/handler"
	"farmwise/internal/llm"
	"farmwise/internal/report"
	"farmwise/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Gemini.APIKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	ctx := context.Background()

	client, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("gemini client: %v", err)
	}
	defer client.Close()

	wrapped := llm.Wrap(client,
		llm.Logging(),
		llm.RateLimitFromEnv("LLM", "GEMINI"),
	)

	st := store.NewFromDSN(cfg.DataDir, cfg.PostgresDSN)

	artifacts, err := newArtifactStore(cfg.Artifact)
	if err != nil {
		log.Fatalf("artifact store: %v", err)
	}

	svc := app.New(wrapped, st, report.NewExporter(artifacts))
	h := handler.NewMux(handler.NewService(svc))

	log.Printf("Starting API server on %s (env=%s, model=%s)", cfg.Port, cfg.Env, cfg.Gemini.Model)
	log.Fatal(http.ListenAndServe(cfg.Port, h2c.NewHandler(h, &http2.Server{})))
}

func newArtifactStore(cfg config.ArtifactConfig) (artifact.Store, error) {
	if cfg.Endpoint != "" {
		return artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
	}
	return artifact.NewFileStore(cfg.Dir)
}
