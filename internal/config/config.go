package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DataDir     string
	PostgresDSN string
	Gemini      GeminiConfig
	Artifact    ArtifactConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type ArtifactConfig struct {
	// S3 is used when an endpoint is configured; otherwise artifacts go
	// to the local Dir.
	Dir       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	dataDir := firstNonEmpty(strings.TrimSpace(os.Getenv("FARMWISE_DATA_DIR")), "data")

	return &Config{
		Port:        *port,
		Env:         env,
		DataDir:     dataDir,
		PostgresDSN: strings.TrimSpace(os.Getenv("FARMWISE_PG_DSN")),
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:  firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-3-flash-preview"),
		},
		Artifact: loadArtifactConfig(dataDir),
	}, nil
}

func loadArtifactConfig(dataDir string) ArtifactConfig {
	return ArtifactConfig{
		Dir:       firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_DIR")), dataDir+"/artifacts"),
		Endpoint:  strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "farmwise-artifacts"),
		UseSSL:    resolveArtifactUseSSL(),
	}
}

func resolveArtifactUseSSL() bool {
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
