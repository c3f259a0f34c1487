package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Ai         AIConfig
	Journey    JourneyConfig
	Transcript TranscriptConfig
	Events     EventsConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	GoogleGemini      string
	LLMProvider       string // "ollama", "openai", "huggingface"
	LLMModel          string
	LLMBaseURL        string
	LLMApiKey         string
	LLMTimeout        time.Duration
}

type JourneyConfig struct {
	Classifier         string // "llm" or "rule"
	StrictTransitions  bool
	EndSessionReset    bool
	RetrievalTopK      int
	RetrievalThreshold float64
	PromptsFile        string
	SessionStore       string // "memory" or "redis"
	SessionTTL         time.Duration
}

type TranscriptConfig struct {
	Dir   string
	Sinks []string // "csv", "gorm"
}

type EventsConfig struct {
	NatsURL      string
	CatalogTopic string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GoogleGemini:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			LLMApiKey:         getEnv("LLM_API_KEY", ""),
			LLMTimeout:        time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Journey: JourneyConfig{
			Classifier:         getEnv("CLASSIFIER", "llm"),
			StrictTransitions:  getEnvAsBool("STRICT_TRANSITIONS", false),
			EndSessionReset:    getEnvAsBool("END_SESSION_FULL_RESET", false),
			RetrievalTopK:      getEnvAsInt("RETRIEVAL_TOP_K", 4),
			RetrievalThreshold: getEnvAsFloat("RETRIEVAL_THRESHOLD", 0),
			PromptsFile:        getEnv("PROMPTS_FILE", ""),
			SessionStore:       getEnv("SESSION_STORE", "memory"),
			SessionTTL:         time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		},
		Transcript: TranscriptConfig{
			Dir:   getEnv("TRANSCRIPT_DIR", "data"),
			Sinks: getEnvAsList("TRANSCRIPT_SINKS", []string{"csv"}),
		},
		Events: EventsConfig{
			NatsURL:      getEnv("NATS_URL", ""),
			CatalogTopic: getEnv("CATALOG_TOPIC", "INDEX_CATALOG_PRODUCT"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(strValue, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToLower(item))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
