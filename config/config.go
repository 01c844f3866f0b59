package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds process-level settings sourced from the environment.
// Runtime-tunable AI settings live in the database instead (storage.Settings).
type Config struct {
	Port   string
	DBPath string

	LocationName     string // optional override; empty means auto-detect
	FallbackLocation string
	Timezone         string

	MinArticlesPerRun int
	ExtraFeedURLs     []string

	ScheduleMorning string // "HH:MM"
	ScheduleNoon    string
	ScheduleEvening string

	OllamaBaseURL string
	OllamaModel   string
	CohereAPIKey  string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	S3Bucket       string
	S3Region       string
	S3Profile      string
	S3Prefix       string
	S3UsePathStyle bool
}

// Load reads configuration from the environment. Call godotenv.Load first.
func Load() Config {
	return Config{
		Port:   GetEnvOrDefault("PORT", "8080"),
		DBPath: GetEnvOrDefault("DB_PATH", "localwire.db"),

		LocationName:     strings.TrimSpace(os.Getenv("LOCATION_NAME")),
		FallbackLocation: GetEnvOrDefault("FALLBACK_LOCATION", "Schenectady, NY"),
		Timezone:         GetEnvOrDefault("TZ", "America/New_York"),

		MinArticlesPerRun: getEnvInt("MIN_ARTICLES_PER_RUN", 10),
		ExtraFeedURLs:     splitList(os.Getenv("FEED_EXTRA_URLS")),

		ScheduleMorning: GetEnvOrDefault("SCHEDULE_MORNING", "07:30"),
		ScheduleNoon:    GetEnvOrDefault("SCHEDULE_NOON", "12:00"),
		ScheduleEvening: GetEnvOrDefault("SCHEDULE_EVENING", "19:30"),

		OllamaBaseURL: GetEnvOrDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   GetEnvOrDefault("OLLAMA_MODEL", "llama3.2"),
		CohereAPIKey:  strings.TrimSpace(os.Getenv("COHERE_API_KEY")),

		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASS"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   GetEnvOrDefault("KAFKA_TOPIC", "localwire.harvest"),

		S3Bucket:       strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
		S3Prefix:       normalizePrefix(os.Getenv("S3_PREFIX")),
		S3UsePathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
	}
}

// GetEnvOrDefault returns the env value or a default when unset/empty.
func GetEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
