package config

import (
	"os"
	"strconv"
	"time"
)

// AppConfig содержит настройки клиента из переменных окружения
type AppConfig struct {
	API     APIConfig
	Log     LogConfig
	Storage StorageConfig
	Speech  SpeechConfig
	Media   MediaConfig
	// ConfigPath - путь к YAML конфигурации интервью
	ConfigPath  string
	MetricsAddr string
}

type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Token     string
	TokenFile string
	// ListCacheSeconds - сколько секунд кешировать список интервью
	ListCacheSeconds int
}

type LogConfig struct {
	FilePath    string
	Environment string
}

type StorageConfig struct {
	ResultsDir string
}

type SpeechConfig struct {
	Enabled bool
	// TTSCommand - команда синтеза речи, текст передается последним аргументом
	TTSCommand     string
	TranscriptPipe string
	RestartDelay   time.Duration
}

type MediaConfig struct {
	CaptureCommand string
}

// IsProduction сообщает, запущен ли клиент в production окружении
func (c LogConfig) IsProduction() bool {
	return c.Environment == "production"
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:   getEnv("INTERVIEW_API_URL", "http://localhost:8001"),
			Timeout:   getEnvAsDuration("INTERVIEW_API_TIMEOUT", 60*time.Second),
			Token:     getEnv("INTERVIEW_API_TOKEN", ""),
			TokenFile: getEnv("INTERVIEW_API_TOKEN_FILE", ""),

			ListCacheSeconds: getEnvAsInt("INTERVIEW_LIST_CACHE_SECONDS", 30),
		},
		Log: LogConfig{
			FilePath:    getEnv("LOG_FILE_PATH", "interview-coach.log"),
			Environment: getEnv("GO_ENV", "development"),
		},
		Storage: StorageConfig{
			ResultsDir: getEnv("INTERVIEW_RESULTS_DIR", "results"),
		},
		Speech: SpeechConfig{
			Enabled:        getEnvAsBool("SPEECH_ENABLED", true),
			TTSCommand:     getEnv("TTS_COMMAND", ""),
			TranscriptPipe: getEnv("STT_TRANSCRIPT_PIPE", ""),
			RestartDelay:   getEnvAsDuration("SPEECH_RESTART_DELAY", 100*time.Millisecond),
		},
		Media: MediaConfig{
			CaptureCommand: getEnv("CAPTURE_COMMAND", ""),
		},
		ConfigPath:  getEnv("INTERVIEW_CONFIG", "config/interview.yaml"),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
