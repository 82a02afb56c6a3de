package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

const (
	EngineSpacy  = "spacy"
	EngineConllu = "conllu"
)

type AppConfig struct {
	Env      Environment
	LogLevel string
}

type CorpusConfig struct {
	Dir      string
	Pattern  string
	FailFast bool
}

type ReportConfig struct {
	Path         string
	Format       string
	WriteRetries int
	RetryDelayMs int
}

type PythonConfig struct {
	ConfigDir              string
	ProcessStartupTimeout  int
	ProcessShutdownTimeout int
}

type NlpConfig struct {
	Engine    string
	Model     string
	MaxLength int
	Cache     bool
	CacheSize int
	Python    PythonConfig
}

type Config struct {
	App    AppConfig
	Corpus CorpusConfig
	Report ReportConfig
	Nlp    NlpConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	appEnv := getEnv("APP_ENV", "development")
	env := parseEnvironment(appEnv)

	logLevel := getLogLevel(env)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultPythonDir := filepath.Join(homeDir, ".config", "lexmetrics")

	return &Config{
		App: AppConfig{
			Env:      env,
			LogLevel: logLevel,
		},
		Corpus: CorpusConfig{
			Dir:      getEnv("CORPUS_DIR", "."),
			Pattern:  getEnv("CORPUS_PATTERN", "*.txt"),
			FailFast: getEnvBool("PROCESS_FAIL_FAST", false),
		},
		Report: ReportConfig{
			Path:         getEnv("REPORT_PATH", "corpus_metrics.xlsx"),
			Format:       strings.ToLower(getEnv("REPORT_FORMAT", "")),
			WriteRetries: getEnvInt("REPORT_WRITE_RETRIES", 3),
			RetryDelayMs: getEnvInt("REPORT_RETRY_DELAY_MS", 500),
		},
		Nlp: NlpConfig{
			Engine:    strings.ToLower(getEnv("NLP_ENGINE", EngineSpacy)),
			Model:     getEnv("NLP_MODEL", "en_core_web_md"),
			MaxLength: getEnvInt("NLP_MAX_LENGTH", 2_000_000),
			Cache:     getEnvBool("NLP_CACHE", false),
			CacheSize: getEnvInt("NLP_CACHE_SIZE", 16),
			Python: PythonConfig{
				ConfigDir:              getEnv("NLP_PYTHON_CONFIG_DIR", defaultPythonDir),
				ProcessStartupTimeout:  getEnvInt("NLP_PYTHON_STARTUP_TIMEOUT", 120),
				ProcessShutdownTimeout: getEnvInt("NLP_PYTHON_SHUTDOWN_TIMEOUT", 5),
			},
		},
	}, nil
}

func (c *Config) Validate() error {
	if c.Corpus.Dir == "" {
		return fmt.Errorf("CORPUS_DIR is required")
	}
	if c.Corpus.Pattern == "" {
		return fmt.Errorf("CORPUS_PATTERN is required")
	}
	if c.Report.Path == "" {
		return fmt.Errorf("REPORT_PATH is required")
	}
	if c.Report.WriteRetries < 0 {
		return fmt.Errorf("REPORT_WRITE_RETRIES must not be negative, got %d", c.Report.WriteRetries)
	}
	if c.Nlp.Cache && c.Nlp.CacheSize <= 0 {
		return fmt.Errorf("NLP_CACHE_SIZE must be positive when NLP_CACHE is enabled, got %d", c.Nlp.CacheSize)
	}
	switch c.Nlp.Engine {
	case EngineSpacy:
		if c.Nlp.Model == "" {
			return fmt.Errorf("NLP_MODEL is required for the spacy engine")
		}
		if c.Nlp.Python.ProcessStartupTimeout <= 0 {
			return fmt.Errorf("NLP_PYTHON_STARTUP_TIMEOUT must be positive")
		}
	case EngineConllu:
	default:
		return fmt.Errorf("unknown NLP_ENGINE %q (want %q or %q)", c.Nlp.Engine, EngineSpacy, EngineConllu)
	}
	return nil
}

func parseEnvironment(envStr string) Environment {
	env := Environment(strings.ToLower(envStr))

	switch env {
	case Development, Production:
		return env
	default:
		return Development
	}
}

func getLogLevel(env Environment) string {
	if env == Production {
		return getEnv("APP_LOG_LEVEL", "info")
	}

	return getEnv("APP_LOG_LEVEL", "debug")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
