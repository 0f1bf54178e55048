package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"
	ConfigPathEnvVar  = "SCREEN_OCR_OVERLAY"
	EngineEnvVar      = "OCR_ENGINE"
	EngineTesseract   = "tesseract"
	EngineLLM         = "llm"
	DefaultHotkey     = "Ctrl+Alt+O"

	defaultDeadlineSec = 20
)

type LoadOptions struct {
	APIKeyPathOverride string
	EngineOverride     string
}

type Config struct {
	EnableFileLogging bool
	// Hotkey is an alternative trigger for the floating button. Empty disables it.
	Hotkey string
	Engine string
	// OCRDeadlineSec bounds a single recognition call. Zero means no deadline.
	OCRDeadlineSec int

	// Used only by the llm engine.
	APIKey     string
	APIKeyPath string
	Model      string
	Providers  []string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env in the executable directory
	// 2) otherwise the file named by SCREEN_OCR_OVERLAY
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	var providers []string
	if providersStr := os.Getenv("PROVIDERS"); providersStr != "" {
		for _, provider := range strings.Split(providersStr, ",") {
			if trimmed := strings.TrimSpace(provider); trimmed != "" {
				providers = append(providers, trimmed)
			}
		}
	}

	deadlineSec := defaultDeadlineSec
	if v := strings.TrimSpace(os.Getenv("OCR_DEADLINE_SEC")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid OCR_DEADLINE_SEC %q", v)
		}
		deadlineSec = n
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkey:            resolveHotkey(os.Getenv("HOTKEY")),
		Engine:            resolveEngineValue(opts),
		OCRDeadlineSec:    deadlineSec,
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		Model:             os.Getenv("MODEL"),
		Providers:         providers,
	}

	return cfg, nil
}

// Validate reports configuration that would make the selected engine unusable.
func (c *Config) Validate() error {
	if c.Engine != EngineLLM {
		return nil
	}
	if c.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required for the llm engine. Checked key file %s and OPENROUTER_API_KEY env var", c.APIKeyPath)
	}
	if c.Model == "" {
		return fmt.Errorf("MODEL is required for the llm engine. Please set it in your .env file")
	}
	return nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

func resolveHotkey(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "":
		return DefaultHotkey
	case "none", "off":
		return ""
	default:
		return value
	}
}

func resolveEngine(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case EngineLLM, "openrouter":
		return EngineLLM
	default:
		return EngineTesseract
	}
}

func resolveEngineValue(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EngineOverride); override != "" {
		return resolveEngine(override)
	}
	return resolveEngine(os.Getenv(EngineEnvVar))
}
