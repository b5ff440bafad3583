package config

import (
	"os"
	"strconv"
)

// applyEnv overrides file values with environment variables when set.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TODO_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getEnvBool("TODO_DEV_MODE"); v != nil {
		cfg.Server.DevMode = *v
	}
	if v := os.Getenv("TODO_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := getEnvInt("TODO_DEFAULT_READ_LIMIT"); v > 0 {
		cfg.Engine.DefaultReadLimit = v
	}
	if v := os.Getenv("TODO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getEnvBool("TODO_DEBUG"); v != nil {
		cfg.Logging.Debug = *v
	}
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

func getEnvBool(key string) *bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		b := true
		return &b
	case "0", "false", "no":
		b := false
		return &b
	}
	return nil
}
