package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/fathomcrm/fathom-backend/internal/logger"
)

// lookup reads key and reports whether it was set, logging the outcome
// once so the Get* helpers stay free of repeated nil-log guards.
func lookup(key string, log *logger.Logger) (string, bool) {
	val, ok := os.LookupEnv(key)
	if log == nil {
		return val, ok
	}
	if !ok {
		log.Debug("Environment variable not set, using default", "env_var", key)
	} else {
		log.Debug("Environment variable set", "env_var", key, "value", val)
	}
	return val, ok
}

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	val, ok := lookup(key, log)
	if !ok {
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	val, ok := lookup(key, log)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable is not an int, using default", "env_var", key, "value", val, "default", defaultVal)
		}
		return defaultVal
	}
	return i
}

// GetEnvAsBool accepts the usual truthy spellings; anything else falls
// back to the default rather than silently meaning false.
func GetEnvAsBool(key string, defaultVal bool, log *logger.Logger) bool {
	val, ok := lookup(key, log)
	if !ok {
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	if log != nil {
		log.Warn("Environment variable is not a bool, using default", "env_var", key, "value", val, "default", defaultVal)
	}
	return defaultVal
}
