// Package config provides configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lifelink-community/pushtray/internal/colors"
	"github.com/pelletier/go-toml/v2"
)

// File permission constants
const (
	// FileModeDir is the permission for directories (rwxr-xr-x)
	FileModeDir os.FileMode = 0755
	// FileModeFile is the permission for data files (rw-r--r--)
	FileModeFile os.FileMode = 0644

	// FileExtTOML is the file extension for TOML configuration files.
	FileExtTOML = ".toml"
)

var (
	config    map[string]string
	configMap map[string]string
	mu        sync.RWMutex
)

func init() {
	initValidators()
}

// Load initializes configuration.
func Load() {
	mu.Lock()
	defer mu.Unlock()

	// Reset to defaults
	config = make(map[string]string)
	configMap = make(map[string]string)

	setDefaults()
	// Apply environment variable overrides
	loadFromEnv()
	// Load from configuration file
	loadFromFile()
	// Re-apply environment variable overrides so env wins
	loadFromEnv()
	// Validate and normalize values
	validate()
	// Create sample config if none exists
	createSampleConfig()
}

// setDefaults populates config with default values.
func setDefaults() {
	// Compute XDG directories
	home, _ := os.UserHomeDir()
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		xdgConfigHome = filepath.Join(home, ".config")
	}
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		xdgStateHome = filepath.Join(home, ".local", "state")
	}

	configDir := filepath.Join(xdgConfigHome, "pushtray")
	stateDir := filepath.Join(xdgStateHome, "pushtray")

	setDefault("config_dir", configDir)
	setDefault("state_dir", stateDir)
	setDefault("backend_url", "http://localhost:8080/api")
	setDefault("backend_auth_token", "")
	setDefault("user_id", "")
	setDefault("provider_url", "")
	setDefault("provider_api_key", "")
	setDefault("provider_sender_id", "")
	setDefault("token_retry_attempts", "3")
	setDefault("token_retry_delay_ms", "1000")
	setDefault("prompt_delay_seconds", "3")
	setDefault("feed_page_limit", "10")
	setDefault("cache_version", "v1")
	setDefault("offline_assets", "")
	setDefault("offline_origin", "http://localhost:8080")
	setDefault("toast_enabled", "true")
	setDefault("logging_enabled", "false")
	setDefault("logging_level", "info")
	setDefault("logging_max_files", "10")
	setDefault("debug", "false")
	setDefault("quiet", "false")
}

func setDefault(key, value string) {
	config[key] = value
	configMap[key] = value
}

// loadFromFile reads configuration from a file.
func loadFromFile() {
	configPath := os.Getenv("PUSHTRAY_CONFIG_PATH")
	if configPath == "" {
		// Try default location
		if configDir, ok := config["config_dir"]; ok {
			configPath = filepath.Join(configDir, "config"+FileExtTOML)
			if _, err := os.Stat(configPath); err != nil {
				// TOML file doesn't exist, no configuration to load
				configPath = ""
			}
		}
	}
	if configPath == "" {
		return
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		colors.Debug(fmt.Sprintf("unable to read config file %s: %v", configPath, err))
		return
	}

	var raw map[string]interface{}
	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case FileExtTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		return
	}
	if err != nil {
		colors.Warning(fmt.Sprintf("unable to parse config file %s: %v", configPath, err))
		return
	}

	// Merge into config, converting values to strings
	for k, v := range raw {
		key := strings.ToLower(k)
		converted, ok := coerceConfigValue(v)
		if !ok {
			colors.Warning(fmt.Sprintf("unsupported config value type for %s: %T", key, v))
			continue
		}
		config[key] = converted
	}
}

// coerceConfigValue converts a configuration value to its string representation.
// Supported types are string, int, int64, float64, and bool.
func coerceConfigValue(value interface{}) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case int:
		return strconv.Itoa(typed), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		return "", false
	}
}

// loadFromEnv applies environment variable overrides.
func loadFromEnv() {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "PUSHTRAY_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimPrefix(parts[0], "PUSHTRAY_")
		key = strings.ToLower(key)
		if key == "config_path" {
			continue
		}
		config[key] = parts[1]
	}
}

// validate checks and normalizes configuration values using registered validators.
func validate() {
	for key, value := range config {
		validator := getValidator(key)
		if validator == nil {
			continue // No validator for this key
		}
		defaultValue := configMap[key]
		normalizedValue, err := validator(key, value, defaultValue)
		if err != nil {
			colors.Warning(fmt.Sprintf("validation error for %s: %v, using default: %s", key, err, defaultValue))
			config[key] = defaultValue
		} else {
			config[key] = normalizedValue
		}
	}
}

// normalizeBool converts various boolean representations to "true"/"false".
func normalizeBool(val string) string {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return "true"
	case "0", "false", "no", "off":
		return "false"
	default:
		// If invalid, return as-is; validation will fix it.
		return val
	}
}

// initValidators registers all configuration validators.
func initValidators() {
	positiveIntValidator := PositiveIntValidator()
	RegisterValidator("token_retry_attempts", positiveIntValidator)
	RegisterValidator("token_retry_delay_ms", positiveIntValidator)
	RegisterValidator("prompt_delay_seconds", positiveIntValidator)
	RegisterValidator("feed_page_limit", positiveIntValidator)
	RegisterValidator("logging_max_files", positiveIntValidator)

	RegisterValidator("logging_level", EnumValidator(map[string]bool{"debug": true, "info": true, "warn": true, "error": true}))

	boolValidator := BoolValidator()
	RegisterValidator("toast_enabled", boolValidator)
	RegisterValidator("logging_enabled", boolValidator)
	RegisterValidator("debug", boolValidator)
	RegisterValidator("quiet", boolValidator)
}

// allowedValues returns a comma-separated string of allowed values.
func allowedValues(allowed map[string]bool) string {
	values := make([]string, 0, len(allowed))
	for k := range allowed {
		values = append(values, k)
	}
	// Sort for consistent output
	sort.Strings(values)
	return strings.Join(values, ", ")
}

// valueToInterface converts a configuration value to appropriate type for TOML.
func valueToInterface(key, val string) interface{} {
	if n, err := strconv.Atoi(val); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return val
}

// createSampleConfig creates a sample configuration file if none exists.
func createSampleConfig() {
	configDir := config["config_dir"]
	if configDir == "" {
		return
	}
	samplePath := filepath.Join(configDir, "config"+FileExtTOML)
	if _, err := os.Stat(samplePath); err == nil {
		return // file exists
	}
	os.MkdirAll(configDir, FileModeDir)

	typed := make(map[string]interface{})
	for k, v := range configMap {
		typed[k] = valueToInterface(k, v)
	}

	data, err := toml.Marshal(typed)
	if err != nil {
		colors.Warning(fmt.Sprintf("unable to marshal sample config: %v", err))
		return
	}
	header := "# pushtray configuration\n# This file is in TOML format.\n# Uncomment and edit values as needed.\n\n"
	if err := os.WriteFile(samplePath, append([]byte(header), data...), 0644); err != nil {
		colors.Warning(fmt.Sprintf("unable to write sample config to %s: %v", samplePath, err))
	}
}

// Get returns a configuration value or default.
func Get(key, defaultValue string) string {
	mu.RLock()
	defer mu.RUnlock()
	if val, ok := config[key]; ok {
		return val
	}
	return defaultValue
}

// GetInt returns a configuration value as integer, or default.
func GetInt(key string, defaultValue int) int {
	mu.RLock()
	defer mu.RUnlock()
	val, ok := config[key]
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetBool returns a configuration value as boolean, or default.
func GetBool(key string, defaultValue bool) bool {
	mu.RLock()
	defer mu.RUnlock()
	val, ok := config[key]
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// GetList returns a comma-separated configuration value as a slice.
// Empty entries are dropped.
func GetList(key string) []string {
	raw := Get(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Set overrides a configuration value at runtime. Intended for tests and
// command-line flag overrides.
func Set(key, value string) {
	mu.Lock()
	defer mu.Unlock()
	if config == nil {
		config = make(map[string]string)
		configMap = make(map[string]string)
	}
	config[strings.ToLower(key)] = value
}
