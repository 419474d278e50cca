package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	envVar          = "ENV"
	versionVar      = "APP_VERSION"
	logLevelVar     = "LOG_LEVEL"
	logFormatVar    = "LOG_FORMAT"
	kubeconfigVar   = "KUBECONFIG"
	apiServerURLVar = "API_SERVER_URL"
)

// Server holds process level settings.
type Server struct {
	Port    string
	AppName string
	Env     string // DEV, PROD, ...
	Version string
}

// Log selects the zerolog level and output format.
type Log struct {
	Level  string
	Format string // json or text
}

// Kube locates the cluster API used to review bearer tokens.
// Both fields empty means in-cluster configuration.
type Kube struct {
	Kubeconfig   string
	APIServerURL string
}

func loadServer() Server {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return Server{
		Port:    port,
		AppName: GetEnv(appNameVar, "Dashboard Auth"),
		Env:     GetEnv(envVar, "DEV"),
		Version: GetEnv(versionVar, "dev"),
	}
}

func loadLog() Log {
	return Log{
		Level:  GetEnv(logLevelVar, "info"),
		Format: GetEnv(logFormatVar, "json"),
	}
}

func loadKube() Kube {
	return Kube{
		Kubeconfig:   GetEnv(kubeconfigVar, ""),
		APIServerURL: GetEnv(apiServerURLVar, ""),
	}
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration ("30s") or a plain number of seconds.
func GetEnvDuration(envVar string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", envVar, value, err)
	}
	return d, nil
}

func GetEnvInt(envVar string, defaultValue int) (int, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", envVar, value, err)
	}
	return i, nil
}

func GetEnvBool(envVar string, defaultValue bool) (bool, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", envVar, value, err)
	}
	return b, nil
}
