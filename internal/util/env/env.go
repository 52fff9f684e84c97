package env

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables that override the project configuration.
const (
	KeyReportFile = "SCALASTYLE_MARKER_REPORT_FILE"
	KeyCommand    = "SCALASTYLE_MARKER_COMMAND"
	KeyTimeout    = "SCALASTYLE_MARKER_TIMEOUT"
)

// Lookup retrieves a value from the process environment or the env file.
// The process environment wins.
func Lookup(envPath, key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return LoadKeyFromEnvFile(envPath, key)
}

// LoadKeyFromEnvFile reads a specific key from a .env file.
// A missing or unreadable file yields "".
func LoadKeyFromEnvFile(envPath, key string) string {
	values, err := godotenv.Read(envPath)
	if err != nil {
		return ""
	}
	return values[key]
}

// SaveKeyToEnvFile sets key in the .env file, keeping the other entries.
func SaveKeyToEnvFile(envPath, key, value string) error {
	if err := os.MkdirAll(filepath.Dir(envPath), 0755); err != nil {
		return err
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		values = make(map[string]string)
	}
	values[key] = value

	return godotenv.Write(values, envPath)
}
