package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"threegen/pkg/logger"
)

const (
	dotenvFilename = ".env"
	// envFileVar names an explicit env file, for example one per device.
	envFileVar = "THREEGEN_ENV_FILE"
)

var errNoDotEnv = errors.New("no .env file found")

// loadDotEnv applies an env file without overriding variables that are
// already set. An explicit THREEGEN_ENV_FILE must exist; otherwise the
// nearest .env walking up from the working directory is used when present.
func loadDotEnv(log logger.Logger) error {
	path, err := dotEnvPath()
	if err != nil {
		if errors.Is(err, errNoDotEnv) {
			return nil
		}
		return err
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	loaded, skipped := 0, 0
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			skipped++
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
		loaded++
	}

	log.Info("dotenv: loaded variables", "count", loaded, "skipped", skipped, "path", path)
	return nil
}

func dotEnvPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv(envFileVar)); explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("%s: %w", envFileVar, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s: %s is a directory", envFileVar, explicit)
		}
		return explicit, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, dotenvFilename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errNoDotEnv
		}
		dir = parent
	}
}
