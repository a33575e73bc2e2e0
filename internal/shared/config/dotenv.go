package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"policy-backend/internal/shared/telemetry"
)

// loadEnvFiles applies KEY=VALUE files for local development. Variables already
// present in the process environment win over file values, and missing files
// are skipped.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			telemetry.Warn("config.env_file_ignored", map[string]any{"path": path, "err": err})
		}
	}
}
