package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv copies variables from the given .env files into the process
// environment. Variables that are already set are left alone and missing
// files are skipped.
func LoadDotEnv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	loaded := make([]string, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
