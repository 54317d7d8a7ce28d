// internal/env/envload.go
package env

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Names tried in each directory, most specific first.
var dotEnvNames = []string{".env.local", ".env"}

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error
)

// Ensure loads the nearest dotenv file, walking from the working directory up to
// the filesystem root. Variables already set in the process win. Later calls are
// no-ops. Test binaries load nothing unless GOTEST_LOAD_DOTENV=1.
func Ensure() error {
	if testing.Testing() && os.Getenv("GOTEST_LOAD_DOTENV") != "1" {
		return nil
	}
	loadOnce.Do(func() {
		loadedPath, loadErr = load()
		if loadErr != nil {
			log.Warn().Err(loadErr).Msg("dotenv not loaded")
		}
	})
	return loadErr
}

// LoadedPath returns the dotenv path that was loaded, or "".
func LoadedPath() string {
	return loadedPath
}

// Token returns the value of the named variable, trimmed.
func Token(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func load() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "resolve working directory")
	}
	path, err := findDotEnv(wd)
	if err != nil || path == "" {
		return "", err
	}
	if err := godotenv.Load(path); err != nil {
		return "", errors.Wrapf(err, "load %s", path)
	}
	log.Debug().Str("dotenv", path).Msg("loaded dotenv")
	return path, nil
}

// findDotEnv returns the first dotenv file at or above dir, or "" if there is none.
// Stat failures other than a missing file stop the search.
func findDotEnv(dir string) (string, error) {
	for {
		for _, name := range dotEnvNames {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			switch {
			case err == nil && !info.IsDir():
				return candidate, nil
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return "", errors.Wrapf(err, "stat %s", candidate)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
