// Package env loads installagent settings from dotenv files.
package env

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OverrideVar names an explicit dotenv file; when set, no search happens.
const OverrideVar = "INSTALLAGENT_DOTENV"

// candidates are tried in each directory, most specific first.
var candidates = []string{"installagent.env", ".env"}

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error
)

// Ensure loads $INSTALLAGENT_DOTENV, or else the nearest installagent.env or
// .env from the working directory upwards. Variables already set in the
// process win. Only the first call does any work.
func Ensure() error {
	loadOnce.Do(func() {
		path, err := resolve(os.Getenv(OverrideVar), !hermetic())
		if err != nil {
			loadErr = err
			log.Warn().Err(err).Msg("installagent: resolve dotenv failed")
			return
		}
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil {
			loadErr = errors.Wrapf(err, "load dotenv %s", path)
			log.Warn().Err(err).Str("dotenv", path).Msg("installagent: load dotenv failed")
			return
		}
		loadedPath = path
		log.Debug().Str("dotenv", path).Msg("installagent: loaded dotenv")
	})
	return loadErr
}

// LoadedPath returns the dotenv file Ensure loaded, or "".
func LoadedPath() string {
	return loadedPath
}

// resolve picks the dotenv file. An explicit override must exist; the upward
// search only runs when search is true.
func resolve(override string, search bool) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		info, err := os.Stat(override)
		if err != nil {
			return "", errors.Wrapf(err, "%s=%s", OverrideVar, override)
		}
		if info.IsDir() {
			return "", errors.Errorf("%s=%s is a directory", OverrideVar, override)
		}
		return override, nil
	}
	if !search {
		return "", nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "get working directory")
	}
	return searchUp(wd)
}

func searchUp(dir string) (string, error) {
	for {
		for _, name := range candidates {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, nil
			}
			if err != nil && !os.IsNotExist(err) {
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

// hermetic keeps `go test` from picking up a developer's dotenv unless
// GOTEST_LOAD_DOTENV=1.
func hermetic() bool {
	if os.Getenv("GOTEST_LOAD_DOTENV") == "1" {
		return false
	}
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}
