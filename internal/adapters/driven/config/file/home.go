package file

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the casemap home directory.
const HomeEnv = "CASEMAP_HOME"

// HomeDir returns the directory holding config.toml, prompts, the taxonomy
// file and the run database: $CASEMAP_HOME, or ~/.casemap.
func HomeDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".casemap"), nil
}
