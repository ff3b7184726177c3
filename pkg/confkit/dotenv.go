package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads a .env file the first time it is called. Lookup order:
// ENV_FILE, then .env in the project root, then .env in the working directory.
// Real environment variables win unless DOTENV_OVERLOAD=1. NO_DOTENV=1 disables
// the lookup entirely (CI, containers).
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}
	if root, err := ProjectRoot(); err == nil {
		if p := filepath.Join(root, ".env"); fileExists(p) {
			_ = load(p)
			return
		}
	}
	if fileExists(".env") {
		_ = load(".env")
	}
}
