// internal/infra/config/config.go
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
)

// Config holds every environment setting of both binaries.
type Config struct {
	Port string

	// cart API storage
	CartStore                string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	DatabaseURL              string

	// Firebase Auth
	FirebaseProjectID string
	AuthRequired      bool

	CORSOrigins []string

	LogMode string
	LogFile string

	// storefront shell
	CartAPIBaseURL  string
	CartLocalDB     string
	CartDebounce    time.Duration
	CartHTTPTimeout time.Duration
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env.
func Load() *Config {
	_ = godotenv.Load()
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config from getenv.
func LoadFrom(getenv func(string) string) *Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	defaultProject := get("GCP_PROJECT_ID", "")

	return &Config{
		Port: get("PORT", "8080"),

		CartStore:                strings.ToLower(get("CART_STORE", StoreFirestore)),
		FirestoreProjectID:       get("FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: get("FIRESTORE_CREDENTIALS_FILE", ""),
		DatabaseURL:              get("DATABASE_URL", ""),

		FirebaseProjectID: get("FIREBASE_PROJECT_ID", defaultProject),
		AuthRequired:      cast.ToBool(get("AUTH_REQUIRED", "false")),

		CORSOrigins: splitList(get("CORS_ORIGINS", "")),

		LogMode: strings.ToLower(get("LOG_MODE", "development")),
		LogFile: get("LOG_FILE", ""),

		CartAPIBaseURL:  get("CART_API_BASE_URL", "http://localhost:8080"),
		CartLocalDB:     get("CART_LOCAL_DB", "cart.db"),
		CartDebounce:    durationOr(get("CART_DEBOUNCE", ""), 400*time.Millisecond),
		CartHTTPTimeout: durationOr(get("CART_HTTP_TIMEOUT", ""), 30*time.Second),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// durationOr accepts Go durations ("400ms", "2s"); invalid or non-positive
// values fall back to def.
func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := cast.ToDurationE(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
