// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"
)

// Defaults that are fixed product configuration, not tunable per deployment.
const (
	// AutosaveInterval is how often the draft tracker persists changed drafts.
	AutosaveInterval = 3000 * time.Millisecond

	// WarningThresholdBytes is where local storage usage starts to warn.
	WarningThresholdBytes int64 = 50_000_000

	// CriticalThresholdBytes is where local storage usage becomes critical.
	CriticalThresholdBytes int64 = 100_000_000
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string for the sync server.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// AdminTokenSecret signs and verifies admin bearer tokens.
	AdminTokenSecret string

	// CleanupSecret is the static bearer secret for the scheduled cleanup endpoint.
	CleanupSecret string

	// OracleURL is the base URL of the AI generation backend.
	OracleURL string

	// AIEnabled turns the biography features on or off.
	AIEnabled bool

	// Locale is the language biographies are generated in.
	Locale string

	// ClientDB is the path of the client's local record store.
	ClientDB string

	// ServerURL is the sync server base URL the client talks to.
	ServerURL string

	// DeviceID identifies this device to the sync server. Defaults to the
	// hostname when empty.
	DeviceID string

	// ShowVersion prints build metadata and exits.
	ShowVersion bool
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.StringVar(&options.AdminTokenSecret, "admin-secret", "", "admin token signing secret")
	flag.StringVar(&options.CleanupSecret, "cleanup-secret", "", "cleanup endpoint bearer secret")
	flag.StringVar(&options.OracleURL, "oracle", "https://localhost:8090", "AI backend base URL")
	flag.BoolVar(&options.AIEnabled, "ai", true, "enable AI biography features")
	flag.StringVar(&options.Locale, "locale", "en", "biography locale")
	flag.StringVar(&options.ClientDB, "db", "everlog.db", "path to the local record store")
	flag.StringVar(&options.ServerURL, "url", "https://localhost:8080", "sync server base URL")
	flag.StringVar(&options.DeviceID, "device", "", "device identifier for sync")
	flag.BoolVar(&options.ShowVersion, "version", false, "show build version and date")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if secret := os.Getenv("ADMIN_TOKEN_SECRET"); secret != "" {
		options.AdminTokenSecret = secret
	}
	if secret := os.Getenv("CLEANUP_SECRET"); secret != "" {
		options.CleanupSecret = secret
	}
	if oracle := os.Getenv("ORACLE_URL"); oracle != "" {
		options.OracleURL = oracle
	}

	return options
}
