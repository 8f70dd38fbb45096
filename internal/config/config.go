// Package config loads command-line and environment configuration for the
// handshake assembly tool.
package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	PcapPath  string
	PcapNG    bool
	DBPath    string
	Addr      string
	Debug     bool
	NoServe   bool
}

// Load parses command line flags and environment variables to populate
// Config. Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	cfg.PcapPath = getEnv("FOURWAY_PCAP", "")
	cfg.DBPath = getEnv("FOURWAY_DB", getDefaultDBPath())
	cfg.Addr = getEnv("FOURWAY_ADDR", ":8080")
	cfg.Debug = getEnvBool("FOURWAY_DEBUG", false)

	flag.StringVar(&cfg.PcapPath, "pcap", cfg.PcapPath, "Path to a .pcap/.pcapng capture to replay")
	flag.BoolVar(&cfg.PcapNG, "pcapng", false, "Treat -pcap as pcapng format rather than classic pcap")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite export database")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP/WebSocket listen address for the table projector")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	flag.BoolVar(&cfg.NoServe, "no-serve", false, "Replay the capture and exit without starting the HTTP server")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in the user's home
// directory, creating the containing directory if necessary.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("warning: could not get user home directory, using current dir: %v", err)
		return "fourway22000.db"
	}

	dir := filepath.Join(home, ".fourway22000")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("warning: could not create %s, using current dir: %v", dir, err)
		return "fourway22000.db"
	}

	return filepath.Join(dir, "captures.db")
}
