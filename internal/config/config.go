package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Addr   string
	DBPath string
	Debug  bool

	// ServerKeys holds every accepted equivalent of the shared application
	// secret, including legacy aliases.
	ServerKeys []string

	FCMServerKey string
	APNS         APNS
}

type APNS struct {
	KeyPath string
	TeamID  string
	KeyID   string
	Bundle  string
	Sandbox bool
}

// Enabled reports whether the VoIP channel has everything it needs to sign
// and deliver.
func (a APNS) Enabled() bool {
	return a.KeyPath != "" && a.TeamID != "" && a.KeyID != "" && a.Bundle != ""
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:         envOr("CALLSIGNAL_ADDR", ":8080"),
		DBPath:       envOr("CALLSIGNAL_DB", "callsignal.db"),
		Debug:        envBool("CALLSIGNAL_DEBUG"),
		FCMServerKey: os.Getenv("CALLSIGNAL_FCM_KEY"),
		APNS: APNS{
			KeyPath: os.Getenv("CALLSIGNAL_APNS_KEY_PATH"),
			TeamID:  os.Getenv("CALLSIGNAL_APNS_TEAM_ID"),
			KeyID:   os.Getenv("CALLSIGNAL_APNS_KEY_ID"),
			Bundle:  os.Getenv("CALLSIGNAL_APNS_BUNDLE_ID"),
			Sandbox: envBool("CALLSIGNAL_APNS_SANDBOX"),
		},
	}

	for _, k := range strings.Split(os.Getenv("CALLSIGNAL_SERVER_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			cfg.ServerKeys = append(cfg.ServerKeys, k)
		}
	}
	if len(cfg.ServerKeys) == 0 {
		return nil, errors.New("CALLSIGNAL_SERVER_KEYS must list at least one server key")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
