package main

import (
	"os"
	"path/filepath"
	"strings"

	"ghosttext/logger"

	"github.com/google/uuid"
)

// loadOrCreateDeviceID returns the install's stable telemetry id, minting and
// persisting one on first run. With no state dir the id is per-session only.
func loadOrCreateDeviceID(stateDir string) string {
	if stateDir == "" {
		return uuid.New().String()
	}

	path := filepath.Join(stateDir, "device_id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := uuid.New().String()
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		logger.Warn("failed to persist device id: %v", err)
	}
	return id
}
