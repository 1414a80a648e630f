package exporter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
)

// Manifest is the staged form of one export request: the groups to export
// (with their image payloads staged on disk) plus the run options. It is
// written when a job is accepted and read back by the queue worker.
type Manifest struct {
	Groups  []metadata.ImageGroup `json:"groups"`
	Options Options               `json:"options"`
}

// Save writes the manifest as JSON.
func (m Manifest) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal export manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse export manifest: %w", err)
	}
	return &m, nil
}
