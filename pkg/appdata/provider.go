// Package appdata defines the contract for the application-data collaborator.
// The engine consumes read-only snapshots of application data to evaluate
// transition conditions; it never writes back.
package appdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Provider returns a nested key/value snapshot of one application's current
// data. Keys are addressed by condition leaves via dotted paths.
type Provider interface {
	Snapshot(ctx context.Context, applicationID string) (map[string]any, error)
}

// StaticProvider serves fixed snapshots, for tests and local development.
type StaticProvider struct {
	snapshots map[string]map[string]any
}

// NewStaticProvider creates a provider over a fixed snapshot set keyed by
// application id.
func NewStaticProvider(snapshots map[string]map[string]any) *StaticProvider {
	return &StaticProvider{snapshots: snapshots}
}

// Snapshot returns the configured snapshot, or an empty document when the
// application is unknown; condition leaves over missing data evaluate false,
// so an empty document is safe.
func (p *StaticProvider) Snapshot(_ context.Context, applicationID string) (map[string]any, error) {
	if snapshot, ok := p.snapshots[applicationID]; ok {
		return snapshot, nil
	}

	return map[string]any{}, nil
}

// Set replaces the snapshot for an application.
func (p *StaticProvider) Set(applicationID string, snapshot map[string]any) {
	p.snapshots[applicationID] = snapshot
}

// FileProvider reads snapshots from <dir>/<application_id>.json documents.
// It stands in for the real application-data service in local deployments.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Snapshot(_ context.Context, applicationID string) (map[string]any, error) {
	document, err := os.ReadFile(filepath.Join(p.dir, applicationID+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}

		return nil, fmt.Errorf("failed to read application data for %s: %w", applicationID, err)
	}

	var snapshot map[string]any
	if err := json.Unmarshal(document, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse application data for %s: %w", applicationID, err)
	}

	return snapshot, nil
}
