// Package positions supplies tracked positions from external sources.
// Position CRUD and ownership live elsewhere; the engine only reads.
package positions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/bobmcallan/vire-track/internal/models"
)

// FileSource implements interfaces.PositionSource from a JSON file mapping
// collection ID to a position list:
//
//	{ "smsf": [ { "symbol": "VAS.AX", "quantity": 100, ... } ] }
//
// The file is read once and cached; Reload picks up edits.
type FileSource struct {
	path string

	mu          sync.RWMutex
	collections map[string][]models.Position
}

// NewFileSource creates a source backed by the given JSON file.
func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the positions file.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read positions file %s: %w", s.path, err)
	}

	collections := make(map[string][]models.Position)
	if err := json.Unmarshal(data, &collections); err != nil {
		return fmt.Errorf("failed to parse positions file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.collections = collections
	s.mu.Unlock()
	return nil
}

// Positions returns the tracked positions for a collection.
func (s *FileSource) Positions(_ context.Context, collectionID string) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions, ok := s.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("collection not found: %s", collectionID)
	}
	out := make([]models.Position, len(positions))
	copy(out, positions)
	return out, nil
}
