package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoticamper/internal/models"
	"github.com/desertthunder/spoticamper/internal/shared"
	"github.com/gofrs/flock"
)

// StateStore persists the [models.State] document as a single JSON file.
//
// The document is read wholesale by Load and written wholesale by Save; nothing is merged.
type StateStore struct {
	path   string
	pretty bool
	lock   *flock.Flock
	logger *log.Logger
}

// NewStateStore creates a store for the JSON file at path.
func NewStateStore(path string, pretty bool, logger *log.Logger) *StateStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &StateStore{
		path:   path,
		pretty: pretty,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
}

// Path returns the location of the state file.
func (s *StateStore) Path() string {
	return s.path
}

// Lock takes an exclusive, non-blocking lock next to the state file.
//
// Returns [shared.ErrStateLocked] when another process holds it. The returned func releases the lock.
func (s *StateStore) Lock() (func(), error) {
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire state lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrStateLocked, s.lock.Path())
	}

	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release state lock", "path", s.lock.Path(), "err", err)
		}
	}, nil
}

// Load reads the state file. A missing file yields a fresh, empty document.
func (s *StateStore) Load() (*models.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("generating new state", "path", s.path)
		return models.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state models.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidState, s.path, err)
	}
	state.Normalize()

	if err := state.Validate(); err != nil {
		s.logger.Warn("state document is inconsistent", "path", s.path, "err", err)
	}

	s.logger.Debug("loaded state", "path", s.path, "albums", len(state.Albums))
	return &state, nil
}

// Save overwrites the state file with state.
//
// The document is written to a temporary file in the same directory and renamed into place.
func (s *StateStore) Save(state *models.State) error {
	data, err := shared.MarshalJSON(state, s.pretty)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	s.logger.Debug("saved state", "path", s.path, "albums", len(state.Albums))
	return nil
}
