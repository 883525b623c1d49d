// Package identity persists a participant's resume data between runs: the
// equivalent of the browser clients stashing participant_id and session_pin
// in local storage so a reload rejoins as the same participant.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Identity is the participant's locally remembered self. It is only valid
// within the session whose pin it records.
type Identity struct {
	ParticipantID   string `json:"participant_id"`
	SessionPin      string `json:"session_pin"`
	ParticipantName string `json:"participant_name"`
}

type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// DefaultPath places the file under the user's config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("identity: no config dir: %w", err)
	}
	return filepath.Join(dir, "quizpin", "participant.json"), nil
}

// Load returns the stored identity, reporting false when nothing is stored.
func (s *Store) Load() (Identity, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("identity: read: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		// A corrupt file is treated as absent; the participant rejoins
		// fresh rather than failing to start.
		return Identity{}, false, nil
	}
	return id, id.ParticipantID != "", nil
}

func (s *Store) Save(id Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("identity: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("identity: write: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Resume returns the stored identity only when it belongs to the given pin;
// identities never carry over across sessions.
func (s *Store) Resume(pin string) (Identity, bool, error) {
	id, ok, err := s.Load()
	if err != nil || !ok {
		return Identity{}, false, err
	}
	if id.SessionPin != pin {
		return Identity{}, false, nil
	}
	return id, true, nil
}
