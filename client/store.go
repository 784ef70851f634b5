package client

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// RespondentStore keeps the respondent id between sessions.
type RespondentStore struct {
	Path string
}

// DefaultRespondentStore stores the id under the user configuration directory.
func DefaultRespondentStore() (RespondentStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return RespondentStore{}, err
	}
	return RespondentStore{Path: filepath.Join(dir, "encuestas", "usuario")}, nil
}

// Load returns the saved id, or "" when nothing was saved yet.
func (s RespondentStore) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s RespondentStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(strings.TrimSpace(id)+"\n"), 0o600)
}
