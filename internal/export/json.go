package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/LadyMermelada/basketscore/internal/store"
)

// ErrFormat is returned when a backup document is not a JSON array of
// sessions.
var ErrFormat = errors.New("backup is not a session array")

// Marshal encodes sessions as the backup document: a 2-space indented JSON
// array using the session field names.
func Marshal(sessions []store.Session) ([]byte, error) {
	if sessions == nil {
		sessions = []store.Session{}
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

// BackupFileName is the suggested name of a backup taken at now.
func BackupFileName(now time.Time) string {
	return "basketscore_backup_" + now.Format(store.DateLayout) + ".json"
}

func ToJSON(sessions []store.Session, path string) error {
	data, err := Marshal(sessions)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// Parse decodes a backup document. Only the top-level shape is checked;
// individual records are taken as they are.
func Parse(data []byte) ([]store.Session, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrFormat
	}
	var sessions []store.Session
	if err := json.Unmarshal(trimmed, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	return sessions, nil
}

func FromFile(path string) ([]store.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return Parse(data)
}
