package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// FileStore keeps the session keys in a single JSON file. Writes go through
// a temp file + rename so a crash mid-write never leaves a torn record.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// persisted file layout: flat key/value map, expiry as unix milliseconds
type fileRecord struct {
	AccessToken string `json:"access_token,omitempty"`
	User        string `json:"user,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var fr fileRecord
	if err := json.Unmarshal(b, &fr); err != nil {
		// unreadable file is treated as no session
		return nil, nil
	}
	if fr.AccessToken == "" || fr.User == "" || fr.ExpiresAt == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(fr.ExpiresAt, 10, 64)
	if err != nil {
		return nil, nil
	}
	return &Record{
		AccessToken: fr.AccessToken,
		UserJSON:    []byte(fr.User),
		ExpiresAt:   time.UnixMilli(ms),
	}, nil
}

func (s *FileStore) Save(ctx context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fr := fileRecord{
		AccessToken: r.AccessToken,
		User:        string(r.UserJSON),
		ExpiresAt:   strconv.FormatInt(r.ExpiresAt.UnixMilli(), 10),
	}
	b, err := json.Marshal(fr)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
