package kv

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/logger"
)

// FileStore keeps all keys in a single JSON document on disk.
type FileStore struct {
	filePath  string
	quota     int
	mu        sync.RWMutex
	state     map[string]string
	recovered string
}

// NewFileStore opens (or creates on first write) the store file at filePath.
// A quota of 0 means unlimited.
func NewFileStore(filePath string, quota int) (*FileStore, error) {
	s := &FileStore{
		filePath: filePath,
		quota:    quota,
		state:    make(map[string]string),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.filePath
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	log := logger.FromContext(ctx).WithPrefix("kv")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		if size := usage(s.state, key, value); size > s.quota {
			log.Warn("write of %s rejected: %d bytes over quota %d", key, size, s.quota)
			return errors.NewQuotaExceededError(key, size, s.quota)
		}
	}

	prev, existed := s.state[key]
	if existed && prev == value {
		return nil
	}
	s.state[key] = value
	if err := s.persistLocked(); err != nil {
		if existed {
			s.state[key] = prev
		} else {
			delete(s.state, key)
		}
		log.Error("failed to persist %s: %v", key, err)
		return err
	}
	log.Debug("stored %s (%d bytes)", key, len(value))
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.state[key]
	if !existed {
		return nil
	}
	delete(s.state, key)
	if err := s.persistLocked(); err != nil {
		s.state[key] = prev
		logger.FromContext(ctx).WithPrefix("kv").Error("failed to persist delete of %s: %v", key, err)
		return err
	}
	return nil
}

// TakeRecovered returns the path an undecodable store file was moved to and
// clears it, so each recovery is reported once. It is empty when nothing was recovered.
func (s *FileStore) TakeRecovered() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	backup := s.recovered
	s.recovered = ""
	return backup
}

// Reload replaces the in-memory state with the file contents. A missing file
// yields an empty store. A file that does not decode is renamed to
// "<path>.corrupt-<timestamp>" and the store starts empty.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			s.state = make(map[string]string)
			return nil
		}
		return err
	}
	state := make(map[string]string)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			backup := s.filePath + ".corrupt-" + time.Now().UTC().Format("20060102T150405.000Z")
			if rerr := os.Rename(s.filePath, backup); rerr != nil {
				return fmt.Errorf("decode %s: %w (could not move it aside: %v)", s.filePath, err, rerr)
			}
			logger.Default().WithPrefix("kv").Warn("store file %s does not decode, moved to %s: %v", s.filePath, backup, err)
			s.state = make(map[string]string)
			s.recovered = backup
			return nil
		}
	}
	s.state = state
	return nil
}

// persistLocked writes through a temp file and rename so readers never see a torn file.
func (s *FileStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}
