package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/teragrab/teragrab/models"
	"github.com/teragrab/teragrab/utils"
)

// FileStore keeps user records in a single JSON file. All mutations are
// serialized by a mutex and persisted with a temp-file rename, so a crash
// mid-write never leaves a truncated database behind.
type FileStore struct {
	path string

	mu    sync.Mutex
	users map[int64]*models.UserRecord
}

type fileSchema struct {
	Users map[string]*models.UserRecord `json:"users"`
}

// NewFileStore loads (or creates) the JSON database at path. A file with
// invalid JSON is backed up and replaced with an empty database.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  path,
		users: make(map[int64]*models.UserRecord),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}

	var schema fileSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		backup := fmt.Sprintf("%s.backup_%s", path, time.Now().Format("20060102_150405"))
		if cpErr := os.WriteFile(backup, raw, 0o644); cpErr != nil {
			utils.Sugar.Errorf("could not back up corrupted store: %v", cpErr)
		} else {
			utils.Sugar.Warnf("store %s is corrupted, backed up to %s and starting fresh", path, backup)
		}
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}

	for key, rec := range schema.Users {
		var id int64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			utils.Sugar.Warnf("skipping store entry with bad key %q", key)
			continue
		}
		rec.UserID = id
		s.users[id] = rec
	}
	return s, nil
}

// persistLocked writes the database atomically. Callers hold s.mu (or own
// the store exclusively during construction).
func (s *FileStore) persistLocked() error {
	schema := fileSchema{Users: make(map[string]*models.UserRecord, len(s.users))}
	for id, rec := range s.users {
		schema.Users[fmt.Sprintf("%d", id)] = rec
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Ensure(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; ok {
		return nil
	}
	now := time.Now()
	s.users[userID] = &models.UserRecord{UserID: userID, CreatedAt: now, UpdatedAt: now}
	return s.persistLocked()
}

func (s *FileStore) Get(ctx context.Context, userID int64) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *FileStore) SetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		rec = &models.UserRecord{UserID: userID, CreatedAt: time.Now()}
		s.users[userID] = rec
	}
	rec.Token = token
	rec.TokenExpiry = &expiry
	rec.UpdatedAt = time.Now()
	return s.persistLocked()
}

func (s *FileStore) ReserveSlot(ctx context.Context, userID int64, now time.Time, window time.Duration) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		rec = &models.UserRecord{UserID: userID, CreatedAt: now}
		s.users[userID] = rec
	}

	if rec.LastRequestAt != nil {
		elapsed := now.Sub(*rec.LastRequestAt)
		if elapsed < window {
			return window - elapsed, false, nil
		}
	}

	stamp := now
	rec.LastRequestAt = &stamp
	rec.UpdatedAt = now
	if err := s.persistLocked(); err != nil {
		return 0, false, err
	}
	return 0, true, nil
}

func (s *FileStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *FileStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

func (s *FileStore) Close() error { return nil }
