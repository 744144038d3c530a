package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	filePrefix = "snapshot-"
	fileSuffix = ".json"
	lockName   = "snapshot.lock"
	// A lock older than this belongs to a crashed process and may be taken over.
	staleLockAge = 5 * time.Minute
)

// ErrLocked is returned when another save holds the snapshot lock.
var ErrLocked = errors.New("snapshot store is locked by another writer")

// Store reads and writes snapshot documents under a single directory. Saves
// are guarded by a lock file; loads never take the lock, so a reader can
// never block a writer or vice versa.
type Store struct {
	dir       string
	retention int
}

// NewStore creates a snapshot store rooted at dir, keeping the retention
// most recent documents after each save.
func NewStore(dir string, retention int) *Store {
	if retention < 1 {
		retention = 1
	}
	return &Store{dir: dir, retention: retention}
}

// Load returns the most recent complete snapshot, or nil when none exists.
// Corrupt or incomplete documents are skipped, not fatal: a missing baseline
// just means the next run is a full one.
func (s *Store) Load() *ContentSnapshot {
	files, err := s.listFiles()
	if err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("Could not list snapshot directory")
		return nil
	}

	// Newest first.
	for i := len(files) - 1; i >= 0; i-- {
		snap, err := readFile(files[i])
		if err != nil {
			log.Warn().Err(err).Str("file", files[i]).Msg("Skipping unreadable snapshot")
			continue
		}
		if !snap.IsComplete {
			log.Warn().Str("file", files[i]).Msg("Skipping incomplete snapshot")
			continue
		}
		if snap.Version != Version {
			log.Warn().Int("version", snap.Version).Str("file", files[i]).Msg("Skipping snapshot with unsupported version")
			continue
		}
		return snap
	}
	return nil
}

// Save writes the snapshot as a new timestamped document and prunes old ones.
// The previous valid snapshot is never touched until the new one is fully on
// disk, so an interrupted save can only ever lose the document being written.
func (s *Store) Save(snap *ContentSnapshot) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	snap.IsComplete = true
	snap.MovieCount = len(snap.Movies)
	snap.SeriesCount = len(snap.Series)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := fmt.Sprintf("%s%d%s", filePrefix, time.Now().UnixNano(), fileSuffix)
	final := filepath.Join(s.dir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	s.prune()
	return nil
}

// Clear removes every stored snapshot, forcing the next run to be a full sync.
func (s *Store) Clear() error {
	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	files, err := s.listFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("failed to remove snapshot %s: %w", f, err)
		}
	}
	return nil
}

// acquireLock creates the lock sentinel exclusively. A sentinel left behind
// by a crashed process is taken over once it exceeds staleLockAge.
func (s *Store) acquireLock() (func(), error) {
	lockPath := filepath.Join(s.dir, lockName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		info, statErr := os.Stat(lockPath)
		if statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			log.Warn().Str("lock", lockPath).Msg("Taking over stale snapshot lock")
			os.Remove(lockPath)
			f, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		}
	}
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire snapshot lock: %w", err)
	}
	f.Close()

	return func() {
		if err := os.Remove(lockPath); err != nil {
			log.Warn().Err(err).Msg("Could not release snapshot lock")
		}
	}, nil
}

// prune removes snapshots beyond the retention count, oldest first.
func (s *Store) prune() {
	files, err := s.listFiles()
	if err != nil || len(files) <= s.retention {
		return
	}
	for _, f := range files[:len(files)-s.retention] {
		if err := os.Remove(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("Could not prune old snapshot")
		}
	}
}

// listFiles returns snapshot document paths sorted oldest to newest. The
// timestamped names make lexical order chronological.
func (s *Store) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			files = append(files, filepath.Join(s.dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readFile(path string) (*ContentSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap ContentSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}
