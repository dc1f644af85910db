// Package jsonfile provides JSON file-backed stores.
package jsonfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/courier/internal/core/broker"
)

const (
	defaultMaxActivities = 1000
	activityFilename     = "activity.jsonl"
)

// ActivityStore implements broker.ActivityRecorder and broker.ActivityReader
// using a JSONL file. Records are appended; the file is compacted down to the
// retention limit once it holds twice as many lines.
type ActivityStore struct {
	dir           string
	maxActivities int
	mu            sync.Mutex
	lines         int // lines in the file, -1 until counted
}

var (
	_ broker.ActivityRecorder = (*ActivityStore)(nil)
	_ broker.ActivityReader   = (*ActivityStore)(nil)
)

// NewActivityStore creates a new activity store at the given directory.
func NewActivityStore(dir string) *ActivityStore {
	return &ActivityStore{
		dir:           dir,
		maxActivities: defaultMaxActivities,
		lines:         -1,
	}
}

// WithMaxActivities sets the maximum number of activities to retain.
func (s *ActivityStore) WithMaxActivities(max int) *ActivityStore {
	if max > 0 {
		s.maxActivities = max
	}
	return s
}

func (s *ActivityStore) filePath() string {
	return filepath.Join(s.dir, activityFilename)
}

func (s *ActivityStore) lockPath() string {
	return s.filePath() + ".lock"
}

// withExclusiveLock executes fn while holding an exclusive file lock.
func (s *ActivityStore) withExclusiveLock(fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create activity directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// Record appends an activity event.
func (s *ActivityStore) Record(activity broker.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}

	line, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		if s.lines < 0 {
			n, err := s.countLinesUnsafe()
			if err != nil {
				return err
			}
			s.lines = n
		}

		if err := s.appendUnsafe(line); err != nil {
			return err
		}
		s.lines++

		if s.lines < 2*s.maxActivities {
			return nil
		}
		return s.compactUnsafe()
	})
}

// List returns recent activity events, newest first.
// Limit of 0 returns all retained events.
func (s *ActivityStore) List(limit int) ([]broker.Activity, error) {
	return s.ListSince(time.Time{}, limit)
}

// ListSince returns activity events after the given time, newest first.
func (s *ActivityStore) ListSince(since time.Time, limit int) ([]broker.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []broker.Activity
	err := s.withExclusiveLock(func() error {
		activities, err := s.readActivitiesUnsafe()
		if err != nil {
			return err
		}

		// The file may hold up to twice the retention limit between compactions.
		if len(activities) > s.maxActivities {
			activities = activities[len(activities)-s.maxActivities:]
		}

		for i := len(activities) - 1; i >= 0; i-- {
			if !activities[i].Timestamp.After(since) {
				continue
			}
			result = append(result, activities[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
		return nil
	})
	return result, err
}

// appendUnsafe writes one encoded line to the end of the file.
// Caller must hold lock.
func (s *ActivityStore) appendUnsafe(line []byte) error {
	f, err := os.OpenFile(s.filePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open activity file: %w", err)
	}

	if _, err := f.Write(line); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("write activity: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close activity file: %w", err)
	}
	return nil
}

// compactUnsafe rewrites the file keeping only the newest maxActivities lines.
// Caller must hold lock.
func (s *ActivityStore) compactUnsafe() error {
	activities, err := s.readActivitiesUnsafe()
	if err != nil {
		return err
	}

	if len(activities) > s.maxActivities {
		activities = activities[len(activities)-s.maxActivities:]
	}

	if err := s.writeActivitiesUnsafe(activities); err != nil {
		return err
	}
	s.lines = len(activities)
	return nil
}

// countLinesUnsafe counts the lines currently in the file.
// Caller must hold lock.
func (s *ActivityStore) countLinesUnsafe() (int, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read activity file: %w", err)
	}
	return bytes.Count(data, []byte{'\n'}), nil
}

// readActivitiesUnsafe reads all activities from the file.
// Caller must hold lock.
func (s *ActivityStore) readActivitiesUnsafe() ([]broker.Activity, error) {
	f, err := os.Open(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open activity file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var activities []broker.Activity
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var activity broker.Activity
		if err := json.Unmarshal(scanner.Bytes(), &activity); err != nil {
			// Skip malformed lines
			continue
		}
		activities = append(activities, activity)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read activity file: %w", err)
	}

	return activities, nil
}

// writeActivitiesUnsafe replaces the file with the given activities.
// Caller must hold lock.
func (s *ActivityStore) writeActivitiesUnsafe(activities []broker.Activity) error {
	tmpPath := s.filePath() + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	enc := json.NewEncoder(f)
	for _, a := range activities {
		if err := enc.Encode(a); err != nil {
			f.Close() //nolint:errcheck
			_ = os.Remove(tmpPath)
			return fmt.Errorf("write activity: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
