package records

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
)

// File is the JSON export format: habits plus their check-ins as stored.
type File struct {
	Version  int                     `json:"version,omitempty"`
	Habits   []models.Habit          `json:"habits"`
	CheckIns []models.RawCheckRecord `json:"checkIns"`
}

// ParseFile decodes an export file.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse records file: %w", err)
	}
	return &f, nil
}

// LoadFile reads and decodes the export file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFile(data)
}

// Event represents a file source event.
type Event struct {
	Type    EventType
	UserIDs []string
	Error   error
}

// EventType defines the type of file source event.
type EventType int

const (
	// EventRecordsLoaded indicates the file was read at startup.
	EventRecordsLoaded EventType = iota
	// EventRecordsChanged indicates an external edit changed some users' data.
	EventRecordsChanged
	// EventError indicates the file could not be read or parsed.
	EventError
)

// FileSource serves records from a JSON file and reloads it when it changes
// on disk.
type FileSource struct {
	mu            sync.RWMutex
	file          *File
	filePath      string
	watcher       *fsnotify.Watcher
	onChange      func(userIDs []string)
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	closeOnce     sync.Once
}

// NewFileSource loads path and starts watching it. A missing file is
// treated as empty.
func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{
		file:      &File{},
		filePath:  path,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create records directory: %w", err)
	}

	if f, err := LoadFile(path); err == nil {
		s.file = f
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventRecordsLoaded})
	return s, nil
}

// Events returns the event channel.
func (s *FileSource) Events() <-chan Event {
	return s.eventChan
}

// OnChange registers a callback run after a reload with the affected users.
func (s *FileSource) OnChange(fn func(userIDs []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// ListHabits returns the user's habits ordered by name.
func (s *FileSource) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var habits []models.Habit
	for _, h := range s.file.Habits {
		if h.UserID == userID {
			habits = append(habits, h)
		}
	}
	sort.SliceStable(habits, func(i, j int) bool { return habits[i].Name < habits[j].Name })
	return habits, nil
}

// GetHabit returns one habit owned by userID.
func (s *FileSource) GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.file.Habits {
		if h.ID != habitID {
			continue
		}
		if h.UserID != userID {
			return nil, fmt.Errorf("habit %s: %w", habitID, retry.ErrPermissionDenied)
		}
		habit := h
		return &habit, nil
	}
	return nil, fmt.Errorf("habit %s: %w", habitID, ErrNotFound)
}

// CheckIns returns the resolved check-ins of a habit ordered by day.
func (s *FileSource) CheckIns(ctx context.Context, userID, habitID string) ([]models.CheckRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw []models.RawCheckRecord
	for _, r := range s.file.CheckIns {
		if r.UserID == userID && r.HabitID == habitID {
			raw = append(raw, r)
		}
	}
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].DateKey < raw[j].DateKey })
	return models.ResolveAll(raw), nil
}

// startWatcher starts the file system watcher.
func (s *FileSource) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory (to catch editors that replace the file)
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *FileSource) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, s.reload)
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// reload re-reads the file and reports which users' data changed.
func (s *FileSource) reload() {
	f, err := LoadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to reload records file", "path", s.filePath, "error", err)
			s.sendEvent(Event{Type: EventError, Error: err})
		}
		return
	}

	s.mu.Lock()
	changed := changedUsers(s.file, f)
	s.file = f
	onChange := s.onChange
	s.mu.Unlock()

	if len(changed) == 0 {
		return
	}

	logger.Debug("Records file changed", "users", changed)
	s.sendEvent(Event{Type: EventRecordsChanged, UserIDs: changed})
	if onChange != nil {
		onChange(changed)
	}
}

type userData struct {
	habits   []models.Habit
	checkIns []models.RawCheckRecord
}

func groupByUser(f *File) map[string]*userData {
	groups := make(map[string]*userData)
	get := func(id string) *userData {
		if groups[id] == nil {
			groups[id] = &userData{}
		}
		return groups[id]
	}
	for _, h := range f.Habits {
		g := get(h.UserID)
		g.habits = append(g.habits, h)
	}
	for _, r := range f.CheckIns {
		g := get(r.UserID)
		g.checkIns = append(g.checkIns, r)
	}
	return groups
}

func changedUsers(before, after *File) []string {
	old, cur := groupByUser(before), groupByUser(after)

	var changed []string
	for id, g := range cur {
		if !reflect.DeepEqual(old[id], g) {
			changed = append(changed, id)
		}
	}
	for id := range old {
		if _, ok := cur[id]; !ok {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}

// sendEvent sends an event to the event channel non-blocking.
func (s *FileSource) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher.
func (s *FileSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
