package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mealmind/go-mealmind/internal/log"
)

// SchemaVersion is the current ProgressRecord schema. A stored record
// with any other version is discarded on load and replaced with a fresh
// default — no migration is attempted.
const SchemaVersion = 2

// ProgressRecord is the durable snapshot of onboarding state enabling
// resume-after-restart.
type ProgressRecord struct {
	SchemaVersion        int           `json:"schemaVersion"`
	CurrentSectionIndex  int           `json:"currentSectionIndex"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	Responses            ResponseModel `json:"responses"`
	CompletedSections    []string      `json:"completedSections"`
	LastUpdated          time.Time     `json:"lastUpdated"`
}

// DefaultRecord returns a fresh first-run record.
func DefaultRecord() *ProgressRecord {
	return &ProgressRecord{
		SchemaVersion: SchemaVersion,
		Responses:     make(ResponseModel),
		LastUpdated:   time.Now(),
	}
}

// Clone deep-copies the record so stores and snapshots never alias the
// orchestrator's live state.
func (r *ProgressRecord) Clone() *ProgressRecord {
	out := *r
	out.Responses = r.Responses.Clone()
	out.CompletedSections = append([]string(nil), r.CompletedSections...)
	return &out
}

// MarkCompleted appends the section to the completed set at most once.
func (r *ProgressRecord) MarkCompleted(sectionID string) {
	for _, id := range r.CompletedSections {
		if id == sectionID {
			return
		}
	}
	r.CompletedSections = append(r.CompletedSections, sectionID)
}

// Completed reports whether the section id is in the completed set.
func (r *ProgressRecord) Completed(sectionID string) bool {
	for _, id := range r.CompletedSections {
		if id == sectionID {
			return true
		}
	}
	return false
}

// ProgressStore persists onboarding progress. Load never fails on
// missing or stale state: absence and schema-version mismatch both yield
// a fresh default record. Saves are idempotent and last-write-wins.
type ProgressStore interface {
	Load() (*ProgressRecord, error)
	Save(record *ProgressRecord) error
	Reset() error
	Close() error
}

// envelope is the persisted layout: one versioned record under one key.
type envelope struct {
	Version int             `json:"version"`
	Data    *ProgressRecord `json:"data"`
}

// decodeEnvelope applies the compatibility policy shared by all store
// backends: unreadable or version-mismatched payloads yield a fresh
// default record, never an error.
func decodeEnvelope(raw []byte) *ProgressRecord {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn("discarding unreadable progress record", "error", err)
		return DefaultRecord()
	}
	if env.Version != SchemaVersion || env.Data == nil {
		log.Info("discarding progress record with stale schema",
			"stored_version", env.Version,
			"current_version", SchemaVersion)
		return DefaultRecord()
	}
	if env.Data.Responses == nil {
		env.Data.Responses = make(ResponseModel)
	}
	return env.Data
}

func encodeEnvelope(record *ProgressRecord) ([]byte, error) {
	return json.MarshalIndent(envelope{Version: SchemaVersion, Data: record}, "", "  ")
}

// JSONStore persists progress as a single JSON file. Writes go through a
// temp file and rename so a crash mid-write cannot corrupt the record.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore creates a file-backed store at dir/progress.json.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("onboarding: create store dir: %w", err)
	}
	return &JSONStore{path: filepath.Join(dir, "progress.json")}, nil
}

// Load reads the persisted record, applying the schema-version policy.
func (s *JSONStore) Load() (*ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("onboarding: read progress: %w", err)
	}
	return decodeEnvelope(raw), nil
}

// Save writes the record durably.
func (s *JSONStore) Save(record *ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := encodeEnvelope(record)
	if err != nil {
		return fmt.Errorf("onboarding: encode progress: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("onboarding: write progress: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("onboarding: write progress: %w", err)
	}
	return nil
}

// Reset removes the durable copy.
func (s *JSONStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("onboarding: reset progress: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *JSONStore) Close() error {
	return nil
}

var _ ProgressStore = (*JSONStore)(nil)

// AutoSaver periodically saves a snapshot as a safety net on top of the
// per-event saves. A failed save is logged and retried on the next tick;
// it never surfaces to the user.
type AutoSaver struct {
	store    ProgressStore
	snapshot func() *ProgressRecord
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAutoSaver creates an autosaver that persists snapshot() every
// interval once started.
func NewAutoSaver(store ProgressStore, interval time.Duration, snapshot func() *ProgressRecord) *AutoSaver {
	return &AutoSaver{
		store:    store,
		snapshot: snapshot,
		interval: interval,
	}
}

// Start begins the save loop.
func (a *AutoSaver) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		logger := log.With("component", "onboarding.autosaver")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := a.store.Save(a.snapshot()); err != nil {
					logger.Warn("autosave failed, will retry next tick", "error", err)
				}
			}
		}
	}()
}

// Stop halts the save loop and waits for it to exit.
func (a *AutoSaver) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
}
