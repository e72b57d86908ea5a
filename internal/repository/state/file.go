package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/pump-alarm-gateway/internal/config"
	"github.com/oshokin/pump-alarm-gateway/internal/domain/machine"
)

// Repository defines the shared state channel between the sampling and
// decision processes: the producer publishes the latest snapshot, the
// consumer reads it on its own schedule with an explicit freshness bound.
type Repository interface {
	// Publish overwrites the shared snapshot. The write is atomic: a reader
	// never observes a partially written artifact.
	Publish(ctx context.Context, snapshot *machine.Snapshot) error
	// LoadLatest reads the current snapshot and enforces the staleness
	// bound against the producer timestamp.
	LoadLatest(ctx context.Context, maxAge time.Duration) (*machine.Snapshot, error)
}

var (
	// ErrNotFound is returned when no snapshot has been published yet.
	ErrNotFound = errors.New("snapshot not found")
	// ErrStale is returned when the latest snapshot is older than the
	// staleness bound. The snapshot must not be evaluated as if fresh.
	ErrStale = errors.New("snapshot is stale")
)

// FileRepository keeps the snapshot as a JSON document on durable storage.
// The producer writes to a temporary file in the same directory and renames
// it over the target, so the consumer always sees either the previous or the
// new artifact, never a torn one. No locking between the processes is needed.
type FileRepository struct {
	// path is the filesystem location of the snapshot file.
	path string
	// now is injectable for staleness tests.
	now func() time.Time
	// mu protects against concurrent use within one process.
	mu sync.Mutex
}

// NewFileRepository creates a repository reading and writing JSON at the
// provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
		now:  time.Now,
	}
}

// Publish writes the snapshot atomically via rename.
func (r *FileRepository) Publish(_ context.Context, snapshot *machine.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err = os.WriteFile(tmpPath, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err = os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// LoadLatest reads the snapshot from disk and rejects it when its producer
// timestamp is older than maxAge. A non-positive maxAge disables the check.
func (r *FileRepository) LoadLatest(_ context.Context, maxAge time.Duration) (*machine.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot machine.Snapshot
	if err = json.Unmarshal(contents, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	if maxAge > 0 {
		if age := snapshot.Age(r.now()); age > maxAge {
			return &snapshot, fmt.Errorf("%w: age %s exceeds bound %s", ErrStale, age.Round(time.Millisecond), maxAge)
		}
	}

	return &snapshot, nil
}
