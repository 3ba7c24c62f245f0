package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
)

// DefaultStatusFileName is used when StatusFile is given a directory.
const DefaultStatusFileName = "status.json"

// Status is the document written to the status file.
type Status struct {
	State     domain.DisplayState `json:"state"`
	UpdatedAt time.Time           `json:"updated_at"`
	LastError string              `json:"last_error,omitempty"`
	ErrorAt   *time.Time          `json:"error_at,omitempty"`
}

// StatusFile implements ports.StatusSink and ports.ErrorReporter by
// persisting the latest display state and user-facing error as JSON.
// Writes are atomic (temp file, then rename).
type StatusFile struct {
	path   string
	logger ports.Logger
	now    func() time.Time

	mu     sync.Mutex
	status Status
}

// NewStatusFile creates a status file sink writing to path. If path is an
// existing directory, DefaultStatusFileName is appended.
func NewStatusFile(path string, logger ports.Logger) *StatusFile {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DefaultStatusFileName)
	}
	return &StatusFile{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// SetStatus records the display state.
func (f *StatusFile) SetStatus(state domain.DisplayState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status.State = state
	f.status.UpdatedAt = f.now().UTC()
	f.saveLocked()
}

// ReportError records the user-facing error.
func (f *StatusFile) ReportError(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	at := f.now().UTC()
	f.status.LastError = err.Error()
	f.status.ErrorAt = &at
	f.status.UpdatedAt = at
	f.saveLocked()
}

// Load reads the status file. It returns an empty Status and nil error if
// the file does not exist.
func (f *StatusFile) Load() (Status, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{}, nil
		}
		return Status{}, err
	}

	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}, err
	}
	return st, nil
}

// Path returns the full path to the status file.
func (f *StatusFile) Path() string {
	return f.path
}

func (f *StatusFile) saveLocked() {
	if err := f.write(f.status); err != nil {
		f.logger.Warn("failed to write status file",
			ports.String("path", f.path),
			ports.Err(err),
		)
	}
}

func (f *StatusFile) write(st Status) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

var (
	_ ports.StatusSink    = (*StatusFile)(nil)
	_ ports.ErrorReporter = (*StatusFile)(nil)
)
