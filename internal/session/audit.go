package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmorn/hex/internal/command"
)

const Version = 1

// Event types written to the audit.
const (
	EventSession   = "session"
	EventDispatch  = "dispatch"
	EventPending   = "pending"
	EventConfirmed = "confirmed"
	EventCancelled = "cancelled"
	EventMacro     = "macro"
	EventReminder  = "reminder"
)

// Event is a single append-only node in an operator's audit trail. The
// parentId chain links events in the order they were written.
type Event struct {
	Type      string         `json:"type"`
	Version   int            `json:"version,omitempty"` // only on session init
	ID        string         `json:"id"`
	ParentID  string         `json:"parentId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    int64          `json:"userId,omitempty"` // only on session init
	Intent    string         `json:"intent,omitempty"`
	Params    command.Params `json:"params,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	Error     string         `json:"error,omitempty"`
	Macro     string         `json:"macro,omitempty"`
	Steps     []Step         `json:"steps,omitempty"` // macro runs only
}

// Step is one macro step as written to the audit.
type Step struct {
	Intent  string         `json:"intent"`
	Params  command.Params `json:"params,omitempty"`
	OK      bool           `json:"ok"`
	Outcome string         `json:"outcome,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// DescriptorEvent builds an event for d with the given outcome. When out
// reports a macro run the per-step results are attached.
func DescriptorEvent(typ string, d command.Descriptor, out command.Outcome) Event {
	e := Event{Type: typ, Intent: string(d.Intent), Params: d.Params}
	if out == nil {
		return e
	}
	e.Outcome = out.Message()
	e.Error = errorText(out)
	if text, ok := out.(command.TextOutcome); ok && text.Report != nil {
		e.Macro = text.Report.Name
		for _, s := range text.Report.Steps {
			e.Steps = append(e.Steps, Step{
				Intent:  string(s.Step.Intent),
				Params:  s.Step.Params,
				OK:      !command.Failed(s.Outcome),
				Outcome: s.Outcome.Message(),
				Error:   errorText(s.Outcome),
			})
		}
	}
	return e
}

// DispatchEvent is the event for an executed descriptor: EventMacro for a
// macro run, EventDispatch otherwise.
func DispatchEvent(d command.Descriptor, out command.Outcome) Event {
	if text, ok := out.(command.TextOutcome); ok && text.Report != nil {
		return DescriptorEvent(EventMacro, d, out)
	}
	return DescriptorEvent(EventDispatch, d, out)
}

func errorText(out command.Outcome) string {
	if fail, ok := out.(command.ErrorOutcome); ok && fail.Err != nil {
		return fail.Err.Error()
	}
	return ""
}

// recorder writes one operator's events to an append-only JSONL file.
type recorder struct {
	userID int64
	file   *os.File
	mu     sync.Mutex
	lastID string
}

func newRecorder(path string, userID int64) (*recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	r := &recorder{userID: userID, file: f}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat audit file: %w", err)
	}
	if info.Size() == 0 {
		init := Event{Type: EventSession, Version: Version, ID: uuid.NewString(), Timestamp: time.Now().UTC(), UserID: userID}
		if err := r.writeEvent(init); err != nil {
			_ = f.Close()
			return nil, err
		}
		r.lastID = init.ID
	}
	return r, nil
}

func (r *recorder) record(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.ID = uuid.NewString()
	e.ParentID = r.lastID
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := r.writeEvent(e); err != nil {
		return err
	}
	r.lastID = e.ID
	return nil
}

func (r *recorder) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

func (r *recorder) writeEvent(e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	b = append(b, '\n')
	_, err = r.file.Write(b)
	return err
}

// Audit manages one recorder per operator, lazily creating JSONL files
// under dir as <dir>/<userID>.jsonl. Safe for concurrent use. A nil *Audit
// records nothing.
type Audit struct {
	dir       string
	log       *zap.Logger
	mu        sync.Mutex
	recorders map[int64]*recorder
}

// NewAudit creates an Audit writing to dir, creating it if needed.
func NewAudit(dir string, log *zap.Logger) (*Audit, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Audit{dir: dir, log: log, recorders: make(map[int64]*recorder)}, nil
}

// Record appends e to the operator's audit file. Failures are logged, never
// returned.
func (a *Audit) Record(userID int64, e Event) {
	if a == nil {
		return
	}
	r, err := a.recorderFor(userID)
	if err != nil {
		a.log.Warn("audit: open recorder", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if err := r.record(e); err != nil {
		a.log.Warn("audit: write", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Close closes all open recorders.
func (a *Audit) Close() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.recorders {
		_ = r.close()
	}
	a.recorders = make(map[int64]*recorder)
}

func (a *Audit) recorderFor(userID int64) (*recorder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.recorders[userID]; ok {
		return r, nil
	}
	path := filepath.Join(a.dir, fmt.Sprintf("%d.jsonl", userID))
	r, err := newRecorder(path, userID)
	if err != nil {
		return nil, err
	}
	a.recorders[userID] = r
	return r, nil
}
