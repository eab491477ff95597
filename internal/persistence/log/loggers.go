package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/oklog/ulid/v2"

	"voxelforge.ai/internal/structure"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// IssueEntry is one skipped cell or failed entry from a generate run.
type IssueEntry struct {
	Rel   [3]int `json:"rel"`
	Pos   [3]int `json:"pos"`
	Error string `json:"error"`
}

// GenerateLogEntry records one Generate call.
type GenerateLogEntry struct {
	RunID string `json:"run_id"`
	Time  string `json:"time"`

	Key  string `json:"key"`
	Base [3]int `json:"base"`
	Size [3]int `json:"size"`

	Placed     int `json:"placed"`
	Air        int `json:"air"`
	LootFilled int `json:"loot_filled"`
	Entries    int `json:"entries"`
	Orphaned   int `json:"orphaned,omitempty"`

	Skipped     []IssueEntry `json:"skipped,omitempty"`
	EntryErrors []IssueEntry `json:"entry_errors,omitempty"`
	// Error is set when the run aborted.
	Error string `json:"error,omitempty"`
}

// NewRunID returns a time-ordered unique id for a generate run.
func NewRunID() string { return ulid.Make().String() }

func issues(in []structure.CellIssue) []IssueEntry {
	if len(in) == 0 {
		return nil
	}
	out := make([]IssueEntry, 0, len(in))
	for _, c := range in {
		out = append(out, IssueEntry{Rel: c.Rel.ToArray(), Pos: c.Pos.ToArray(), Error: c.Err.Error()})
	}
	return out
}

// NewGenerateLogEntry summarizes a run. rep may be nil when the run failed
// before any cell was visited.
func NewGenerateLogEntry(runID string, rep *structure.Report, runErr error) GenerateLogEntry {
	e := GenerateLogEntry{RunID: runID, Time: time.Now().UTC().Format(time.RFC3339Nano)}
	if rep != nil {
		e.Key = rep.Key
		e.Base = rep.Base.ToArray()
		e.Size = rep.Size.ToArray()
		e.Placed = rep.Placed
		e.Air = rep.Air
		e.LootFilled = rep.LootFilled
		e.Entries = rep.Entries
		e.Orphaned = rep.Orphaned
		e.Skipped = issues(rep.Skipped)
		e.EntryErrors = issues(rep.EntryErrors)
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	return e
}

// GenerateLogger writes one JSONL entry per generate run (compressed).
type GenerateLogger struct{ w *JSONLZstdWriter }

func NewGenerateLogger(dataDir string) *GenerateLogger {
	return &GenerateLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "generate"), "generate")}
}

func (l *GenerateLogger) WriteRun(v GenerateLogEntry) error { return l.w.Write(v) }
func (l *GenerateLogger) Close() error                      { return l.w.Close() }
