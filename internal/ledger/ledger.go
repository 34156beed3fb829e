package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"lectern/internal/fileutil"
)

// completeMark is the value persisted for a finished stage, matching the
// hand-maintained logs the ledger replaced.
const completeMark = "O"

const keyColumn = "item"

// Ledger tracks completion flags for every work item across a fixed set of
// stage columns.
type Ledger struct {
	path   string
	stages []string
	cols   map[string]int
	rows   map[string][]bool
}

// New returns an empty ledger persisted at path with the given stage columns.
func New(path string, stages []string) *Ledger {
	cols := make(map[string]int, len(stages))
	ordered := make([]string, len(stages))
	for i, stage := range stages {
		ordered[i] = stage
		cols[stage] = i
	}
	return &Ledger{
		path:   path,
		stages: ordered,
		cols:   cols,
		rows:   make(map[string][]bool),
	}
}

// Load reads the persisted ledger at path. A missing file yields an empty
// ledger; an unreadable file or a header that does not match the expected
// stage columns yields ErrCorrupt.
func Load(path string, stages []string) (*Ledger, error) {
	l := New(path, stages)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("%w: read %q: %w", ErrCorrupt, path, err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = len(stages) + 1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %w", ErrCorrupt, path, err)
	}
	if len(records) == 0 {
		return l, nil
	}

	header := records[0]
	if err := validateHeader(header, stages); err != nil {
		return nil, err
	}

	for _, record := range records[1:] {
		key := strings.TrimSpace(record[0])
		if key == "" {
			continue
		}
		flags := l.ensure(key)
		for i := range stages {
			if isComplete(record[i+1]) {
				flags[i] = true
			}
		}
	}
	return l, nil
}

func validateHeader(header, stages []string) error {
	if len(header) != len(stages)+1 {
		return fmt.Errorf("%w: header has %d columns, want %d", ErrCorrupt, len(header), len(stages)+1)
	}
	if !strings.EqualFold(strings.TrimSpace(header[0]), keyColumn) {
		return fmt.Errorf("%w: first column is %q, want %q", ErrCorrupt, header[0], keyColumn)
	}
	for i, stage := range stages {
		if !strings.EqualFold(strings.TrimSpace(header[i+1]), stage) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrCorrupt, i+1, header[i+1], stage)
		}
	}
	return nil
}

func isComplete(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "o", "true", "1", "x":
		return true
	default:
		return false
	}
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}

// Stages returns the stage columns in persisted order.
func (l *Ledger) Stages() []string {
	cp := make([]string, len(l.stages))
	copy(cp, l.stages)
	return cp
}

func (l *Ledger) ensure(key string) []bool {
	flags, ok := l.rows[key]
	if !ok {
		flags = make([]bool, len(l.stages))
		l.rows[key] = flags
	}
	return flags
}

// Ensure records the item without changing any flags, so items discovered by
// a stage show up in the ledger even before anything completes.
func (l *Ledger) Ensure(key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	l.ensure(key)
}

// Upsert sets the completion flag for one item and stage. Setting an already
// true flag to true is a no-op; reverting true to false is refused with
// ErrInvalidTransition.
func (l *Ledger) Upsert(key, stage string, completed bool) error {
	idx, ok := l.cols[stage]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("ledger upsert: item key required")
	}
	flags := l.ensure(key)
	if flags[idx] && !completed {
		return fmt.Errorf("%w: %s/%s cannot revert to incomplete", ErrInvalidTransition, key, stage)
	}
	if completed {
		flags[idx] = true
	}
	return nil
}

// IsComplete reports whether the stage finished for the item. A missing item
// means every stage is incomplete.
func (l *Ledger) IsComplete(key, stage string) bool {
	idx, ok := l.cols[stage]
	if !ok {
		return false
	}
	flags, ok := l.rows[key]
	if !ok {
		return false
	}
	return flags[idx]
}

// Items returns every known item key in sorted order.
func (l *Ledger) Items() []string {
	keys := make([]string, 0, len(l.rows))
	for key := range l.rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of tracked items.
func (l *Ledger) Len() int {
	return len(l.rows)
}

// StageCount returns how many items have completed the stage.
func (l *Ledger) StageCount(stage string) int {
	idx, ok := l.cols[stage]
	if !ok {
		return 0
	}
	count := 0
	for _, flags := range l.rows {
		if flags[idx] {
			count++
		}
	}
	return count
}

// Save atomically replaces the backing file: the CSV is rendered in full,
// written to a temp file in the same directory, and renamed into place. Rows
// persist sorted by key for stable diffs.
func (l *Ledger) Save() error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := append([]string{keyColumn}, l.stages...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("encode ledger header: %w", err)
	}

	for _, key := range l.Items() {
		flags := l.rows[key]
		record := make([]string, len(l.stages)+1)
		record[0] = key
		for i, done := range flags {
			if done {
				record[i+1] = completeMark
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("encode ledger row %q: %w", key, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := fileutil.WriteFileAtomic(l.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
