package pipeline

import (
	"lectern/internal/config"
	"lectern/internal/ledger"
)

// ItemStatus is one ledger row for display.
type ItemStatus struct {
	Key  string
	Done map[string]bool
}

// Snapshot is a read-only view of the ledger for status output.
type Snapshot struct {
	LedgerPath string
	Columns    []string
	Items      []ItemStatus
	Counts     map[string]int
}

// Status loads the ledger without taking the run lock and summarizes it.
// Reads are safe alongside a running pipeline because saves replace the file
// atomically.
func Status(cfg *config.Config) (*Snapshot, error) {
	led, err := ledger.Load(cfg.Paths.LedgerPath, Columns())
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		LedgerPath: cfg.Paths.LedgerPath,
		Columns:    led.Stages(),
		Counts:     make(map[string]int, len(Columns())),
	}
	for _, column := range snapshot.Columns {
		snapshot.Counts[column] = led.StageCount(column)
	}
	for _, key := range led.Items() {
		done := make(map[string]bool, len(snapshot.Columns))
		for _, column := range snapshot.Columns {
			done[column] = led.IsComplete(key, column)
		}
		snapshot.Items = append(snapshot.Items, ItemStatus{Key: key, Done: done})
	}
	return snapshot, nil
}
