package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Item is one unit of work a stage discovered. Key identifies the item across
// every stage; Outputs are the final artifact paths whose presence means the
// work is already done.
type Item struct {
	Key     string
	Source  string
	Outputs []string
}

// Definition describes a pipeline stage.
type Definition struct {
	// Name is the short verb used in logs and CLI output ("extract").
	Name string

	// Column is the ledger column the stage completes ("extracted").
	Column string

	// DependsOnAny lists upstream ledger columns; an item is eligible when at
	// least one of them is complete. Empty means no ledger gating, the stage
	// admits anything it discovers.
	DependsOnAny []string

	// Discover lists the items the stage could work on, sorted by key.
	Discover func(ctx context.Context) ([]Item, error)

	// Handler performs the work for one item. It must write every output
	// atomically: stage into scratch space and rename, so a crash never
	// leaves a partial artifact at a final path.
	Handler func(ctx context.Context, item Item) error
}

func (d Definition) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("stage definition: name required")
	}
	if strings.TrimSpace(d.Column) == "" {
		return fmt.Errorf("stage %q: ledger column required", d.Name)
	}
	if d.Discover == nil {
		return fmt.Errorf("stage %q: discover required", d.Name)
	}
	if d.Handler == nil {
		return fmt.Errorf("stage %q: handler required", d.Name)
	}
	return nil
}

// DirSource builds a Discover func that scans dir for files matching any of
// the glob patterns. The item key is the file basename without extension;
// outputFor maps a key to the stage's final artifact paths.
func DirSource(dir string, patterns []string, outputFor func(key string) []string) func(ctx context.Context) ([]Item, error) {
	return func(ctx context.Context) ([]Item, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("scan %q: %w", dir, err)
		}

		items := make([]Item, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if !matchesAny(name, patterns) {
				continue
			}
			key := strings.TrimSuffix(name, filepath.Ext(name))
			if key == "" {
				continue
			}
			items = append(items, Item{
				Key:     key,
				Source:  filepath.Join(dir, name),
				Outputs: outputFor(key),
			})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
		return items, nil
	}
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, pattern := range patterns {
		if ok, err := filepath.Match(strings.ToLower(pattern), lower); err == nil && ok {
			return true
		}
	}
	return false
}

// OutputsExist reports whether every final artifact for the item is present.
func OutputsExist(item Item) bool {
	if len(item.Outputs) == 0 {
		return false
	}
	for _, output := range item.Outputs {
		if _, err := os.Stat(output); err != nil {
			return false
		}
	}
	return true
}
