package ytdlp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Entry is one row of the URL table: a source URL and the title the
// downloaded audio file is named after.
type Entry struct {
	URL   string
	Title string
}

// LoadTable reads a url,title CSV. A header row is recognized and skipped; a
// missing file yields an empty table so runs without a download list proceed.
func LoadTable(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open url table %q: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse url table %q: %w", path, err)
	}

	entries := make([]Entry, 0, len(records))
	for i, record := range records {
		url := strings.TrimSpace(record[0])
		title := strings.TrimSpace(record[1])
		if i == 0 && strings.EqualFold(url, "url") && strings.EqualFold(title, "title") {
			continue
		}
		if url == "" {
			continue
		}
		if title == "" {
			return nil, fmt.Errorf("url table %q row %d: title required", path, i+1)
		}
		entries = append(entries, Entry{URL: url, Title: sanitizeTitle(title)})
	}
	return entries, nil
}

// sanitizeTitle makes a table title safe to use as a file basename.
func sanitizeTitle(title string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")
	return strings.TrimSpace(replacer.Replace(title))
}
