// Package corpus loads passage records from JSONL corpus files for ingestion.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Record is a single passage line in a JSONL corpus file.
type Record struct {
	// ID is optional; the ingest pipeline assigns a UUID when empty.
	ID string `json:"id,omitempty"`

	// Source is the origin of the passage (file name or URL).
	Source string `json:"source"`

	// Text is the passage content.
	Text string `json:"text"`

	// Page is the page number within the source, when paginated.
	Page *int `json:"page,omitempty"`
}

// ScanCorpusDir finds all JSONL files under the given directory.
func ScanCorpusDir(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Load reads JSONL passage records from r. Blank lines are skipped; a
// malformed line fails the load with its line number so the corpus file can
// be fixed rather than silently dropped.
func Load(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	var records []Record
	line := 0

	for scanner.Scan() {
		line++

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("parsing corpus line %d: %w", line, err)
		}

		if strings.TrimSpace(record.Text) == "" {
			return nil, fmt.Errorf("corpus line %d: passage text is empty", line)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	return records, nil
}

// LoadFile reads JSONL passage records from the file at path.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	return Load(f)
}
