package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"alsampler/internal/port"
)

const maxLineBytes = 64 << 20

// JSONLReader decodes files with one {"id", "vector", "category"} object
// per line. Blank lines are skipped.
type JSONLReader struct{}

func NewJSONLReader() *JSONLReader {
	return &JSONLReader{}
}

func (r *JSONLReader) ReadEmbeddings(path string) ([]port.EmbeddingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []port.EmbeddingRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec port.EmbeddingRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("%s:%d: missing id", path, line)
		}
		if len(rec.Vector) == 0 {
			return nil, fmt.Errorf("%s:%d: empty vector for %s", path, line, rec.ID)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}
