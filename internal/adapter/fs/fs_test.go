package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jsonl"), "")
	writeFile(t, filepath.Join(root, "nested", "b.jsonl"), "")
	writeFile(t, filepath.Join(root, "nested", "notes.txt"), "")
	writeFile(t, filepath.Join(root, "skip", "c.jsonl"), "")

	tests := []struct {
		name     string
		includes []string
		excludes []string
		want     []string
	}{
		{"defaults", nil, nil, []string{"a.jsonl", "nested/b.jsonl", "skip/c.jsonl"}},
		{"excluded dir", nil, []string{"skip/**"}, []string{"a.jsonl", "nested/b.jsonl"}},
		{"custom include", []string{"**/*.txt"}, nil, []string{"nested/notes.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := NewWalker(tt.includes, tt.excludes).Walk(root)
			if err != nil {
				t.Fatal(err)
			}
			if len(files) != len(tt.want) {
				t.Fatalf("expected %d files, got %d", len(tt.want), len(files))
			}
			for i, want := range tt.want {
				if !strings.HasSuffix(filepath.ToSlash(files[i].Path), want) {
					t.Errorf("file %d = %s, expected suffix %s", i, files[i].Path, want)
				}
			}
		})
	}
}

func TestWalkerSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.json")
	writeFile(t, path, "")

	files, err := NewWalker(nil, nil).Walk(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected the file itself, got %d files", len(files))
	}
}

func TestJSONLReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clips.jsonl")
	writeFile(t, path, `{"id":"a","vector":[0.1,0.2]}

{"id":"b","vector":[1,0],"category":7}
`)

	records, err := NewJSONLReader().ReadEmbeddings(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "a" || len(records[0].Vector) != 2 || records[0].Category != nil {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[1].Category == nil || *records[1].Category != 7 {
		t.Errorf("expected category 7, got %v", records[1].Category)
	}
}

func TestJSONLReaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad json", "{not json}\n", ":1:"},
		{"missing id", `{"vector":[1]}` + "\n", "missing id"},
		{"empty vector", `{"id":"x","vector":[]}` + "\n", "empty vector"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.jsonl")
			writeFile(t, path, tt.content)
			_, err := NewJSONLReader().ReadEmbeddings(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
