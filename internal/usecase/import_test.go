package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"alsampler/internal/adapter/fs"
	"alsampler/internal/adapter/memstore"
)

func TestImportClipsAndReferences(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.jsonl":        `{"id":"c1","vector":[1,0]}` + "\n" + `{"id":"c2","vector":[0,1]}` + "\n",
		"nested/b.jsonl": `{"id":"c3","vector":[1,1]}` + "\n",
		"broken.jsonl":   "not json\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	st := memstore.NewMemoryStore()
	uc := NewImportUseCase(st, fs.NewWalker(nil, nil), fs.NewJSONLReader(), 1)

	var calls, lastTotal int
	result, err := uc.Import(root, "ds", ImportClips, func(processed, total int, _ string) {
		calls++
		lastTotal = total
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesRead != 2 || result.FilesFailed != 1 || len(result.Errors) != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.RecordsStored != 3 {
		t.Errorf("expected 3 records, got %d", result.RecordsStored)
	}
	if calls != 3 || lastTotal != 3 {
		t.Errorf("expected 3 progress calls over 3 files, got %d calls, total %d", calls, lastTotal)
	}

	pool, err := st.FetchPool("ds", nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 3 {
		t.Errorf("expected 3 clips in pool, got %d", len(pool))
	}

	refPath := filepath.Join(t.TempDir(), "refs.jsonl")
	if err := os.WriteFile(refPath, []byte(`{"id":"r1","vector":[1,0],"category":4}`+"\n"+`{"id":"r2","vector":[0,1]}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	result, err = uc.Import(refPath, "", ImportReferences, nil)
	if err != nil {
		t.Fatal(err)
	}
	// The second record has no category, so the batch after the first fails.
	if result.FilesFailed != 1 || result.RecordsStored != 1 {
		t.Errorf("unexpected reference import result %+v", result)
	}
}
