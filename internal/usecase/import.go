package usecase

import (
	"fmt"

	"alsampler/internal/port"
)

// ProgressFunc is called after each file with the number of files done.
type ProgressFunc func(processed, total int, currentFile string)

// ImportKind selects what an import loads.
type ImportKind int

const (
	ImportClips ImportKind = iota
	ImportReferences
)

// ImportUseCase loads embedding files into a store.
type ImportUseCase struct {
	writer    port.ClipWriter
	walker    port.FileWalker
	reader    port.EmbeddingReader
	batchSize int
}

// NewImportUseCase creates an import use case. batchSize <= 0 writes each
// file in a single batch.
func NewImportUseCase(writer port.ClipWriter, walker port.FileWalker, reader port.EmbeddingReader, batchSize int) *ImportUseCase {
	return &ImportUseCase{
		writer:    writer,
		walker:    walker,
		reader:    reader,
		batchSize: batchSize,
	}
}

// ImportResult contains the results of an import.
type ImportResult struct {
	FilesRead     int
	FilesFailed   int
	RecordsStored int
	Errors        []string
}

// Import reads every embedding file under root and upserts its records.
// A file that fails to decode or store is reported in Errors and the
// import continues with the next file.
func (u *ImportUseCase) Import(root, dataset string, kind ImportKind, progress ProgressFunc) (*ImportResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	result := &ImportResult{}
	for i, file := range files {
		n, err := u.importFile(file.Path, dataset, kind)
		result.RecordsStored += n
		if err != nil {
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import %s: %v", file.Path, err))
		} else {
			result.FilesRead++
		}
		if progress != nil {
			progress(i+1, len(files), file.Path)
		}
	}
	return result, nil
}

func (u *ImportUseCase) importFile(path, dataset string, kind ImportKind) (int, error) {
	records, err := u.reader.ReadEmbeddings(path)
	if err != nil {
		return 0, err
	}

	batchSize := u.batchSize
	if batchSize <= 0 {
		batchSize = len(records)
	}

	stored := 0
	for start := 0; start < len(records); start += batchSize {
		batch := records[start:min(start+batchSize, len(records))]
		switch kind {
		case ImportReferences:
			err = u.writer.PutReferences(batch)
		default:
			err = u.writer.UpsertClips(dataset, batch)
		}
		if err != nil {
			return stored, err
		}
		stored += len(batch)
	}
	return stored, nil
}
