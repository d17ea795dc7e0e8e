package port

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// EmbeddingReader decodes one embedding file.
type EmbeddingReader interface {
	ReadEmbeddings(path string) ([]EmbeddingRecord, error)
}

// EmbeddingRecord is one decoded line of an embedding file.
type EmbeddingRecord struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Category *int64    `json:"category,omitempty"`
}
