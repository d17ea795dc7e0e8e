package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"alsampler/internal/adapter/vecmath"
	"alsampler/internal/domain"
	"alsampler/internal/port"
)

type storedVector struct {
	Dataset string    `json:"d,omitempty"`
	Vector  []float32 `json:"v"`
}

// Dimension returns the embedding dimension fixed by the first import, or 0.
func (s *BoltStore) Dimension() (int, error) {
	var dim int
	err := s.db.View(func(tx *bbolt.Tx) error {
		dim = getDimension(tx)
		return nil
	})
	return dim, err
}

func getDimension(tx *bbolt.Tx) int {
	data := tx.Bucket(bucketStats).Get(keyDimension)
	if len(data) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(data))
}

func setDimension(tx *bbolt.Tx, dim int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dim))
	return tx.Bucket(bucketStats).Put(keyDimension, buf)
}

// checkDimension pins the store dimension on first use and rejects
// vectors of any other length afterwards.
func checkDimension(tx *bbolt.Tx, records []port.EmbeddingRecord) error {
	dim := getDimension(tx)
	for _, rec := range records {
		if dim == 0 {
			dim = len(rec.Vector)
			if err := setDimension(tx, dim); err != nil {
				return err
			}
		}
		if len(rec.Vector) != dim {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", rec.ID, dim, len(rec.Vector))
		}
	}
	return nil
}

// UpsertClips adds or replaces clip embeddings in one transaction.
func (s *BoltStore) UpsertClips(dataset string, records []port.EmbeddingRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := checkDimension(tx, records); err != nil {
			return err
		}
		b := tx.Bucket(bucketClips)
		for _, rec := range records {
			if rec.ID == "" {
				return fmt.Errorf("clip id is required")
			}
			data, err := json.Marshal(storedVector{Dataset: dataset, Vector: rec.Vector})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutReferences adds or replaces reference embeddings in one transaction.
func (s *BoltStore) PutReferences(records []port.EmbeddingRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := checkDimension(tx, records); err != nil {
			return err
		}
		b := tx.Bucket(bucketReferences)
		for _, rec := range records {
			if rec.Category == nil {
				return fmt.Errorf("reference %s has no category", rec.ID)
			}
			data, err := json.Marshal(storedVector{Vector: rec.Vector})
			if err != nil {
				return err
			}
			if err := b.Put(referenceKey(domain.CategoryID(*rec.Category), rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func getClip(b *bbolt.Bucket, id string) (storedVector, bool, error) {
	var stored storedVector
	data := b.Get([]byte(id))
	if data == nil {
		return stored, false, nil
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return stored, false, err
	}
	return stored, true, nil
}

func (s *BoltStore) GetClip(id string) (domain.EmbeddingVector, error) {
	var clip domain.EmbeddingVector
	err := s.db.View(func(tx *bbolt.Tx) error {
		stored, ok, err := getClip(tx.Bucket(bucketClips), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("clip %s: %w", id, port.ErrNotFound)
		}
		clip = domain.EmbeddingVector{ID: id, Vector: stored.Vector}
		return nil
	})
	return clip, err
}

// CountClips returns the number of stored clips in scope.
func (s *BoltStore) CountClips(scope string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClips).ForEach(func(k, v []byte) error {
			if scope == "" {
				n++
				return nil
			}
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return err
			}
			if stored.Dataset == scope {
				n++
			}
			return nil
		})
	})
	return n, err
}

// FetchPool scans clips in key order and returns the valid ones in scope
// that are not excluded, stopping after max when max > 0.
func (s *BoltStore) FetchPool(scope string, exclude map[string]struct{}, max int) ([]domain.EmbeddingVector, error) {
	var pool []domain.EmbeddingVector
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketClips).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if max > 0 && len(pool) >= max {
				break
			}
			if _, skip := exclude[string(k)]; skip {
				continue
			}
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				continue // skip corrupted entries
			}
			if scope != "" && stored.Dataset != scope {
				continue
			}
			if !vecmath.IsValid(stored.Vector) {
				continue
			}
			pool = append(pool, domain.EmbeddingVector{ID: string(k), Vector: stored.Vector})
		}
		return nil
	})
	return pool, err
}
