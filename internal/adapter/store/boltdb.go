package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.etcd.io/bbolt"

	"alsampler/internal/adapter/vecmath"
	"alsampler/internal/domain"
	"alsampler/internal/port"
)

var (
	bucketClips      = []byte("clips")
	bucketReferences = []byte("references")
	bucketSessions   = []byte("sessions")
	bucketLabels     = []byte("labels")
	bucketSamples    = []byte("samples")
	bucketStats      = []byte("stats")
	keyDimension     = []byte("dimension")
)

var allBuckets = [][]byte{bucketClips, bucketReferences, bucketSessions, bucketLabels, bucketSamples, bucketStats}

// BoltStore persists clips, references, sessions, labels and sample
// records in a single bbolt file. It implements port.EmbeddingSource,
// port.ClipWriter, port.SessionStore and port.SampleStore.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Keys are "<session>/<clip>" for labels and "<session>/<round>/<seq>" for
// samples so that a session's entries are one contiguous cursor range.
func sessionPrefix(sessionID string) []byte {
	return []byte(sessionID + "/")
}

func labelKey(sessionID, clipID string) []byte {
	return []byte(sessionID + "/" + clipID)
}

func sampleKey(sessionID string, round, seq int) []byte {
	return []byte(fmt.Sprintf("%s/%06d/%06d", sessionID, round, seq))
}

func referenceKey(cat domain.CategoryID, clipID string) []byte {
	return []byte(fmt.Sprintf("%d/%s", cat, clipID))
}

func (s *BoltStore) CreateSession(session domain.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b.Get([]byte(session.ID)) != nil {
			return fmt.Errorf("session %s already exists", session.ID)
		}
		data, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return b.Put([]byte(session.ID), data)
	})
}

func (s *BoltStore) GetSession(id string) (domain.Session, error) {
	var session domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		session, err = getSession(tx, id)
		return err
	})
	return session, err
}

func getSession(tx *bbolt.Tx, id string) (domain.Session, error) {
	var session domain.Session
	data := tx.Bucket(bucketSessions).Get([]byte(id))
	if data == nil {
		return session, fmt.Errorf("session %s: %w", id, port.ErrNotFound)
	}
	err := json.Unmarshal(data, &session)
	return session, err
}

// ListSessions returns every session ordered by creation time.
func (s *BoltStore) ListSessions() ([]domain.Session, error) {
	var sessions []domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var session domain.Session
			if err := json.Unmarshal(v, &session); err != nil {
				return err
			}
			sessions = append(sessions, session)
			return nil
		})
	})
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return sessions, err
}

// PutLabel records or replaces the label of one clip in a session.
func (s *BoltStore) PutLabel(sessionID string, label port.LabelRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := getSession(tx, sessionID); err != nil {
			return err
		}
		if tx.Bucket(bucketClips).Get([]byte(label.ClipID)) == nil {
			return fmt.Errorf("clip %s: %w", label.ClipID, port.ErrNotFound)
		}
		data, err := json.Marshal(label)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketLabels).Put(labelKey(sessionID, label.ClipID), data)
	})
}

// FetchLabels joins the session's labels with their clip embeddings.
// Labels whose clip has since disappeared are skipped.
func (s *BoltStore) FetchLabels(sessionID string) ([]domain.LabeledSample, error) {
	var labels []domain.LabeledSample
	err := s.db.View(func(tx *bbolt.Tx) error {
		if _, err := getSession(tx, sessionID); err != nil {
			return err
		}
		clips := tx.Bucket(bucketClips)
		prefix := sessionPrefix(sessionID)
		c := tx.Bucket(bucketLabels).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var rec port.LabelRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			clip, ok, err := getClip(clips, rec.ClipID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			labels = append(labels, domain.LabeledSample{
				Embedding:  domain.EmbeddingVector{ID: rec.ClipID, Vector: clip.Vector},
				Categories: rec.Categories,
				Negative:   rec.Negative,
			})
		}
		return nil
	})
	return labels, err
}

func (s *BoltStore) FetchTargetCategories(sessionID string) ([]domain.CategoryID, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Targets, nil
}

// FetchReferences returns the valid reference embeddings of every target
// of the session. Targets without references map to an empty slice.
func (s *BoltStore) FetchReferences(sessionID string) (domain.ReferenceSet, error) {
	refs := make(domain.ReferenceSet)
	err := s.db.View(func(tx *bbolt.Tx) error {
		session, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		c := tx.Bucket(bucketReferences).Cursor()
		for _, cat := range session.Targets {
			prefix := []byte(fmt.Sprintf("%d/", cat))
			var vecs []domain.EmbeddingVector
			for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
				var stored storedVector
				if err := json.Unmarshal(v, &stored); err != nil {
					return err
				}
				vecs = append(vecs, domain.EmbeddingVector{
					ID:     strings.TrimPrefix(string(k), string(prefix)),
					Vector: stored.Vector,
				})
			}
			refs[cat] = vecmath.FilterValidEmbeddings(vecs)
		}
		return nil
	})
	return refs, err
}

type storedSample struct {
	ID     string              `json:"id"`
	Record domain.SampleRecord `json:"record"`
}

// SaveSamples appends records to the session under round, preserving order.
func (s *BoltStore) SaveSamples(sessionID string, round int, records []domain.SampleRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := getSession(tx, sessionID); err != nil {
			return err
		}
		b := tx.Bucket(bucketSamples)
		seq := 0
		prefix := []byte(fmt.Sprintf("%s/%06d/", sessionID, round))
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			seq++
		}
		for _, rec := range records {
			data, err := json.Marshal(storedSample{ID: domain.NewSampleID(), Record: rec})
			if err != nil {
				return err
			}
			if err := b.Put(sampleKey(sessionID, round, seq), data); err != nil {
				return err
			}
			seq++
		}
		return nil
	})
}

// ListSamples returns the session's samples by round, then insertion order.
func (s *BoltStore) ListSamples(sessionID string) ([]port.StoredSample, error) {
	var samples []port.StoredSample
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := sessionPrefix(sessionID)
		c := tx.Bucket(bucketSamples).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			roundPart, _, _ := strings.Cut(strings.TrimPrefix(string(k), string(prefix)), "/")
			round, err := strconv.Atoi(roundPart)
			if err != nil {
				return fmt.Errorf("malformed sample key %q: %w", k, err)
			}
			var stored storedSample
			if err := json.Unmarshal(v, &stored); err != nil {
				return err
			}
			samples = append(samples, port.StoredSample{ID: stored.ID, Round: round, Record: stored.Record})
		}
		return nil
	})
	return samples, err
}

func (s *BoltStore) NextRound(sessionID string) (int, error) {
	samples, err := s.ListSamples(sessionID)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, nil
	}
	return samples[len(samples)-1].Round + 1, nil
}
