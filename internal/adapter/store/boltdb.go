package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var (
	_ port.InteractionLog     = (*BoltStore)(nil)
	_ port.InteractionHistory = (*BoltStore)(nil)
)

var (
	bucketInteractions = []byte("interactions")
	bucketMeta         = []byte("meta")
)

// BoltStore keeps interactions in a bbolt bucket keyed by an increasing
// big-endian sequence, so cursor order is append order.
type BoltStore struct {
	mu sync.Mutex
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketInteractions, bucketMeta} {
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

	s := &BoltStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

type interactionRecord struct {
	Timestamp int64             `json:"ts"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Quality   float64           `json:"quality"`
	Citations []domain.Citation `json:"citations"`
}

func (s *BoltStore) Append(ctx context.Context, in domain.Interaction) error {
	data, err := json.Marshal(interactionRecord{
		Timestamp: in.Timestamp.Unix(),
		Question:  in.Question,
		Answer:    in.Answer,
		Quality:   in.Quality,
		Citations: in.Citations,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketInteractions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

func (s *BoltStore) Recent(ctx context.Context, n int) ([]domain.Interaction, error) {
	var out []domain.Interaction
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketInteractions).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(out) == n {
				break
			}
			var rec interactionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode interaction %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, domain.Interaction{
				Timestamp: time.Unix(rec.Timestamp, 0),
				Question:  rec.Question,
				Answer:    rec.Answer,
				Quality:   rec.Quality,
				Citations: rec.Citations,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
