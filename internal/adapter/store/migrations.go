package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaVersion = []byte("schema_version")

// SchemaVersion returns the stored schema version, 0 for a new database.
func (s *BoltStore) SchemaVersion() (int, error) {
	var version int
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaVersion)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &version)
	})
	return version, err
}

// Migrate brings the database up to CurrentSchemaVersion. A database written
// by a newer version is refused rather than read with the wrong layout.
func (s *BoltStore) Migrate() error {
	version, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database created by newer version (v%d > v%d)", version, CurrentSchemaVersion)
	}

	for v := version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(CurrentSchemaVersion)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, data)
	})
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		return s.db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketInteractions)
			return err
		})
	default:
		return nil
	}
}
