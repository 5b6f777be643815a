package state

import (
	"fmt"
	"time"

	"github.com/waveforge/orc/internal/models"
	"go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
)

var snapshotBucket = []byte("feature_state")

// BoltSnapshotStore is an alternative Tier B backend for deployments that
// want transactional multi-key reads (tasks, workers, levels) without the
// flat-file-plus-flock snapshot. It stores the same models.FeatureState
// document, keyed by feature ID, inside a single bbolt database file.
type BoltSnapshotStore struct {
	db *bbolt.DB
}

// OpenBoltSnapshotStore opens (creating if necessary) a bbolt-backed
// snapshot store at path.
func OpenBoltSnapshotStore(path string) (*BoltSnapshotStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("state: bolt: open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("state: bolt: init bucket: %w", err)
	}
	return &BoltSnapshotStore{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *BoltSnapshotStore) Close() error {
	return s.db.Close()
}

// Save writes fs under featureID in one transaction.
func (s *BoltSnapshotStore) Save(featureID string, fs *models.FeatureState) error {
	data, err := yaml.Marshal(fs)
	if err != nil {
		return fmt.Errorf("state: bolt: marshal: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(featureID), data)
	})
}

// Load reads the FeatureState stored under featureID, or returns
// (nil, nil) if there is no entry yet.
func (s *BoltSnapshotStore) Load(featureID string) (*models.FeatureState, error) {
	var fs *models.FeatureState
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(snapshotBucket).Get([]byte(featureID))
		if data == nil {
			return nil
		}
		var loaded models.FeatureState
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("state: bolt: unmarshal: %w", err)
		}
		fs = &loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fs, nil
}
