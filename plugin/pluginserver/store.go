// Package pluginserver is an embeddable reference plugin host: the backend
// of record the editor core talks to in development and integration tests.
// Pages live in a single bbolt file as JSON block arrays.
package pluginserver

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"blockpad/block"
)

var bucketPages = []byte("pages")

// PageStore persists pages keyed by page id.
type PageStore struct {
	log *zap.Logger
	db  *bolt.DB
}

// OpenStore opens (creating when absent) the page database.
func OpenStore(path string, log *zap.Logger) (*PageStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open page store '%s': %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPages)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to prepare page store: %w", err)
	}
	return &PageStore{log: log.Named("pagestore"), db: db}, nil
}

// LoadPage returns the stored block array; a page never saved is empty.
func (s *PageStore) LoadPage(pageID string) ([]*block.Block, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketPages).Get([]byte(pageID)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read page '%s': %w", pageID, err)
	}
	return block.Unmarshal(data, s.log), nil
}

// SavePage persists the block array for a page.
func (s *PageStore) SavePage(pageID string, blocks []*block.Block) error {
	data, err := block.Marshal(blocks)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPages).Put([]byte(pageID), data)
	})
	if err != nil {
		return fmt.Errorf("unable to write page '%s': %w", pageID, err)
	}
	return nil
}

// Pages lists every stored page id.
func (s *PageStore) Pages() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPages).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list pages: %w", err)
	}
	return ids, nil
}

func (s *PageStore) Close() error {
	return s.db.Close()
}
