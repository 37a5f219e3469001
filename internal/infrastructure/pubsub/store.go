package pubsub

import (
	"errors"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

const storeDir = "pubsub"

type store struct {
	db *badgerhold.Store
}

// newStore opens the subscription store under baseDir, in memory if
// baseDir is empty.
func newStore(baseDir string, logger badger.Logger) (*store, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, storeDir)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = logger
	if len(dir) <= 0 {
		opts.InMemory = true
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder: badgerhold.DefaultEncode,
		Decoder: badgerhold.DefaultDecode,
		Options: opts,
	})
	if err != nil {
		return nil, err
	}
	return &store{db}, nil
}

func (s *store) add(sub Subscription) error {
	return s.db.Insert(sub.ID, sub)
}

func (s *store) remove(id string) error {
	if err := s.db.Delete(id, Subscription{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	return nil
}

func (s *store) findByTopics(topics ...string) (subscriptions, error) {
	var query *badgerhold.Query
	if len(topics) > 0 {
		values := make([]interface{}, 0, len(topics))
		for _, t := range topics {
			values = append(values, t)
		}
		query = badgerhold.Where("Event").In(values...).Index("Event")
	}

	var subs subscriptions
	if err := s.db.Find(&subs, query); err != nil {
		return nil, err
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (s *store) close() error {
	return s.db.Close()
}
