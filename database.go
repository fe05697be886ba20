package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

const (
	subPrefix  = "sub:"
	metaPrefix = "meta:"
	subSeqKey  = "seq:sub"

	metaChecksCount = "checks_count"
	metaLastCheckTS = "last_check_ts"
)

// Store keeps subscriptions and string metadata in badger.
// keys: sub:<zero padded id> -> Subscription json, meta:<key> -> value, seq:sub -> last id.
// Every method is one badger transaction.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

func NewStore(db *badger.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func getSubKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", subPrefix, id))
}

func getMetaKey(key string) []byte {
	return []byte(metaPrefix + key)
}

func lastReportKey(subID int64) string {
	return fmt.Sprintf("sub:%d:last_report_ts", subID)
}

// ---- subscriptions ----

func (s *Store) InsertSubscription(ns NewSubscription) (int64, error) {
	var id int64

	err := s.db.Update(func(txn *badger.Txn) error {
		last, err := getInt(txn, []byte(subSeqKey))
		if err != nil {
			return err
		}
		id = last + 1

		ts := s.now().Unix()
		sub := Subscription{
			ID:          id,
			UserID:      ns.UserID,
			CityFromID:  ns.CityFromID,
			CityToID:    ns.CityToID,
			FromName:    ns.FromName,
			ToName:      ns.ToName,
			DateStr:     ns.DateStr,
			DepFromHHMM: ns.DepFromHHMM,
			DepToHHMM:   ns.DepToHHMM,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}

		jsn, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(subSeqKey), []byte(strconv.FormatInt(id, 10))); err != nil {
			return err
		}
		return txn.Set(getSubKey(id), jsn)
	})
	if err != nil {
		return 0, fmt.Errorf("insert subscription: %w", err)
	}

	return id, nil
}

// ListAll returns every subscription in id order.
func (s *Store) ListAll() ([]Subscription, error) {
	return s.list(func(Subscription) bool { return true })
}

func (s *Store) ListByOwner(userID int64) ([]Subscription, error) {
	return s.list(func(sub Subscription) bool { return sub.UserID == userID })
}

func (s *Store) list(keep func(Subscription) bool) ([]Subscription, error) {
	subs := []Subscription{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(subPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			var sub Subscription
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sub)
			})
			if err != nil {
				return fmt.Errorf("key %s: %w", it.Item().Key(), err)
			}
			if keep(sub) {
				subs = append(subs, sub)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	return subs, nil
}

// DeleteSubscription removes the subscription if userID owns it.
func (s *Store) DeleteSubscription(userID, id int64) (bool, error) {
	deleted := false

	err := s.db.Update(func(txn *badger.Txn) error {
		sub, err := getSubscription(txn, id)
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if sub.UserID != userID {
			return nil
		}

		if err := deleteSubscription(txn, id); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete subscription %d: %w", id, err)
	}

	return deleted, nil
}

func (s *Store) DeleteAllForOwner(userID int64) (int, error) {
	owned, err := s.ListByOwner(userID)
	if err != nil {
		return 0, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, sub := range owned {
			if err := deleteSubscription(txn, sub.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions of %d: %w", userID, err)
	}

	return len(owned), nil
}

func (s *Store) UpdateFingerprint(id int64, fp string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		sub, err := getSubscription(txn, id)
		if err != nil {
			return err
		}

		sub.LastHash = fp
		sub.UpdatedAt = s.now().Unix()

		jsn, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		return txn.Set(getSubKey(id), jsn)
	})
	if err != nil {
		return fmt.Errorf("update fingerprint of %d: %w", id, err)
	}

	return nil
}

func getSubscription(txn *badger.Txn, id int64) (Subscription, error) {
	var sub Subscription

	item, err := txn.Get(getSubKey(id))
	if err == badger.ErrKeyNotFound {
		return sub, ErrSubscriptionNotFound
	} else if err != nil {
		return sub, err
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sub)
	})
	return sub, err
}

func deleteSubscription(txn *badger.Txn, id int64) error {
	if err := txn.Delete(getSubKey(id)); err != nil {
		return err
	}
	return txn.Delete(getMetaKey(lastReportKey(id)))
}

// ---- meta ----

// GetMeta returns "" for a key that was never set.
func (s *Store) GetMeta(key string) (string, error) {
	var value string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(getMetaKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		value = string(val)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("get meta %q: %w", key, err)
	}

	return value, nil
}

func (s *Store) SetMeta(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(getMetaKey(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

func getInt(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(val), 10, 64)
}
