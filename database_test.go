package main

import (
	"errors"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func testSubscription(userID int64, from, to string) NewSubscription {
	return NewSubscription{
		UserID:      userID,
		CityFromID:  from,
		CityToID:    to,
		FromName:    "Vilnius",
		ToName:      "Minsk",
		DateStr:     "02.09.2025",
		DepFromHHMM: "20:00",
		DepToHHMM:   "23:00",
	}
}

func TestStore_InsertAndList(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	var ids []int64
	for _, userID := range []int64{10, 20, 10} {
		id, err := store.InsertSubscription(testSubscription(userID, "78", "2"))
		if err != nil {
			t.Fatalf("InsertSubscription failed: %v", err)
		}
		ids = append(ids, id)
	}
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll returned %d subscriptions, want 3", len(all))
	}
	for i, s := range all {
		if s.ID != ids[i] {
			t.Errorf("all[%d].ID = %d, want %d", i, s.ID, ids[i])
		}
	}
	if all[0].LastHash != "" || all[0].CreatedAt != 1_700_000_000 {
		t.Errorf("new subscription = %+v", all[0])
	}

	mine, err := store.ListByOwner(10)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != 1 || mine[1].ID != 3 {
		t.Errorf("ListByOwner(10) = %+v", mine)
	}
}

func TestStore_ListOrderBeyondNineIDs(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 12; i++ {
		if _, err := store.InsertSubscription(testSubscription(1, "78", "2")); err != nil {
			t.Fatalf("InsertSubscription failed: %v", err)
		}
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	for i, s := range all {
		if s.ID != int64(i+1) {
			t.Fatalf("all[%d].ID = %d, want %d", i, s.ID, i+1)
		}
	}
}

func TestStore_DeleteSubscription(t *testing.T) {
	store := newTestStore(t)
	id, err := store.InsertSubscription(testSubscription(10, "78", "2"))
	if err != nil {
		t.Fatalf("InsertSubscription failed: %v", err)
	}
	if err := store.SetMeta(lastReportKey(id), "123"); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}

	ok, err := store.DeleteSubscription(99, id)
	if err != nil || ok {
		t.Errorf("DeleteSubscription by another user = (%v, %v), want (false, nil)", ok, err)
	}

	ok, err = store.DeleteSubscription(10, id)
	if err != nil || !ok {
		t.Fatalf("DeleteSubscription = (%v, %v), want (true, nil)", ok, err)
	}

	all, _ := store.ListAll()
	if len(all) != 0 {
		t.Errorf("subscriptions left: %+v", all)
	}
	if v, _ := store.GetMeta(lastReportKey(id)); v != "" {
		t.Errorf("last report meta = %q, want it removed", v)
	}

	ok, err = store.DeleteSubscription(10, id)
	if err != nil || ok {
		t.Errorf("second delete = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestStore_DeleteAllForOwner(t *testing.T) {
	store := newTestStore(t)
	for _, userID := range []int64{1, 2, 1, 1} {
		if _, err := store.InsertSubscription(testSubscription(userID, "78", "2")); err != nil {
			t.Fatalf("InsertSubscription failed: %v", err)
		}
	}

	n, err := store.DeleteAllForOwner(1)
	if err != nil {
		t.Fatalf("DeleteAllForOwner failed: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d, want 3", n)
	}

	all, _ := store.ListAll()
	if len(all) != 1 || all[0].UserID != 2 {
		t.Errorf("remaining = %+v", all)
	}
}

func TestStore_UpdateFingerprint(t *testing.T) {
	store := newTestStore(t)
	clock := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return clock }

	id, err := store.InsertSubscription(testSubscription(1, "78", "2"))
	if err != nil {
		t.Fatalf("InsertSubscription failed: %v", err)
	}

	clock = clock.Add(time.Minute)
	if err := store.UpdateFingerprint(id, "21:00->21:45"); err != nil {
		t.Fatalf("UpdateFingerprint failed: %v", err)
	}

	all, _ := store.ListAll()
	if all[0].LastHash != "21:00->21:45" {
		t.Errorf("LastHash = %q", all[0].LastHash)
	}
	if all[0].UpdatedAt != clock.Unix() || all[0].CreatedAt == all[0].UpdatedAt {
		t.Errorf("timestamps = created %d updated %d", all[0].CreatedAt, all[0].UpdatedAt)
	}

	if err := store.UpdateFingerprint(404, "x"); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("UpdateFingerprint(unknown) = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestStore_Meta(t *testing.T) {
	store := newTestStore(t)

	v, err := store.GetMeta("checks_count")
	if err != nil || v != "" {
		t.Errorf("GetMeta(unset) = (%q, %v), want (\"\", nil)", v, err)
	}

	if err := store.SetMeta("checks_count", "42"); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	v, err = store.GetMeta("checks_count")
	if err != nil || v != "42" {
		t.Errorf("GetMeta = (%q, %v), want (\"42\", nil)", v, err)
	}

	// meta keys that look like subscription keys must not leak into listings
	if err := store.SetMeta(lastReportKey(7), "1"); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	all, err := store.ListAll()
	if err != nil || len(all) != 0 {
		t.Errorf("ListAll = (%+v, %v), want empty", all, err)
	}
}
