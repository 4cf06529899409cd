package main

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"

	"github.com/gosuda/room-chat/chat"
)

// historyStore persists room backlogs in a PebbleDB key-value store.
// Keys are "m" 0x00 room 0x00 followed by an 8-byte big-endian sequence
// number that increases monotonically across all rooms.
type historyStore struct {
	db   *pebble.DB
	mu   sync.Mutex
	next uint64
}

func openHistoryStore(dir string) (*historyStore, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, err
	}
	s := &historyStore{db: db}
	// Room prefixes break key order, so the next sequence needs a full scan.
	it, err := db.NewIter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	defer func() { _ = it.Close() }()
	for it.First(); it.Valid(); it.Next() {
		k := it.Key()
		if len(k) < 8 {
			continue
		}
		if seq := binary.BigEndian.Uint64(k[len(k)-8:]); seq >= s.next {
			s.next = seq + 1
		}
	}
	return s, nil
}

func roomPrefix(roomID string) []byte {
	p := make([]byte, 0, len(roomID)+3)
	p = append(p, 'm', 0)
	p = append(p, roomID...)
	return append(p, 0)
}

func (s *historyStore) Append(roomID string, m chat.Message) error {
	if s == nil || s.db == nil {
		return nil
	}
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := roomPrefix(roomID)
	key = binary.BigEndian.AppendUint64(key, s.next)
	s.next++
	return s.db.Set(key, val, pebble.Sync)
}

// LoadRecent returns up to limit of the newest messages of roomID, oldest
// first. A limit <= 0 loads everything.
func (s *historyStore) LoadRecent(roomID string, limit int) ([]chat.Message, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	lower := roomPrefix(roomID)
	upper := append([]byte(nil), lower...)
	upper[len(upper)-1] = 1
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var newestFirst []chat.Message
	for it.Last(); it.Valid(); it.Prev() {
		if limit > 0 && len(newestFirst) >= limit {
			break
		}
		val, err := it.ValueAndErr()
		if err != nil {
			return nil, err
		}
		var m chat.Message
		if err := json.Unmarshal(val, &m); err == nil {
			newestFirst = append(newestFirst, m)
		}
	}
	out := make([]chat.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(out)-1-i] = m
	}
	return out, nil
}

func (s *historyStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
