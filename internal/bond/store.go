// Package bond persists which centrals have bonded with the bridge, so a
// power cycle does not force the player through pairing again. BlueZ owns
// the actual link keys; this store tracks the peers the bridge accepted,
// sealed at rest and rewritten atomically (write to a temp file, then
// rename) so a power loss mid-write cannot corrupt it.
package bond

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrPersist marks a failed store write. The in-memory record survives, the
// session keeps running; the peer just re-pairs after the next restart.
var ErrPersist = errors.New("bond: persist failed")

// Record is one bonded peer.
type Record struct {
	Addr      string    `json:"addr"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store holds the bonded-peer records, keyed by address.
type Store struct {
	path string
	key  []byte

	mu      sync.Mutex
	records map[string]Record
	entropy io.Reader
}

// Open loads the store at path, sealed under secret. A missing file yields
// an empty store. A corrupt or foreign-secret file also yields a usable
// empty store together with the error, so the caller can log and carry on;
// affected peers simply re-pair.
func Open(path, secret string) (*Store, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	s := &Store{
		path:    path,
		key:     key,
		records: make(map[string]Record),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}

	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("bond: read store: %w", err)
	}
	plain, err := unseal(key, blob)
	if err != nil {
		return s, fmt.Errorf("bond: open store (changed secret or corrupt file?): %w", err)
	}
	var recs []Record
	if err := json.Unmarshal(plain, &recs); err != nil {
		return s, fmt.Errorf("bond: parse store: %w", err)
	}
	for _, r := range recs {
		s.records[r.Addr] = r
	}
	return s, nil
}

// Lookup returns the record for addr, if the peer has bonded before.
func (s *Store) Lookup(addr string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[addr]
	return rec, ok
}

// Remember records a bonded peer, minting an id on first sight and
// refreshing LastSeen otherwise, then rewrites the store. On a write
// failure the record is still kept in memory and the error wraps
// ErrPersist.
func (s *Store) Remember(addr string, now time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[addr]
	if !ok {
		rec = Record{
			Addr:      addr,
			ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
			CreatedAt: now,
		}
	}
	rec.LastSeen = now
	s.records[addr] = rec

	if err := s.saveLocked(); err != nil {
		return rec, err
	}
	return rec, nil
}

// Forget drops a peer, for when the central explicitly un-bonds.
func (s *Store) Forget(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[addr]; !ok {
		return nil
	}
	delete(s.records, addr)
	return s.saveLocked()
}

// Len returns the number of bonded peers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) saveLocked() error {
	recs := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Addr < recs[j].Addr })

	plain, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("bond: marshal: %v: %w", err, ErrPersist)
	}
	blob, err := seal(s.key, plain)
	if err != nil {
		return fmt.Errorf("bond: seal: %v: %w", err, ErrPersist)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("bond: create store dir: %v: %w", err, ErrPersist)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("bond: write store: %v: %w", err, ErrPersist)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("bond: rename store: %v: %w", err, ErrPersist)
	}
	return nil
}
