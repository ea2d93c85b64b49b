package vault

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/logger"
	"github.com/koyif/securevault/internal/persistence"
)

// Store owns the ordered entry collection and keeps it in step with a persistence port.
//
// Every mutating call persists the full collection before returning. When the port
// fails, the in-memory change is rolled back and a persistence error is returned, so
// memory and durable state never diverge.
type Store struct {
	mu      sync.RWMutex
	port    persistence.Port
	entries []Entry
	index   map[string]int
	// issued holds every id seen this session, including deleted ones.
	issued map[string]struct{}

	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the id generator. Generated ids that collide with an
// existing entry are discarded and regenerated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Open creates a store and rehydrates it from the port. An absent collection yields an
// empty vault.
func Open(ctx context.Context, port persistence.Port, opts ...Option) (*Store, error) {
	s := &Store{
		port:   port,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		issued: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := port.Load(ctx, persistence.KeyEntries)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		s.entries = []Entry{}
	case err != nil:
		return nil, NewPersistence("failed to load entries", err)
	default:
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, NewPersistence("failed to decode stored entries", err)
		}
		if s.entries == nil {
			s.entries = []Entry{}
		}
	}

	s.reindex()
	for id := range s.index {
		s.issued[id] = struct{}{}
	}
	if len(s.index) != len(s.entries) {
		return nil, NewPersistence("stored entries contain duplicate ids", nil)
	}

	s.logger.Debug("vault loaded", zap.Int("entries", len(s.entries)))

	return s, nil
}

// List returns a copy of the full collection in insertion order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Entry{}, NewNotFound(id)
	}
	return s.entries[i], nil
}

// Filter returns the entries matching f, in insertion order.
func (s *Store) Filter(f Filter) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Entry{}
	for _, e := range s.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Stats returns the number of entries per category.
func (s *Store) Stats() map[Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[Category]int, len(Categories()))
	for _, c := range Categories() {
		stats[c] = 0
	}
	for _, e := range s.entries {
		stats[e.Category]++
	}
	return stats
}

// Create validates the draft, assigns a fresh id and timestamp, appends and persists.
func (s *Store) Create(ctx context.Context, d Draft) (Entry, error) {
	if err := d.Validate(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	usecase := d.Usecase
	if usecase == "" {
		usecase = UsecaseDefault
	}

	entry := Entry{
		ID:        s.uniqueID(),
		Category:  d.Category,
		Username:  d.Username,
		Password:  Password{Value: d.Password},
		Usecase:   usecase,
		Remark:    d.Remark,
		CreatedAt: formatTime(s.now()),
	}

	prev := s.entries
	next := make([]Entry, len(prev), len(prev)+1)
	copy(next, prev)
	next = append(next, entry)

	if err := s.commit(ctx, next); err != nil {
		return Entry{}, err
	}

	logger.WithEntryID(s.logger, entry.ID).Debug("entry created",
		zap.String("category", string(entry.Category)),
	)

	return entry, nil
}

// Update replaces the entry with the given id. The stored id, createdAt and category are
// kept from the original record regardless of what the caller supplies.
func (s *Store) Update(ctx context.Context, id string, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Entry{}, NewNotFound(id)
	}

	original := s.entries[i]

	usecase := e.Usecase
	if usecase == "" {
		usecase = UsecaseDefault
	}
	if err := validateFields(original.Category, e.Username, e.Password.Value, usecase); err != nil {
		return Entry{}, err
	}

	updated := e
	updated.ID = original.ID
	updated.CreatedAt = original.CreatedAt
	updated.Category = original.Category
	updated.Usecase = usecase

	next := make([]Entry, len(s.entries))
	copy(next, s.entries)
	next[i] = updated

	if err := s.commit(ctx, next); err != nil {
		return Entry{}, err
	}

	logger.WithEntryID(s.logger, id).Debug("entry updated")

	return updated, nil
}

// Delete removes the entry with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return NewNotFound(id)
	}

	next := make([]Entry, 0, len(s.entries)-1)
	next = append(next, s.entries[:i]...)
	next = append(next, s.entries[i+1:]...)

	if err := s.commit(ctx, next); err != nil {
		return err
	}

	logger.WithEntryID(s.logger, id).Debug("entry deleted")

	return nil
}

// Save persists the current collection unchanged. It is used after the port has been
// re-keyed so that existing entries are rewritten under the new encryption.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persist(ctx, s.entries)
}

// Rebind writes the current collection to port and, on success, makes it the store's
// port. On failure the previous port stays in use.
func (s *Store) Rebind(ctx context.Context, port persistence.Port) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.port
	s.port = port
	if err := s.persist(ctx, s.entries); err != nil {
		s.port = prev
		return err
	}

	s.logger.Debug("store rebound to new port", zap.Int("entries", len(s.entries)))

	return nil
}

// commit persists next and, only on success, makes it the live collection.
// Must be called with s.mu held.
func (s *Store) commit(ctx context.Context, next []Entry) error {
	if err := s.persist(ctx, next); err != nil {
		s.logger.Warn("persist failed, mutation rolled back", zap.Error(err))
		return err
	}

	s.entries = next
	s.reindex()

	return nil
}

func (s *Store) persist(ctx context.Context, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return NewPersistence("failed to encode entries", err)
	}

	if err := s.port.Save(ctx, persistence.KeyEntries, data); err != nil {
		return NewPersistence("failed to save entries", err)
	}

	return nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		s.index[e.ID] = i
	}
}

// uniqueID returns an id never issued before in this session. Must be called with s.mu held.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if _, taken := s.issued[id]; !taken && id != "" {
			s.issued[id] = struct{}{}
			return id
		}
	}
}
