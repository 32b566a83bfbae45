// Package collection implements list, append and remove operations against
// the named collections of a store document.
package collection

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/stevemurr/sneakers-server/store"
)

var (
	// ErrItemNotFound means no item in the collection has the requested id.
	ErrItemNotFound = errors.New("item not found")
	// ErrCollectionMissing means the document has no collection of that name.
	ErrCollectionMissing = errors.New("collection missing")
)

// Service runs collection operations over a store. Each call loads the
// document fresh and mutations save the whole document back.
//
// Operations are serialized within one Service. Separate processes sharing
// the same backing are not coordinated and the last writer wins.
type Service struct {
	store      store.Store
	mu         sync.RWMutex
	autoCreate bool
	logger     *log.Entry
}

// Option configures a Service.
type Option func(*Service)

// WithAutoCreate makes Append create a missing collection instead of
// failing with ErrCollectionMissing.
func WithAutoCreate(enabled bool) Option {
	return func(s *Service) { s.autoCreate = enabled }
}

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: log.WithField("component", "collection"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the named collection verbatim. The bool is false when the
// document has no such collection; that is not an error.
func (s *Service) List(name string) (store.Collection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.store.Load()
	if err != nil {
		return nil, false, err
	}
	c, ok := doc.Collection(name)
	return c, ok, nil
}

// All returns the whole document unchanged.
func (s *Service) All() (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Load()
}

// Append adds item to the end of the named collection and returns the
// updated collection.
func (s *Service) Append(name string, item store.Item) (store.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	c, ok := doc.Collection(name)
	if !ok || c == nil {
		if !s.autoCreate {
			return nil, fmt.Errorf("append to %q: %w", name, ErrCollectionMissing)
		}
		if doc == nil {
			doc = store.Document{}
		}
		c = store.Collection{}
		s.logger.WithField("collection", name).Info("creating collection")
	}
	c = append(c, item)
	doc[name] = c
	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return c, nil
}

// Remove deletes the first item whose numeric id equals ParseID(id) and
// returns the updated collection. Later items with the same id are kept.
func (s *Service) Remove(name, id string) (store.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	c, ok := doc.Collection(name)
	if !ok || c == nil {
		return nil, fmt.Errorf("remove from %q: %w", name, ErrCollectionMissing)
	}
	idx := indexOf(c, id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	c = slices.Delete(c, idx, idx+1)
	doc[name] = c
	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return c, nil
}

func indexOf(c store.Collection, id string) int {
	want, ok := ParseID(id)
	if !ok {
		return -1
	}
	return slices.IndexFunc(c, func(it store.Item) bool {
		got, ok := it.ID()
		return ok && got == want
	})
}
