/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// RecordTypeTag is added to every stored record so that all records of a type can be listed.
const RecordTypeTag = "recordType"

var logger = log.New("aries-agent/store/record")

var (
	// ErrRecordNotFound is returned when a record is looked up by id or by a single-result query and is absent.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordDuplicate is returned when a record id is reused or a single-result query matches several records.
	ErrRecordDuplicate = errors.New("duplicate record")
)

// Entry is a raw stored record.
type Entry struct {
	ID    string
	Value []byte
	Tags  Tags
}

// Service stores records of any type in a storage.Provider, one store per record type.
//
// Writes are serialized so that save, update and delete are linearized per record id.
type Service struct {
	provider storage.Provider

	writeLock sync.Mutex
	storeLock sync.RWMutex
	stores    map[string]storage.Store
	now       func() time.Time
}

// NewService returns a record Service backed by provider.
func NewService(provider storage.Provider) *Service {
	return &Service{
		provider: provider,
		stores:   make(map[string]storage.Store),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Save stores a new record. Saving an id that already exists fails with ErrRecordDuplicate.
func (s *Service) Save(r Record) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	store, err := s.open(r.RecordType())
	if err != nil {
		return err
	}

	_, err = store.Get(r.GetID())

	switch {
	case err == nil:
		return fmt.Errorf("save %s record %s: %w", r.RecordType(), r.GetID(), ErrRecordDuplicate)
	case !errors.Is(err, storage.ErrDataNotFound):
		return fmt.Errorf("save %s record %s: %w", r.RecordType(), r.GetID(), err)
	}

	return s.put(store, r)
}

// SaveUnique stores a new record unless a record of its type already matches query.
// The lookup and the write happen under the write lock, so concurrent callers with the
// same query see exactly one success; the others fail with ErrRecordDuplicate.
func (s *Service) SaveUnique(r Record, query Tags) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	existing, err := s.Query(r.RecordType(), query)
	if err != nil {
		return fmt.Errorf("save %s record %s: %w", r.RecordType(), r.GetID(), err)
	}

	if len(existing) > 0 {
		return fmt.Errorf("save %s record %s: record %s matches %v: %w",
			r.RecordType(), r.GetID(), existing[0].ID, query, ErrRecordDuplicate)
	}

	store, err := s.open(r.RecordType())
	if err != nil {
		return err
	}

	_, err = store.Get(r.GetID())

	switch {
	case err == nil:
		return fmt.Errorf("save %s record %s: %w", r.RecordType(), r.GetID(), ErrRecordDuplicate)
	case !errors.Is(err, storage.ErrDataNotFound):
		return fmt.Errorf("save %s record %s: %w", r.RecordType(), r.GetID(), err)
	}

	return s.put(store, r)
}

// Update overwrites an existing record. Updating an unknown id fails with ErrRecordNotFound.
func (s *Service) Update(r Record) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	store, err := s.open(r.RecordType())
	if err != nil {
		return err
	}

	_, err = store.Get(r.GetID())
	if err != nil {
		return fmt.Errorf("update %s record %s: %w", r.RecordType(), r.GetID(), notFound(err))
	}

	return s.put(store, r)
}

// Delete removes a record.
func (s *Service) Delete(r Record) error {
	return s.DeleteByID(r.RecordType(), r.GetID())
}

// DeleteByID removes the record of recordType with the given id.
func (s *Service) DeleteByID(recordType, id string) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	store, err := s.open(recordType)
	if err != nil {
		return err
	}

	_, err = store.Get(id)
	if err != nil {
		return fmt.Errorf("delete %s record %s: %w", recordType, id, notFound(err))
	}

	if err = store.Delete(id); err != nil {
		return fmt.Errorf("delete %s record %s: %w", recordType, id, err)
	}

	return nil
}

// Get returns the raw record of recordType with the given id.
func (s *Service) Get(recordType, id string) (*Entry, error) {
	store, err := s.open(recordType)
	if err != nil {
		return nil, err
	}

	value, err := store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("get %s record %s: %w", recordType, id, notFound(err))
	}

	storedTags, err := store.GetTags(id)
	if err != nil {
		return nil, fmt.Errorf("get %s record %s tags: %w", recordType, id, notFound(err))
	}

	tags, err := decodeTags(storedTags)
	if err != nil {
		return nil, err
	}

	return &Entry{ID: id, Value: value, Tags: tags}, nil
}

// Query returns the records of recordType whose tags contain every pair of query.
// An empty query returns every record of the type. No match is an empty result, not an error.
func (s *Service) Query(recordType string, query Tags) ([]*Entry, error) {
	store, err := s.open(recordType)
	if err != nil {
		return nil, err
	}

	itr, err := store.Query(expression(recordType, query))
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", recordType, err)
	}

	defer storage.Close(itr, logger)

	var entries []*Entry

	for {
		ok, err := itr.Next()
		if err != nil {
			return nil, fmt.Errorf("query %s records: next: %w", recordType, err)
		}

		if !ok {
			break
		}

		entry, err := readEntry(itr)
		if err != nil {
			return nil, fmt.Errorf("query %s records: %w", recordType, err)
		}

		// backends only index a single pair, the conjunction is checked here.
		if entry.Tags.Matches(query) {
			entries = append(entries, entry)
		}
	}

	slices.SortStableFunc(entries, func(a, b *Entry) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	return entries, nil
}

func (s *Service) put(store storage.Store, r Record) error {
	if t, ok := r.(toucher); ok {
		t.touch(s.now())
	}

	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal %s record %s: %w", r.RecordType(), r.GetID(), err)
	}

	tags := r.ToTags()
	if tags == nil {
		tags = Tags{}
	}

	tags[RecordTypeTag] = r.RecordType()

	if err = store.Put(r.GetID(), value, encodeTags(tags)...); err != nil {
		return fmt.Errorf("store %s record %s: %w", r.RecordType(), r.GetID(), err)
	}

	logger.Debugf("stored %s record %s", r.RecordType(), r.GetID())

	return nil
}

func (s *Service) open(recordType string) (storage.Store, error) {
	s.storeLock.RLock()
	store, ok := s.stores[recordType]
	s.storeLock.RUnlock()

	if ok {
		return store, nil
	}

	s.storeLock.Lock()
	defer s.storeLock.Unlock()

	if store, ok = s.stores[recordType]; ok {
		return store, nil
	}

	store, err := s.provider.OpenStore(recordType)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", recordType, err)
	}

	s.stores[recordType] = store

	return store, nil
}

func readEntry(itr storage.Iterator) (*Entry, error) {
	key, err := itr.Key()
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}

	value, err := itr.Value()
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}

	storedTags, err := itr.Tags()
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}

	tags, err := decodeTags(storedTags)
	if err != nil {
		return nil, err
	}

	return &Entry{ID: key, Value: value, Tags: tags}, nil
}

// expression picks the first non-empty query pair (in name order) for the backend lookup.
func expression(recordType string, query Tags) string {
	names := maps.Keys(query)
	slices.Sort(names)

	for _, name := range names {
		if query[name] != "" {
			return url.QueryEscape(name) + ":" + url.QueryEscape(query[name])
		}
	}

	return RecordTypeTag + ":" + url.QueryEscape(recordType)
}

// encodeTags escapes names and values, storage tags may not contain ':'. Empty values are not stored.
func encodeTags(tags Tags) []storage.Tag {
	names := maps.Keys(tags)
	slices.Sort(names)

	encoded := make([]storage.Tag, 0, len(tags))

	for _, name := range names {
		if tags[name] == "" {
			continue
		}

		encoded = append(encoded, storage.Tag{Name: url.QueryEscape(name), Value: url.QueryEscape(tags[name])})
	}

	return encoded
}

func decodeTags(stored []storage.Tag) (Tags, error) {
	tags := make(Tags, len(stored))

	for _, tag := range stored {
		name, err := url.QueryUnescape(tag.Name)
		if err != nil {
			return nil, fmt.Errorf("decode tag name %s: %w", tag.Name, err)
		}

		value, err := url.QueryUnescape(tag.Value)
		if err != nil {
			return nil, fmt.Errorf("decode tag %s value: %w", name, err)
		}

		tags[name] = value
	}

	return tags, nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrDataNotFound) {
		return ErrRecordNotFound
	}

	return err
}
