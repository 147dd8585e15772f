package localstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peritagem/internal/model"
)

// Record is one stored row. Rows are kept schemaless so that any field the
// caller sends survives a round trip.
type Record map[string]any

// ID returns the record id compared as a string
func (r Record) ID() string {
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Order is the sort applied by Query
type Order int

const (
	OrderNone Order = iota
	OrderCreatedDesc
	OrderCreatedAsc
)

// Query holds the supported filters. Nil status filters and an empty IDEq do
// not filter; a non-nil StatusIn matches only its members, even when empty.
type Query struct {
	StatusEq *string
	StatusIn []string
	IDEq     string
	Order    Order
}

// RecordStore is a collection persisted as one JSON array in a slot.
// The mutex serializes read-modify-write within this process only.
type RecordStore struct {
	slots Slots
	key   string
	log   *zap.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// NewRecordStore binds a collection to a slot key
func NewRecordStore(slots Slots, key string, log *zap.Logger) *RecordStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordStore{
		slots: slots,
		key:   key,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Load returns the stored records. An absent, unreadable or malformed slot
// reads as an empty collection.
func (s *RecordStore) Load(ctx context.Context) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *RecordStore) load(ctx context.Context) []Record {
	raw, ok, err := s.slots.Get(ctx, s.key)
	if err != nil {
		s.log.Warn("record store read failed", zap.String("key", s.key), zap.Error(err))
		return []Record{}
	}
	if !ok || raw == "" {
		return []Record{}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		s.log.Warn("record store slot is malformed, treating as empty", zap.String("key", s.key), zap.Error(err))
		return []Record{}
	}
	if records == nil {
		return []Record{}
	}
	return records
}

// Save overwrites the whole collection in one slot write
func (s *RecordStore) Save(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, records)
}

func (s *RecordStore) save(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.slots.Set(ctx, s.key, string(b)); err != nil {
		return fmt.Errorf("write slot %s: %w", s.key, err)
	}
	return nil
}

// Insert assigns a fresh id to every record, fills created_at when absent,
// appends and persists. The inserted records are returned in input order.
func (s *RecordStore) Insert(ctx context.Context, records []Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	added := make([]Record, 0, len(records))
	for _, in := range records {
		rec := make(Record, len(in)+2)
		for k, v := range in {
			rec[k] = v
		}
		rec["id"] = s.newID()
		if v, ok := rec["created_at"]; !ok || v == nil || v == "" {
			rec["created_at"] = s.now().UTC().Format(time.RFC3339Nano)
		}
		added = append(added, rec)
	}

	if err := s.save(ctx, append(current, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// Query filters and sorts the collection
func (s *RecordStore) Query(ctx context.Context, q Query) []Record {
	s.mu.Lock()
	records := s.load(ctx)
	s.mu.Unlock()

	out := records[:0]
	for _, r := range records {
		if q.matches(r) {
			out = append(out, r)
		}
	}

	switch q.Order {
	case OrderCreatedDesc:
		sortByCreated(out, true)
	case OrderCreatedAsc:
		sortByCreated(out, false)
	}
	return out
}

func (q Query) matches(r Record) bool {
	status, hasStatus := r["status"].(string)
	if q.StatusEq != nil && (!hasStatus || status != *q.StatusEq) {
		return false
	}
	if q.StatusIn != nil {
		if !hasStatus {
			return false
		}
		found := false
		for _, s := range q.StatusIn {
			if s == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.IDEq != "" && r.ID() != q.IDEq {
		return false
	}
	return true
}

// sortByCreated orders by parsed created_at; unparseable values go last
func sortByCreated(records []Record, desc bool) {
	type keyed struct {
		rec Record
		t   time.Time
		ok  bool
	}
	ks := make([]keyed, len(records))
	for i, r := range records {
		s, _ := r["created_at"].(string)
		t, ok := model.ParseTimestamp(s)
		ks[i] = keyed{r, t, ok}
	}
	sort.SliceStable(ks, func(a, b int) bool {
		if ks[a].ok != ks[b].ok {
			return ks[a].ok
		}
		if desc {
			return ks[a].t.After(ks[b].t)
		}
		return ks[a].t.Before(ks[b].t)
	})
	for i := range ks {
		records[i] = ks[i].rec
	}
}

// Patch shallow merges updates into the record with the given id. The
// boolean is false, and nothing is written, when no record matches.
func (s *RecordStore) Patch(ctx context.Context, id string, updates Record) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(ctx)
	for i, r := range records {
		if r.ID() != id {
			continue
		}
		merged := make(Record, len(r)+len(updates))
		for k, v := range r {
			merged[k] = v
		}
		for k, v := range updates {
			merged[k] = v
		}
		records[i] = merged
		if err := s.save(ctx, records); err != nil {
			return nil, false, err
		}
		return merged, true, nil
	}
	return nil, false, nil
}

// Delete removes the record with the given id
func (s *RecordStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(ctx)
	kept := records[:0]
	for _, r := range records {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return false, nil
	}
	if err := s.save(ctx, kept); err != nil {
		return false, err
	}
	return true, nil
}
