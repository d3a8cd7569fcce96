package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps tasks in process. Insertion order is the natural order.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]Document, error) {
	s.mu.RLock()
	out := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		d := s.docs[id]
		if q.Owner != "" && !ownerIs(d, q.Owner) {
			continue
		}
		out = append(out, d.Clone())
	}
	s.mu.RUnlock()

	if q.SortByDeadline {
		sort.SliceStable(out, func(i, j int) bool {
			return compareValues(out[i][FieldDeadline], out[j][FieldDeadline]) < 0
		})
	}
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Document, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (s *MemoryStore) Insert(ctx context.Context, doc Document) (InsertResult, error) {
	d := doc.Clone()
	if d == nil {
		d = Document{}
	}
	id := NewID()
	d[FieldID] = id

	s.mu.Lock()
	s.docs[id] = d
	s.order = append(s.order, id)
	s.mu.Unlock()

	return InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (s *MemoryStore) IncrementBids(ctx context.Context, id string) (UpdateResult, error) {
	if _, err := ParseID(id); err != nil {
		return UpdateResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return UpdateResult{Acknowledged: true}, nil
	}
	d[FieldBidsCount] = increment(d[FieldBidsCount])
	return UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *MemoryStore) Update(ctx context.Context, f Filter, set Document) (UpdateResult, error) {
	if _, err := ParseID(f.ID); err != nil {
		return UpdateResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[f.ID]
	if !ok || !ownerIs(d, f.Owner) {
		return UpdateResult{Acknowledged: true}, nil
	}
	changed := false
	for k, v := range set {
		if cur, ok := d[k]; ok && sameValue(cur, v) {
			continue
		}
		d[k] = v
		changed = true
	}
	res := UpdateResult{Acknowledged: true, MatchedCount: 1}
	if changed {
		res.ModifiedCount = 1
	}
	return res, nil
}

func (s *MemoryStore) Delete(ctx context.Context, f Filter) (DeleteResult, error) {
	if _, err := ParseID(f.ID); err != nil {
		return DeleteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[f.ID]
	if !ok || (f.MatchOwner && !ownerIs(d, f.Owner)) {
		return DeleteResult{Acknowledged: true}, nil
	}
	delete(s.docs, f.ID)
	for i, id := range s.order {
		if id == f.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error  { return nil }
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func ownerIs(d Document, owner string) bool {
	got, ok := d.Owner()
	return ok && got == owner
}

// increment mirrors $inc: a missing field starts at zero and the numeric
// type of an existing value is kept.
func increment(v any) any {
	switch n := v.(type) {
	case nil:
		return int64(1)
	case float64:
		return n + 1
	case int:
		return n + 1
	case int32:
		return n + 1
	case int64:
		return n + 1
	default:
		return int64(1)
	}
}

// compareValues orders values the way the database sorts mixed types:
// missing < numbers < strings < timestamps.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case 2:
		x, y := a.(string), b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case 3:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64, float32, int, int32, int64:
		return 1
	case string:
		return 2
	case time.Time:
		return 3
	default:
		return 4
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
