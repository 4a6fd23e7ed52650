package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

type entity[T any] interface {
	*T
	models.Entity
}

// table holds the rows of one entity type in insertion order.
type table[T any, I store.Identifier, PT entity[T]] struct {
	mu    sync.RWMutex
	s     *Store
	name  string
	keyOf func(*T) I
	rows  map[I]*T
	order []I
}

func newTable[T any, I store.Identifier, PT entity[T]](s *Store, name string, keyOf func(*T) I) *table[T, I, PT] {
	return &table[T, I, PT]{
		s:     s,
		name:  name,
		keyOf: keyOf,
		rows:  make(map[I]*T),
	}
}

func (t *table[T, I, PT]) FetchMany(ctx context.Context, q store.Query) ([]*T, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := t.s.wait(ctx); err != nil {
		return nil, err
	}

	conds, err := encodeConditions(q.Where)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	type row struct {
		rec    *T
		fields map[string]json.RawMessage
	}
	matched := make([]row, 0, len(t.order))
	for _, id := range t.order {
		rec := t.rows[id]
		fields, err := fieldsOf(rec)
		if err != nil {
			return nil, store.Transport("memory fetch "+t.name, err)
		}
		if matches(fields, conds) {
			matched = append(matched, row{rec: rec, fields: fields})
		}
	}

	if q.OrderBy != nil {
		field, desc := q.OrderBy.Field, q.OrderBy.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareRaw(matched[i].fields[field], matched[j].fields[field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	out := make([]*T, 0, len(matched))
	for _, r := range matched {
		out = append(out, copyRecord(r.rec))
	}
	return out, nil
}

func (t *table[T, I, PT]) FetchOne(ctx context.Context, id I) (*T, error) {
	if err := t.s.wait(ctx); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.rows[id]
	if !ok {
		return nil, store.NewNotFound(t.name, id)
	}
	return copyRecord(rec), nil
}

func (t *table[T, I, PT]) Create(ctx context.Context, rec *T) error {
	if err := t.s.wait(ctx); err != nil {
		return err
	}

	candidate := copyRecord(rec)
	PT(candidate).Prepare(t.s.now())
	if err := store.Validate(candidate); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.keyOf(candidate)
	if _, exists := t.rows[id]; exists {
		return store.NewValidationError(nil, store.FieldError{Field: "id", Message: "already exists"})
	}
	t.rows[id] = candidate
	t.order = append(t.order, id)
	*rec = *copyRecord(candidate)
	return nil
}

func (t *table[T, I, PT]) Update(ctx context.Context, id I, patch store.Patch) (*T, error) {
	if err := t.s.wait(ctx); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.rows[id]
	if !ok {
		return nil, store.NewNotFound(t.name, id)
	}
	updated := copyRecord(current)
	if err := store.Apply(updated, patch); err != nil {
		return nil, err
	}
	PT(updated).Prepare(t.s.now())
	if err := store.Validate(updated); err != nil {
		return nil, err
	}
	t.rows[id] = updated
	return copyRecord(updated), nil
}

func (t *table[T, I, PT]) Delete(ctx context.Context, id I) error {
	if err := t.s.wait(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; !ok {
		return store.NewNotFound(t.name, id)
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// copyRecord returns a copy of rec that shares no mutable state with it.
func copyRecord[T any](rec *T) *T {
	out := *rec
	switch r := any(&out).(type) {
	case *models.Block:
		r.Content = r.Content.Clone()
	case *models.Resource:
		if r.Tags != nil {
			r.Tags = append(r.Tags[:0:0], r.Tags...)
		}
		if r.ClientID != nil {
			r.ClientID = r.ClientID.Ptr()
		}
	case *models.Page:
		if r.ClientID != nil {
			r.ClientID = r.ClientID.Ptr()
		}
		if r.PortalID != nil {
			r.PortalID = r.PortalID.Ptr()
		}
	case *models.Deliverable:
		if r.PortalID != nil {
			r.PortalID = r.PortalID.Ptr()
		}
	case *models.Client:
		if r.LastLogin != nil {
			t := *r.LastLogin
			r.LastLogin = &t
		}
	}
	return &out
}

func fieldsOf(rec any) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

type encodedCondition struct {
	field string
	value []byte
}

func encodeConditions(where []store.Condition) ([]encodedCondition, error) {
	out := make([]encodedCondition, 0, len(where))
	for _, c := range where {
		data, err := json.Marshal(c.Value)
		if err != nil {
			return nil, store.NewValidationError(err, store.FieldError{Field: c.Field, Message: "unencodable filter value"})
		}
		out = append(out, encodedCondition{field: c.Field, value: data})
	}
	return out, nil
}

// matches compares each condition against the record's JSON form, so typed ids,
// enums and numbers compare by their wire representation.
func matches(fields map[string]json.RawMessage, conds []encodedCondition) bool {
	for _, c := range conds {
		raw, ok := fields[c.field]
		if !ok {
			raw = json.RawMessage("null")
		}
		if !bytes.Equal(raw, c.value) {
			return false
		}
	}
	return true
}

// compareRaw orders two JSON values of the same field. Timestamps compare as
// times, numbers numerically, everything else by its text.
func compareRaw(a, b json.RawMessage) int {
	var av, bv any
	_ = json.Unmarshal(a, &av)
	_ = json.Unmarshal(b, &bv)

	switch x := av.(type) {
	case float64:
		if y, ok := bv.(float64); ok {
			return compareOrdered(x, y)
		}
	case string:
		if y, ok := bv.(string); ok {
			tx, errx := time.Parse(time.RFC3339Nano, x)
			ty, erry := time.Parse(time.RFC3339Nano, y)
			if errx == nil && erry == nil {
				return tx.Compare(ty)
			}
			return compareOrdered(x, y)
		}
	case bool:
		if y, ok := bv.(bool); ok {
			return compareOrdered(boolRank(x), boolRank(y))
		}
	}
	return compareOrdered(fmt.Sprint(av), fmt.Sprint(bv))
}

func compareOrdered[V int | float64 | string](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
