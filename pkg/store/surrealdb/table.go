package surrealdb

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

type entity[T any] interface {
	*T
	models.Entity
}

type recordID interface {
	store.Identifier
	RecordID() surrealdb_models.RecordID
}

type table[T any, I recordID, PT entity[T]] struct {
	s *Store
}

func (t *table[T, I, PT]) name() string {
	var zero T
	return PT(&zero).TableName()
}

// selectQuery renders q as a SELECT over the table bound to $tb. Values are
// bound as $w0, $w1, ...
func selectQuery(tb string, q store.Query) (string, map[string]any) {
	vars := map[string]any{"tb": tb}
	var b strings.Builder
	b.WriteString("SELECT * FROM type::table($tb)")
	for i, c := range q.Where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		if isNil(c.Value) {
			fmt.Fprintf(&b, "(%s = NONE OR %s = NULL)", c.Field, c.Field)
			continue
		}
		name := fmt.Sprintf("w%d", i)
		vars[name] = c.Value
		fmt.Fprintf(&b, "%s = $%s", c.Field, name)
	}
	if q.OrderBy != nil {
		dir := "ASC"
		if q.OrderBy.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", q.OrderBy.Field, dir)
	}
	return b.String(), vars
}

func (t *table[T, I, PT]) FetchMany(ctx context.Context, q store.Query) ([]*T, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sql, vars := selectQuery(t.name(), q)
	res, err := surrealdb.Query[[]T](ctx, t.s.db, sql, vars)
	if err != nil {
		return nil, store.Transport("surrealdb fetch "+t.name(), err)
	}

	out := make([]*T, 0)
	if res == nil || len(*res) == 0 {
		return out, nil
	}
	rows := (*res)[0].Result
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (t *table[T, I, PT]) FetchOne(ctx context.Context, id I) (*T, error) {
	rec, err := surrealdb.Select[T](ctx, t.s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) {
			return nil, store.NewNotFound(t.name(), id)
		}
		return nil, store.Transport("surrealdb get "+t.name(), err)
	}
	if rec == nil || isZeroKey(PT(rec)) {
		return nil, store.NewNotFound(t.name(), id)
	}
	return rec, nil
}

func (t *table[T, I, PT]) Create(ctx context.Context, rec *T) error {
	PT(rec).Prepare(t.s.now())
	if err := store.Validate(rec); err != nil {
		return err
	}
	if _, err := surrealdb.Create[T](ctx, t.s.db, t.name(), rec); err != nil {
		return store.Transport("surrealdb create "+t.name(), err)
	}
	return nil
}

func (t *table[T, I, PT]) Update(ctx context.Context, id I, patch store.Patch) (*T, error) {
	rec, err := t.FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := store.Apply(rec, patch); err != nil {
		return nil, err
	}
	PT(rec).Prepare(t.s.now())
	if err := store.Validate(rec); err != nil {
		return nil, err
	}
	updated, err := surrealdb.Update[T](ctx, t.s.db, id.RecordID(), rec)
	if err != nil {
		return nil, store.Transport("surrealdb update "+t.name(), err)
	}
	if updated == nil {
		return rec, nil
	}
	return updated, nil
}

func (t *table[T, I, PT]) Delete(ctx context.Context, id I) error {
	deleted, err := surrealdb.Delete[T](ctx, t.s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) {
			return store.NewNotFound(t.name(), id)
		}
		return store.Transport("surrealdb delete "+t.name(), err)
	}
	if deleted == nil || isZeroKey(PT(deleted)) {
		return store.NewNotFound(t.name(), id)
	}
	return nil
}

// isZeroKey catches codecs that decode NONE into an empty struct instead of nil.
func isZeroKey(e models.Entity) bool {
	return e.Key() == uuid.Nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
