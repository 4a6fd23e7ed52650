package store

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var fieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Condition restricts a query to records whose Field equals Value. A nil Value
// matches records where the field is unset.
type Condition struct {
	Field string
	Value any
}

// Order sorts query results by one field.
type Order struct {
	Field      string
	Descending bool
}

// Query selects records from a table. Conditions are combined with AND.
type Query struct {
	Where   []Condition
	OrderBy *Order
}

// Where starts a query with one equality condition.
func Where(field string, value any) Query {
	return Query{Where: []Condition{{Field: field, Value: value}}}
}

// And adds an equality condition.
func (q Query) And(field string, value any) Query {
	where := make([]Condition, len(q.Where), len(q.Where)+1)
	copy(where, q.Where)
	q.Where = append(where, Condition{Field: field, Value: value})
	return q
}

// Asc orders results by field, smallest first.
func (q Query) Asc(field string) Query {
	q.OrderBy = &Order{Field: field}
	return q
}

// Desc orders results by field, largest first.
func (q Query) Desc(field string) Query {
	q.OrderBy = &Order{Field: field, Descending: true}
	return q
}

// Validate rejects field names that are not plain snake_case identifiers. Backends
// splice field names into query text, so this must pass before any query runs.
func (q Query) Validate() error {
	for _, c := range q.Where {
		if !fieldPattern.MatchString(c.Field) {
			return NewValidationError(nil, FieldError{Field: c.Field, Message: "invalid filter field"})
		}
	}
	if q.OrderBy != nil && !fieldPattern.MatchString(q.OrderBy.Field) {
		return NewValidationError(nil, FieldError{Field: q.OrderBy.Field, Message: "invalid order field"})
	}
	return nil
}

// ByPage, ByPortal and ByClient are the common ownership filters.
func ByPage(id fmt.Stringer) Query   { return Where("page_id", id) }
func ByPortal(id fmt.Stringer) Query { return Where("portal_id", id) }
func ByClient(id fmt.Stringer) Query { return Where("client_id", id) }

// Patch is a partial update keyed by json field name. Values replace the stored
// top-level value wholesale.
type Patch map[string]any

// Apply merges p into rec through its JSON form. Keys that rec does not have are
// rejected, as is any attempt to change the id.
func Apply[T any](rec *T, p Patch) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode record fields: %w", err)
	}

	var rejected []FieldError
	for key, value := range p {
		if _, ok := fields[key]; !ok {
			rejected = append(rejected, FieldError{Field: key, Message: "unknown field"})
			continue
		}
		if key == "id" {
			rejected = append(rejected, FieldError{Field: key, Message: "cannot be changed"})
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			rejected = append(rejected, FieldError{Field: key, Message: err.Error()})
			continue
		}
		fields[key] = raw
	}
	if len(rejected) > 0 {
		return NewValidationError(nil, rejected...)
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patched record: %w", err)
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return NewValidationError(err, FieldError{Field: "patch", Message: err.Error()})
	}
	*rec = out
	return nil
}
