package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// BlockType is the tag of a block's content union.
type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeLink      BlockType = "link"
	BlockTypeEmbed     BlockType = "embed"
	BlockTypeFile      BlockType = "file"
	BlockTypeChecklist BlockType = "checklist"
)

// BlockTypes lists every known block type in palette order.
var BlockTypes = []BlockType{
	BlockTypeText,
	BlockTypeLink,
	BlockTypeEmbed,
	BlockTypeFile,
	BlockTypeChecklist,
}

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	for _, known := range BlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ErrUnknownBlockType is returned when decoding content of a type this build does not know.
var ErrUnknownBlockType = errors.New("unknown block type")

// JSONMap is the stored form of block content. It is an object in every backend:
// jsonb in PostgreSQL, a nested object in SurrealDB.
//
// Content stays a map at rest so that records written by newer versions with
// unknown block types still load. Typed access goes through [Payload].
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into JSONMap", value)
	}
	return json.Unmarshal(data, j)
}

// Clone returns a deep copy of j. Nested values are copied through JSON, so the
// result shares nothing with j.
func (j JSONMap) Clone() JSONMap {
	if j == nil {
		return nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		out := make(JSONMap, len(j))
		for k, v := range j {
			out[k] = v
		}
		return out
	}
	out := make(JSONMap, len(j))
	_ = json.Unmarshal(data, &out)
	return out
}

// Payload is the typed content of a block. Each variant reports its own tag, so
// a block built from a payload can never carry a mismatched type.
type Payload interface {
	Kind() BlockType
}

type TextContent struct {
	Text string `json:"text"`
}

type LinkContent struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type EmbedContent struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type FileContent struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

type ChecklistItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type ChecklistContent struct {
	Items []ChecklistItem `json:"items"`
}

func (TextContent) Kind() BlockType      { return BlockTypeText }
func (LinkContent) Kind() BlockType      { return BlockTypeLink }
func (EmbedContent) Kind() BlockType     { return BlockTypeEmbed }
func (FileContent) Kind() BlockType      { return BlockTypeFile }
func (ChecklistContent) Kind() BlockType { return BlockTypeChecklist }

// WithItem returns a copy of c with an unchecked item appended.
func (c ChecklistContent) WithItem(text string) ChecklistContent {
	items := make([]ChecklistItem, len(c.Items), len(c.Items)+1)
	copy(items, c.Items)
	return ChecklistContent{Items: append(items, ChecklistItem{Text: text})}
}

// Toggled returns a copy of c with item i's completion flipped.
func (c ChecklistContent) Toggled(i int) (ChecklistContent, error) {
	if i < 0 || i >= len(c.Items) {
		return c, fmt.Errorf("checklist item %d out of range [0,%d)", i, len(c.Items))
	}
	items := make([]ChecklistItem, len(c.Items))
	copy(items, c.Items)
	items[i].Completed = !items[i].Completed
	return ChecklistContent{Items: items}, nil
}

// newPayload returns a zero value of the variant tagged t.
func newPayload(t BlockType) (Payload, error) {
	switch t {
	case BlockTypeText:
		return &TextContent{}, nil
	case BlockTypeLink:
		return &LinkContent{}, nil
	case BlockTypeEmbed:
		return &EmbedContent{}, nil
	case BlockTypeFile:
		return &FileContent{}, nil
	case BlockTypeChecklist:
		return &ChecklistContent{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, t)
}

// DecodePayload decodes stored content as the variant tagged t. Unknown fields
// are rejected so a payload cannot silently carry keys of another type.
func DecodePayload(t BlockType, content JSONMap) (Payload, error) {
	target, err := newPayload(t)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = JSONMap{}
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode %s content: %w", t, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, fmt.Errorf("decode %s content: %w", t, err)
	}

	switch p := target.(type) {
	case *TextContent:
		return *p, nil
	case *LinkContent:
		return *p, nil
	case *EmbedContent:
		return *p, nil
	case *FileContent:
		return *p, nil
	case *ChecklistContent:
		if p.Items == nil {
			p.Items = []ChecklistItem{}
		}
		return *p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, t)
}

// EncodePayload converts p into its stored form.
func EncodePayload(p Payload) (JSONMap, error) {
	if p == nil {
		return nil, errors.New("nil payload")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s content: %w", p.Kind(), err)
	}
	var out JSONMap
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode %s content: %w", p.Kind(), err)
	}
	return out, nil
}
