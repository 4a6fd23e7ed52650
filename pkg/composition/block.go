// Package composition implements the content composition model: typed blocks
// ordered within pages, pages ordered within a client workspace or a portal, and
// the engine that normalizes ordering and persists changes through a
// [store.Store].
//
// Ordering is always re-derived over the full sibling list (sort_order = index),
// so no sparse or fractional keys are needed. Deleting a block does not renumber
// its siblings; the next reorder closes the gap.
package composition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// ErrInvalidType reports a block type outside the known enumeration.
var ErrInvalidType = errors.New("invalid block type")

const (
	DefaultText = "Enter your text here..."

	placeholderUnknown   = "Unknown block type"
	placeholderText      = "No content"
	placeholderLink      = "Untitled Link"
	placeholderEmbed     = "Embedded Content"
	placeholderFile      = "Untitled File"
	placeholderChecklist = "No items"
)

// CreateDefault returns the canonical empty payload for t.
func CreateDefault(t models.BlockType) (models.Payload, error) {
	switch t {
	case models.BlockTypeText:
		return models.TextContent{Text: DefaultText}, nil
	case models.BlockTypeLink:
		return models.LinkContent{}, nil
	case models.BlockTypeEmbed:
		return models.EmbedContent{}, nil
	case models.BlockTypeFile:
		return models.FileContent{}, nil
	case models.BlockTypeChecklist:
		return models.ChecklistContent{Items: []models.ChecklistItem{}}, nil
	}
	return nil, invalidType(t)
}

func invalidType(t models.BlockType) error {
	return store.NewValidationError(
		fmt.Errorf("%w: %q", ErrInvalidType, t),
		store.FieldError{Field: "type", Message: fmt.Sprintf("unknown block type %q", t)},
	)
}

// Rendered is the read-only display form of a block.
type Rendered struct {
	Kind  models.BlockType `json:"kind"`
	Lines []string         `json:"lines"`
}

func (r Rendered) String() string {
	return strings.Join(r.Lines, "\n")
}

// Render produces the display form of b. It never fails: unknown types and
// malformed content render as placeholders.
func Render(b *models.Block) Rendered {
	r := Rendered{Kind: b.Type}
	c := b.Content

	switch b.Type {
	case models.BlockTypeText:
		r.Lines = []string{or(str(c, "text"), placeholderText)}
	case models.BlockTypeLink:
		r.Lines = nonEmpty(or(str(c, "title"), placeholderLink), str(c, "url"), str(c, "description"))
	case models.BlockTypeEmbed:
		r.Lines = nonEmpty(or(str(c, "title"), placeholderEmbed), str(c, "url"))
	case models.BlockTypeFile:
		r.Lines = nonEmpty(or(str(c, "filename"), placeholderFile), str(c, "description"), str(c, "url"))
	case models.BlockTypeChecklist:
		r.Lines = renderChecklist(b)
	default:
		r.Lines = []string{placeholderUnknown}
	}
	return r
}

func renderChecklist(b *models.Block) []string {
	p, err := b.Payload()
	if err != nil {
		return []string{placeholderChecklist}
	}
	items := p.(models.ChecklistContent).Items
	if len(items) == 0 {
		return []string{placeholderChecklist}
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		mark := "[ ]"
		if item.Completed {
			mark = "[x]"
		}
		lines = append(lines, mark+" "+item.Text)
	}
	return lines
}

// Edit returns a copy of b with content[field] set to value. b and its content
// are left untouched. The edited content must still decode as b's type.
func Edit(b *models.Block, field string, value any) (*models.Block, error) {
	return mergeContent(b, map[string]any{field: value})
}

// mergeContent applies a shallow merge of partial onto a copy of b's content and
// normalizes the result through the typed payload.
func mergeContent(b *models.Block, partial map[string]any) (*models.Block, error) {
	if !b.Type.Valid() {
		return nil, invalidType(b.Type)
	}
	out := b.Clone()
	if out.Content == nil {
		out.Content = models.JSONMap{}
	}
	for k, v := range partial {
		out.Content[k] = v
	}

	p, err := out.Payload()
	if err != nil {
		return nil, store.NewValidationError(err, store.FieldError{Field: "content", Message: err.Error()})
	}
	if err := out.SetPayload(p); err != nil {
		return nil, store.NewValidationError(err, store.FieldError{Field: "content", Message: err.Error()})
	}
	return out, nil
}

func str(c models.JSONMap, key string) string {
	s, _ := c[key].(string)
	return s
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func nonEmpty(lines ...string) []string {
	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
