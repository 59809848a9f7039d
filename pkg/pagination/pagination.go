// Package pagination has two styles: numbered pages for admin tables and
// keyset cursors over (created_at, id) for customer feeds.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// PageParams is a 1-based numbered page request.
type PageParams struct {
	Page    int
	PerPage int
}

func (p PageParams) Normalize() PageParams {
	return PageParams{Page: max(p.Page, 1), PerPage: NormalizeLimit(p.PerPage)}
}

func (p PageParams) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

type Meta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

// BuildMeta describes page p of total rows. LastPage is at least 1.
func BuildMeta(p PageParams, total int64) Meta {
	n := p.Normalize()
	pages := (total + int64(n.PerPage) - 1) / int64(n.PerPage)
	return Meta{
		CurrentPage: n.Page,
		PerPage:     n.PerPage,
		Total:       total,
		LastPage:    max(int(pages), 1),
	}
}

// Params is a keyset page request. An empty Cursor starts from the newest row.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the position of the last row handed out.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

var ErrInvalidCursor = errors.New("invalid cursor")

func EncodeCursor(c Cursor) string {
	c.CreatedAt = c.CreatedAt.UTC()
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor returns nil for a blank value. Anything undecodable wraps
// ErrInvalidCursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.CreatedAt.IsZero() || c.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing position", ErrInvalidCursor)
	}
	return &c, nil
}

// After is a gorm scope ordering rows newest first and, given a cursor,
// keeping only rows strictly past it.
func After(c *Cursor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c != nil {
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
		}
		return db.Order("created_at DESC").Order("id DESC")
	}
}

// Page trims rows fetched with limit+1 down to limit and returns the cursor
// for the next page, or "" when rows held no extra element.
func Page[T any](rows []T, limit int, position func(T) Cursor) ([]T, string) {
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(position(rows[limit-1]))
}
