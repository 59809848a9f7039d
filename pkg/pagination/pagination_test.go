package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorEncoding(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123, time.FixedZone("PST", -8*3600)), ID: uuid.New()}
	encoded := EncodeCursor(in)
	out, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("unexpected cursor %+v", out)
	}

	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("expected nil cursor for blank input, got %+v %v", c, err)
	}
	for _, bad := range []string{"not-base64!", "e30", EncodeCursor(Cursor{ID: uuid.New()})} {
		if _, err := ParseCursor(bad); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("%q: expected ErrInvalidCursor, got %v", bad, err)
		}
	}
}

func TestPage(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []row{{base, uuid.New()}, {base.Add(-time.Minute), uuid.New()}, {base.Add(-2 * time.Minute), uuid.New()}}
	position := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Page(rows, 2, position)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected 2 rows and a cursor, got %d %q", len(page), next)
	}
	c, err := ParseCursor(next)
	if err != nil || c.ID != rows[1].id {
		t.Fatalf("cursor should point at the last returned row, got %+v %v", c, err)
	}

	page, next = Page(rows, 3, position)
	if len(page) != 3 || next != "" {
		t.Fatalf("expected final page without cursor, got %d %q", len(page), next)
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -5: DefaultLimit, 7: 7, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestPageParams(t *testing.T) {
	if got := (PageParams{}).Normalize(); got.Page != 1 || got.PerPage != DefaultLimit {
		t.Fatalf("unexpected defaults %+v", got)
	}
	if off := (PageParams{Page: 3, PerPage: 20}).Offset(); off != 40 {
		t.Fatalf("expected offset 40, got %d", off)
	}
}

func TestBuildMeta(t *testing.T) {
	meta := BuildMeta(PageParams{Page: 2, PerPage: 20}, 41)
	if meta.LastPage != 3 || meta.Total != 41 || meta.CurrentPage != 2 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if empty := BuildMeta(PageParams{}, 0); empty.LastPage != 1 {
		t.Fatalf("expected last page 1 for empty result, got %+v", empty)
	}
}
