package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		ID:        uuid.New(),
	}

	parsed, err := ParseCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, cursor.CreatedAt.Equal(parsed.CreatedAt))
	assert.Equal(t, cursor.ID, parsed.ID)
}

func TestParseCursorEmpty(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

func TestParseCursorInvalid(t *testing.T) {
	_, err := ParseCursor("not-base64!!")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{}) + "x")
	assert.Error(t, err)
}

type pageItem struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func TestTrim(t *testing.T) {
	base := time.Now().UTC()
	items := make([]pageItem, 3)
	for i := range items {
		items[i] = pageItem{CreatedAt: base.Add(-time.Duration(i) * time.Minute), ID: uuid.New()}
	}
	cursorOf := func(it pageItem) Cursor {
		return Cursor{CreatedAt: it.CreatedAt, ID: it.ID}
	}

	// buffered row present: trimmed page plus a cursor pointing at the last kept row
	page, next := Trim(items, 2, cursorOf)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)

	parsed, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, items[1].ID, parsed.ID)

	// exhausted set: no cursor
	page, next = Trim(items[:2], 2, cursorOf)
	assert.Len(t, page, 2)
	assert.Empty(t, next)
}
