// Package pagination implements keyset paging over (created_at DESC, id DESC)
// with opaque cursors.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

const cursorSep = "~"

var errMalformedCursor = errors.New("malformed cursor")

// Cursor is the position of the last row on a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer asks for one extra row so Trim can tell whether another
// page follows.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders a URL-safe token: base64 of "<unix nanos base36>~<id>".
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 36) + cursorSep + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for an empty value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, errMalformedCursor
	}
	rawTime, rawID, ok := strings.Cut(string(decoded), cursorSep)
	if !ok {
		return nil, errMalformedCursor
	}
	nanos, err := strconv.ParseInt(rawTime, 36, 64)
	if err != nil {
		return nil, errMalformedCursor
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errMalformedCursor
	}
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// Keyset orders newest first and, when c is set, resumes after it. limit
// should come from LimitWithBuffer.
func Keyset(c *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if c != nil {
			q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
		}
		return q.Order("created_at DESC").Order("id DESC").Limit(limit)
	}
}

// Trim drops the buffer row fetched by LimitWithBuffer and returns the cursor
// for the next page, or nil on the last page.
func Trim[T any](rows []T, bufferedLimit int, position func(T) Cursor) ([]T, *Cursor) {
	pageSize := bufferedLimit - 1
	if pageSize <= 0 || len(rows) <= pageSize {
		return rows, nil
	}
	rows = rows[:pageSize]
	next := position(rows[len(rows)-1])
	return rows, &next
}
