package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserSummary is the {_id, username} projection used for user references.
type UserSummary struct {
	ID       uuid.UUID `json:"_id"`
	Username string    `json:"username"`
}

// Actor is the authenticated caller as resolved by the access gate.
type Actor struct {
	ID   uuid.UUID
	Role string
}

type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
