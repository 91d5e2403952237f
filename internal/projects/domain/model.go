package domain

import (
	"strings"
	"time"
)

// CreatedAtLayout is the ISO-8601 layout used for CreatedAt. It matches the
// output of JavaScript's Date.toISOString so documents written by web clients
// and by this service sort and parse the same way.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// displayLayout renders dates as "Jan 2, 2006".
const displayLayout = "Jan 2, 2006"

// Project is a single named record owned by one user.
// The JSON field names follow the documents stored in the "projects" collection.
type Project struct {
	ID          string `json:"id" firestore:"-"`
	Name        string `json:"name" firestore:"name" validate:"required"`
	Description string `json:"description" firestore:"description" validate:"required"`
	CreatedAt   string `json:"createdAt" firestore:"createdAt"`
	OwnerID     string `json:"userId" firestore:"userId" validate:"required"`
}

// Filter scopes a subscription to the records of one owner.
type Filter struct {
	OwnerID string
}

// Matches reports whether p satisfies the filter.
func (f Filter) Matches(p Project) bool {
	return p.OwnerID == f.OwnerID
}

// FormatCreatedAt renders t the way CreatedAt is stored.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

// CreatedTime parses CreatedAt. The zero time is returned when the value is
// missing or was written in an unexpected format.
func (p Project) CreatedTime() time.Time {
	s := strings.TrimSpace(p.CreatedAt)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{CreatedAtLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DisplayDate is the human readable creation date, e.g. "Oct 19, 2026".
// Unparsable values are returned unchanged.
func (p Project) DisplayDate() string {
	t := p.CreatedTime()
	if t.IsZero() {
		return p.CreatedAt
	}
	return t.Format(displayLayout)
}
