package sqlstore

import (
	"strconv"
	"time"
)

// Dialect captures the differences between SQL backends that the shared
// store implementation has to account for.
type Dialect struct {
	// Name identifies the dialect in errors and logs.
	Name string
	// DDL returns the schema script applied on open.
	DDL func() string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// CaseInsensitiveLike is the operator used for name searches. SQLite
	// LIKE folds ASCII letters only, so "Ä" does not match "ä" there while
	// the memory store folds full Unicode.
	CaseInsensitiveLike string
	// EncodeTime converts a timestamp into a bind argument.
	EncodeTime func(time.Time) any
}

// QuestionPlaceholder renders "?" for every parameter.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n".
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// TextTime stores timestamps as RFC 3339 text with nanosecond precision.
func TextTime(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) }

// NativeTime passes timestamps to the driver unchanged.
func NativeTime(t time.Time) any { return t.UTC() }
