package backend

import (
	"spendlite/internal/sheets"
)

// Type selects where the export worker mirrors transactions.
type Type string

const (
	NoneBackend   Type = "none"
	MemoryBackend Type = "memory"
	SheetsBackend Type = "sheets"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case NoneBackend, MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// Result contains the appender and an optional cleanup function. A nil
// Appender means exports are disabled.
type Result struct {
	Appender sheets.RowAppender
	Cleanup  func() error
}
