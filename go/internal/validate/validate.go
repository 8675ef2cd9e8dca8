package validate

import (
	"regexp"
	"strings"
)

const (
	// MaxNameLength caps player display names.
	MaxNameLength = 32
	// MaxItemLength caps free-text character assignments.
	MaxItemLength = 100
)

// roomCodePattern matches exactly six uppercase alphanumerics. Anything
// else is rejected before the store is consulted.
var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// RoomCode reports whether s is a well-formed room code.
func RoomCode(s string) bool {
	return roomCodePattern.MatchString(s)
}

// PlayerName reports whether s is a usable display name after trimming.
func PlayerName(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && len(trimmed) <= MaxNameLength
}

// ItemText reports whether s is a usable character assignment after trimming.
func ItemText(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && len(trimmed) <= MaxItemLength
}
