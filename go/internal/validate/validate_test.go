package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"valid uppercase alphanumeric", "ABC123", true},
		{"valid all letters", "QWERTY", true},
		{"valid all digits", "123456", true},
		{"lowercase rejected", "abc123", false},
		{"too short", "ABC12", false},
		{"too long", "ABC1234", false},
		{"empty", "", false},
		{"symbols rejected", "ABC-12", false},
		{"whitespace rejected", "ABC 12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomCode(tt.code))
		})
	}
}

func TestPlayerName(t *testing.T) {
	assert.True(t, PlayerName("Alice"))
	assert.True(t, PlayerName("  Bob  "))
	assert.False(t, PlayerName(""))
	assert.False(t, PlayerName("   "))
	assert.False(t, PlayerName(strings.Repeat("x", MaxNameLength+1)))
	assert.True(t, PlayerName(strings.Repeat("x", MaxNameLength)))
}

func TestItemText(t *testing.T) {
	assert.True(t, ItemText("Sherlock Holmes"))
	assert.False(t, ItemText(""))
	assert.False(t, ItemText("\t\n"))
	assert.False(t, ItemText(strings.Repeat("y", MaxItemLength+1)))
	assert.True(t, ItemText(strings.Repeat("y", MaxItemLength)))
}
