package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateTicket(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		times   int
		wantErr error
	}{
		{"minimum size", []int{1, 2, 3, 4, 5}, 1, nil},
		{"maximum size", []int{1, 2, 3, 4, 5, 6, 7, 8}, 1, nil},
		{"high numbers", []int{12, 13, 14, 15, 16}, 3, nil},
		{"too few numbers", []int{1, 2, 3, 4}, 1, ErrInvalidTicket},
		{"too many numbers", []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, ErrInvalidTicket},
		{"duplicate numbers", []int{1, 2, 3, 4, 4}, 1, ErrInvalidTicket},
		{"number below range", []int{0, 2, 3, 4, 5}, 1, ErrInvalidTicket},
		{"number above range", []int{1, 2, 3, 4, 17}, 1, ErrInvalidTicket},
		{"zero multiplier", []int{1, 2, 3, 4, 5}, 0, ErrInvalidMultiplier},
		{"negative multiplier", []int{1, 2, 3, 4, 5}, -2, ErrInvalidMultiplier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTicket(tt.numbers, tt.times)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidNumbersForDraw(t *testing.T) {
	assert.True(t, validNumbers([]int{2, 5, 9}, 3, 3))
	assert.False(t, validNumbers([]int{2, 5}, 3, 3), "too few")
	assert.False(t, validNumbers([]int{2, 5, 9, 11}, 3, 3), "too many")
	assert.False(t, validNumbers([]int{2, 5, 5}, 3, 3), "duplicate")
	assert.False(t, validNumbers([]int{2, 5, 17}, 3, 3), "out of range")
}

func TestBoardWins(t *testing.T) {
	winning := []int{2, 5, 9}

	assert.True(t, boardWins([]int{2, 5, 9, 11, 14}, winning), "all three present")
	assert.True(t, boardWins([]int{1, 2, 3, 5, 7, 9, 12, 16}, winning), "all three in a full board")
	assert.False(t, boardWins([]int{2, 5, 8, 11, 14}, winning), "one missing")
	assert.False(t, boardWins([]int{1, 3, 4, 6, 7}, winning), "none present")
}

func TestIsoWeek(t *testing.T) {
	// 2025-03-05 is a Wednesday in ISO week 10.
	year, week := isoWeek(time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, year)
	assert.Equal(t, 10, week)

	// 2024-12-30 belongs to ISO week 1 of 2025.
	year, week = isoWeek(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, year)
	assert.Equal(t, 1, week)
}
