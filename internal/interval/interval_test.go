package interval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionToMinutes(t *testing.T) {
	for p := 0; p <= MinuteBandEnd; p++ {
		assert.Equal(t, p, PositionToMinutes(p), "minute band position %d", p)
	}
	for p := MinuteBandEnd + 1; p <= HourBandEnd; p++ {
		assert.Equal(t, 60+(p-60)*60, PositionToMinutes(p), "hour band position %d", p)
	}

	tests := []struct {
		name     string
		position int
		want     int
	}{
		{"one day", 83, 1440},
		{"two days", 84, 2880},
		{"thirty days", 112, 43200},
		{"month band start", 113, 43200},
		{"two months", 114, 86400},
		{"twelve months", 124, 518400},
		{"capped before year", 125, 525600},
		{"year", 126, 525600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PositionToMinutes(tt.position))
		})
	}
}

func TestPositionToMinutesIsMonotonic(t *testing.T) {
	prev := PositionToMinutes(0)
	for p := 1; p <= MaxPosition; p++ {
		got := PositionToMinutes(p)
		require.GreaterOrEqual(t, got, prev, "position %d", p)
		if got == prev {
			assert.Contains(t, []int{DayBandEnd, MaxPosition}, p, "unexpected plateau at %d", p)
		}
		prev = got
	}
}

func TestPositionToMinutesOutOfRange(t *testing.T) {
	assert.Equal(t, -3, PositionToMinutes(-3))
	assert.Equal(t, MinutesPerYear, PositionToMinutes(500))
}

func TestMinutesToPosition(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		want    int
	}{
		{"zero", 0, 0},
		{"fifteen minutes", 15, 15},
		{"one hour", 60, 60},
		{"ninety minutes rounds up", 90, 61},
		{"four hours", 240, 63},
		{"one day", 1440, 83},
		{"just over a day", 1441, 84},
		{"four days", 5760, 86},
		{"nine days", 12960, 91},
		{"fifteen days", 21600, 97},
		{"twenty five days", 36000, 107},
		{"just under a month", 43199, 112},
		{"one month", 43200, 113},
		{"just over a month", 43201, 114},
		{"one year", 525600, 126},
		{"beyond a year", 600000, 126},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MinutesToPosition(tt.minutes))
		})
	}
}

func TestMinutesToPositionIsMonotonic(t *testing.T) {
	prev := MinutesToPosition(0)
	for m := 1; m <= MinutesPerYear; m++ {
		got := MinutesToPosition(m)
		if got < prev {
			t.Fatalf("MinutesToPosition(%d) = %d, below MinutesToPosition(%d) = %d", m, got, m-1, prev)
		}
		prev = got
	}
}

func TestRoundTripStaysOnNotch(t *testing.T) {
	for p := 0; p <= MaxPosition; p++ {
		m := PositionToMinutes(p)
		assert.Equal(t, m, PositionToMinutes(MinutesToPosition(m)), "position %d", p)
	}
}

func TestMinutesToLabel(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0"},
		{5, "5 min"},
		{59, "59 min"},
		{60, "1 h"},
		{90, "2 h"},
		{240, "4 h"},
		{1440, "1 d"},
		{2160, "2 d"},
		{36000, "25 d"},
		{43200, "1 mo"},
		{64800, "2 mo"},
		{518400, "12 mo"},
		{525600, "1 yr"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, MinutesToLabel(tt.minutes))
		})
	}
}

func TestPositionsAndMinutes(t *testing.T) {
	intervals := []int{0, 5, 30, 60, 240, 1440}
	positions := Positions(intervals)
	assert.Equal(t, []int{0, 5, 30, 60, 63, 83}, positions)
	assert.Equal(t, intervals, Minutes(positions))
}

func TestValidatePosition(t *testing.T) {
	require.NoError(t, ValidatePosition(0))
	require.NoError(t, ValidatePosition(MaxPosition))

	err := ValidatePosition(-1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	err = ValidatePositions([]int{0, 60, 127})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
