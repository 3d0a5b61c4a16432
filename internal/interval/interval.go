// Package interval maps positions of the review-interval slider onto elapsed
// minutes and back, and formats the labels drawn under the slider.
//
// The slider axis has 127 notches split into four bands of different
// resolution: one minute, one hour, one day and one 30-day month per notch,
// with the last notch pinned to exactly one year.
package interval

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinutesPerHour  = 60
	MinutesPerDay   = 1440
	MinutesPerMonth = 43200
	MinutesPerYear  = 525600
)

// Band edges on the slider axis.
const (
	MinuteBandEnd = 60
	HourBandEnd   = 83
	DayBandEnd    = 113
	MaxPosition   = 126
)

// ErrInvalidArgument is returned by the validating helpers for inputs outside
// the slider or duration domain.
var ErrInvalidArgument = errors.New("interval: invalid argument")

// PositionToMinutes converts a slider position into minutes.
// Positions outside [0, 126] are not validated.
//
// Notch 113 opens the month band at exactly 30 days, the same duration the
// last day notch reaches. Month notches are capped at one year, so 125 and
// 126 both resolve to 525600.
func PositionToMinutes(position int) int {
	switch {
	case position <= MinuteBandEnd:
		return position
	case position <= HourBandEnd:
		return MinutesPerHour + (position-MinuteBandEnd)*MinutesPerHour
	case position < DayBandEnd:
		return MinutesPerDay + (position-HourBandEnd)*MinutesPerDay
	case position < MaxPosition:
		return min(MinutesPerMonth+(position-DayBandEnd)*MinutesPerMonth, MinutesPerYear)
	default:
		return MinutesPerYear
	}
}

// MinutesToPosition converts minutes into the nearest slider notch at or
// above the duration. The mapping is lossy inside the coarse bands.
func MinutesToPosition(minutes int) int {
	switch {
	case minutes <= MinutesPerHour:
		return minutes
	case minutes <= MinutesPerDay:
		return MinuteBandEnd + ceilDiv(minutes-MinutesPerHour, MinutesPerHour)
	case minutes < MinutesPerMonth:
		return HourBandEnd + ceilDiv(minutes-MinutesPerDay, MinutesPerDay)
	case minutes < MinutesPerYear:
		return DayBandEnd + ceilDiv(minutes-MinutesPerMonth, MinutesPerMonth)
	default:
		return MaxPosition
	}
}

// Positions maps every interval in minutes onto its slider notch.
func Positions(intervals []int) []int {
	positions := make([]int, len(intervals))
	for i, m := range intervals {
		positions[i] = MinutesToPosition(m)
	}
	return positions
}

// Minutes maps every slider notch onto its duration in minutes.
func Minutes(positions []int) []int {
	minutes := make([]int, len(positions))
	for i, p := range positions {
		minutes[i] = PositionToMinutes(p)
	}
	return minutes
}

// MinutesToLabel formats a duration as a compact label such as "15 min",
// "2 h", "3 d", "6 mo" or "1 yr".
func MinutesToLabel(minutes int) string {
	switch {
	case minutes == 0:
		return "0"
	case minutes < MinutesPerHour:
		return fmt.Sprintf("%d min", minutes)
	case minutes < MinutesPerDay:
		return fmt.Sprintf("%d h", roundDiv(minutes, MinutesPerHour))
	case minutes < MinutesPerMonth:
		return fmt.Sprintf("%d d", roundDiv(minutes, MinutesPerDay))
	case minutes < MinutesPerYear:
		return fmt.Sprintf("%d mo", roundDiv(minutes, MinutesPerMonth))
	default:
		return "1 yr"
	}
}

// ValidatePosition reports whether position lies on the slider axis.
func ValidatePosition(position int) error {
	if position < 0 || position > MaxPosition {
		return fmt.Errorf("%w: position %d outside [0, %d]", ErrInvalidArgument, position, MaxPosition)
	}
	return nil
}

// ValidatePositions checks every position in the list.
func ValidatePositions(positions []int) error {
	for _, p := range positions {
		if err := ValidatePosition(p); err != nil {
			return err
		}
	}
	return nil
}

func ceilDiv(n, d int) int {
	return int(math.Ceil(float64(n) / float64(d)))
}

func roundDiv(n, d int) int {
	return int(math.Round(float64(n) / float64(d)))
}
