package interval

import (
	"regexp"
	"sort"
)

// RaisedOffset is the vertical shift, in pixels, applied to a label lifted
// above its neighbour. Negative values move the label up.
const RaisedOffset = -18

// simplifyDistance is the notch distance at which both labels are reduced to
// their number.
const simplifyDistance = 2

// MarkStyle carries the layout hints for one slider label.
type MarkStyle struct {
	OffsetY int `json:"offsetY"`
}

// Mark is a label drawn under one slider notch.
type Mark struct {
	Label string    `json:"label"`
	Style MarkStyle `json:"style"`
}

var markNumber = regexp.MustCompile(`(\d+)([a-zA-Z]*)`)

// Marks builds the label map for a list of intervals in minutes. When two
// intervals share a notch the later one wins.
func Marks(intervals []int) map[int]Mark {
	marks := make(map[int]Mark, len(intervals))
	for _, m := range intervals {
		marks[MinutesToPosition(m)] = Mark{Label: MinutesToLabel(m)}
	}
	return marks
}

// SimplifyMark reduces a label such as "15 min" to its number.
func SimplifyMark(label string) string {
	match := markNumber.FindStringSubmatch(label)
	if match == nil {
		return label
	}
	return match[1]
}

// AdjustMarkPositions staggers labels that would overlap. Walking the
// positions in ascending order, every mark that sits within its band's
// proximity threshold of the previous one toggles between a raised and a
// resting offset; a mark with enough room resets the toggle. The input map
// is left untouched.
func AdjustMarkPositions(marks map[int]Mark, orderedPositions []int) map[int]Mark {
	adjusted := make(map[int]Mark, len(marks))
	for p, m := range marks {
		adjusted[p] = m
	}

	positions := labelledPositions(marks, orderedPositions)
	raised := false
	for i := 1; i < len(positions); i++ {
		prev, cur := positions[i-1], positions[i]
		if !collides(prev, cur) {
			raised = false
			continue
		}

		raised = !raised
		if raised {
			m := adjusted[cur]
			m.Style.OffsetY = RaisedOffset
			adjusted[cur] = m
		}

		if cur-prev <= simplifyDistance {
			for _, p := range []int{prev, cur} {
				m := adjusted[p]
				m.Label = SimplifyMark(m.Label)
				adjusted[p] = m
			}
		}
	}

	return adjusted
}

// collides reports whether a label at cur would run into the label at prev.
// Coarser bands pack more text per notch and need wider gaps.
func collides(prev, cur int) bool {
	d := cur - prev
	switch {
	case cur <= MinuteBandEnd:
		return d < 10
	case cur <= HourBandEnd:
		return d <= 4
	case cur < DayBandEnd:
		return d <= 4
	default:
		return d < 8
	}
}

// labelledPositions returns the ascending, de-duplicated positions that carry
// a label. Without an explicit order the map keys are used.
func labelledPositions(marks map[int]Mark, orderedPositions []int) []int {
	source := orderedPositions
	if source == nil {
		source = make([]int, 0, len(marks))
		for p := range marks {
			source = append(source, p)
		}
	}

	seen := make(map[int]bool, len(source))
	positions := make([]int, 0, len(source))
	for _, p := range source {
		if _, ok := marks[p]; !ok || seen[p] {
			continue
		}
		seen[p] = true
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}
