package bot

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/example/reviewbot/internal/interval"
	"github.com/example/reviewbot/internal/strategy"
	"github.com/example/reviewbot/internal/studyplan"
)

const maxBarWidth = 16

// renderMarks lists a strategy's slider notches. Labels lifted to avoid a
// neighbour are indented.
func renderMarks(st strategy.Strategy) string {
	positions := st.Positions()
	marks := interval.AdjustMarkPositions(interval.Marks(st.Intervals), positions)

	keys := make([]int, 0, len(marks))
	for p := range marks {
		keys = append(keys, p)
	}
	sort.Ints(keys)

	var sb strings.Builder
	for _, p := range keys {
		m := marks[p]
		indent := ""
		if m.Style.OffsetY != 0 {
			indent = "  "
		}
		fmt.Fprintf(&sb, "%3d │ %s%s\n", p, indent, m.Label)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderPlan draws the days of plan inside r, counted from the day now falls
// on, as a bar chart followed by totals for the whole plan.
func renderPlan(plan []studyplan.StudyDay, r studyplan.Range, start, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n<pre>", html.EscapeString(r.String()))

	window := studyplan.Window(plan, r, start, now)
	if len(window) == 0 {
		sb.WriteString("nothing to study")
	}

	peak := 0
	for _, d := range window {
		peak = max(peak, d.NewWords+d.ReviewWords)
	}
	for _, d := range window {
		fmt.Fprintf(&sb, "%s %-*s %d+%d\n",
			html.EscapeString(d.Date), maxBarWidth, bar(d.NewWords+d.ReviewWords, peak), d.NewWords, d.ReviewWords)
	}
	sb.WriteString("</pre>\n")

	sum := studyplan.Summarize(plan)
	fmt.Fprintf(&sb, "%d days, %d new words, %d reviews", sum.Days, sum.TotalNew, sum.TotalReviews)
	if sum.PeakReviews > 0 {
		fmt.Fprintf(&sb, "\nBusiest day: %s with %d reviews", html.EscapeString(sum.PeakDate), sum.PeakReviews)
	}
	return sb.String()
}

// bar scales n against peak; any non-zero value gets at least one block
func bar(n, peak int) string {
	if n <= 0 || peak <= 0 {
		return ""
	}
	width := max(n*maxBarWidth/peak, 1)
	return strings.Repeat("█", width)
}
