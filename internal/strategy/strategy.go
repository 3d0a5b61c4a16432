// Package strategy holds named review-interval presets and the per-session
// registry they are selected from.
package strategy

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/example/reviewbot/internal/interval"
)

// Built-in strategy ids.
const (
	Compact  = "compact"
	Standard = "standard"
	Loose    = "loose"
	Daily    = "daily"
	Custom   = "custom"
)

// ErrNotFound is returned for an unknown strategy id.
var ErrNotFound = errors.New("strategy: not found")

// Strategy is a named list of review offsets in minutes.
type Strategy struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Intervals []int  `json:"array"`
}

// Clone returns a deep copy of s.
func (s Strategy) Clone() Strategy {
	s.Intervals = slices.Clone(s.Intervals)
	return s
}

// Positions maps the strategy onto slider notches.
func (s Strategy) Positions() []int {
	return interval.Positions(s.Intervals)
}

// Labels formats every offset for display.
func (s Strategy) Labels() []string {
	labels := make([]string, len(s.Intervals))
	for i, m := range s.Intervals {
		labels[i] = interval.MinutesToLabel(m)
	}
	return labels
}

// Presets returns fresh copies of the built-in strategies in display order.
func Presets() []Strategy {
	return []Strategy{
		{ID: Compact, Label: "Compact", Intervals: []int{0, 5, 15, 30, 60, 240, 1440, 5760, 11520, 21600}},
		{ID: Standard, Label: "Standard", Intervals: []int{0, 5, 30, 60, 240, 1440, 5760, 12960, 21600, 36000}},
		{ID: Loose, Label: "Loose", Intervals: []int{0, 2880, 5760, 21600, 64800, 129600, 259200, 388800, 525600}},
		{ID: Daily, Label: "Daily", Intervals: []int{0, 1440, 2880, 4320, 5760, 7200, 8640}},
		{ID: Custom, Label: "Custom", Intervals: []int{0, 5, 30, 60, 240, 1440, 5760, 12960, 21600, 36000}},
	}
}

// FileStrategyID is the strategy id derived from a file id.
func FileStrategyID(fileID int64) string {
	return strconv.FormatInt(fileID, 10)
}

// ForFile builds the strategy that carries a file's saved intervals.
func ForFile(fileID int64, name string, intervals []int) Strategy {
	return Strategy{
		ID:        FileStrategyID(fileID),
		Label:     name,
		Intervals: slices.Clone(intervals),
	}
}

// Registry is an ordered set of strategies keyed by id. It is owned by one
// session and is not safe for concurrent use.
type Registry struct {
	order []string
	byID  map[string]Strategy
}

// NewRegistry returns a registry seeded with the presets.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]Strategy)}
	for _, s := range Presets() {
		r.Put(s)
	}
	return r
}

// Get returns a copy of the strategy with the given id.
func (r *Registry) Get(id string) (Strategy, error) {
	s, ok := r.byID[id]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.Clone(), nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// List returns copies of all strategies in insertion order.
func (r *Registry) List() []Strategy {
	out := make([]Strategy, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

// Len is the number of registered strategies.
func (r *Registry) Len() int {
	return len(r.order)
}

// Put inserts s or replaces the strategy with the same id in place.
func (r *Registry) Put(s Strategy) {
	if _, ok := r.byID[s.ID]; !ok {
		r.order = append(r.order, s.ID)
	}
	r.byID[s.ID] = s.Clone()
}

// SetCustom overwrites the custom slot and returns it.
func (r *Registry) SetCustom(intervals []int) Strategy {
	custom, ok := r.byID[Custom]
	if !ok {
		custom = Strategy{ID: Custom, Label: "Custom"}
	}
	custom.Intervals = slices.Clone(intervals)
	r.Put(custom)
	return custom.Clone()
}

// SetCustomFromPositions converts slider notches into minutes and stores
// them in the custom slot.
func (r *Registry) SetCustomFromPositions(positions []int) Strategy {
	return r.SetCustom(interval.Minutes(positions))
}
