package registry

import (
	"fmt"
	"sort"
)

// Sport is a registered sport and the bookmakers used when a caller names none
type Sport struct {
	Key               string
	DefaultBookmakers []string
}

// SportRegistry is the static sport table. It is built once at startup and
// never modified, so it is safe for concurrent reads without locking.
type SportRegistry struct {
	sports map[string]Sport
	order  []string
}

// NewSportRegistry builds a registry from sports, rejecting empty and duplicate keys
func NewSportRegistry(sports ...Sport) (*SportRegistry, error) {
	r := &SportRegistry{
		sports: make(map[string]Sport, len(sports)),
		order:  make([]string, 0, len(sports)),
	}

	for _, sport := range sports {
		if sport.Key == "" {
			return nil, fmt.Errorf("sport without key")
		}
		if _, exists := r.sports[sport.Key]; exists {
			return nil, fmt.Errorf("sport %s is already registered", sport.Key)
		}

		r.sports[sport.Key] = Sport{
			Key:               sport.Key,
			DefaultBookmakers: append([]string(nil), sport.DefaultBookmakers...),
		}
		r.order = append(r.order, sport.Key)
	}

	return r, nil
}

// FromTable builds a registry from a sport -> bookmakers map, sorted by key
func FromTable(table map[string][]string) (*SportRegistry, error) {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sports := make([]Sport, 0, len(keys))
	for _, k := range keys {
		sports = append(sports, Sport{Key: k, DefaultBookmakers: table[k]})
	}
	return NewSportRegistry(sports...)
}

// Get retrieves a sport by key
func (r *SportRegistry) Get(sportKey string) (Sport, bool) {
	sport, exists := r.sports[sportKey]
	return sport, exists
}

// DefaultBookmakers returns a copy of the sport's default bookmaker list, or
// nil for an unknown sport
func (r *SportRegistry) DefaultBookmakers(sportKey string) []string {
	sport, exists := r.sports[sportKey]
	if !exists || len(sport.DefaultBookmakers) == 0 {
		return nil
	}
	return append([]string(nil), sport.DefaultBookmakers...)
}

// GetAll returns all registered sports in registration order
func (r *SportRegistry) GetAll() []Sport {
	sports := make([]Sport, 0, len(r.order))
	for _, key := range r.order {
		sports = append(sports, r.sports[key])
	}
	return sports
}

// Count returns the number of registered sports
func (r *SportRegistry) Count() int {
	return len(r.order)
}
