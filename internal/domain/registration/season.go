package domain

import "fmt"

// Scope says which half of a cycle an arrangement is priced and scheduled for.
type Scope int

const (
	ScopeYear Scope = iota + 1
	ScopeFall
	ScopeSpring
)

func (s Scope) String() string {
	switch s {
	case ScopeYear:
		return "year"
	case ScopeFall:
		return "fall"
	case ScopeSpring:
		return "spring"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Window is the registration period the current time falls into.
type Window int

const (
	WindowClosed Window = iota
	WindowEarly
	WindowNormal
	WindowLate1
	WindowLate2
)

func (w Window) String() string {
	switch w {
	case WindowEarly:
		return "early"
	case WindowNormal:
		return "normal"
	case WindowLate1:
		return "late1"
	case WindowLate2:
		return "late2"
	default:
		return "closed"
	}
}

// SeasonTriple is the year/fall/spring set of one academic cycle.
type SeasonTriple struct {
	Year   *Season
	Fall   *Season
	Spring *Season
}

// ScopeOf classifies a season id against the triple.
func (t *SeasonTriple) ScopeOf(seasonID int64) (Scope, bool) {
	switch {
	case t.Year != nil && t.Year.SeasonID == seasonID:
		return ScopeYear, true
	case t.Fall != nil && t.Fall.SeasonID == seasonID:
		return ScopeFall, true
	case t.Spring != nil && t.Spring.SeasonID == seasonID:
		return ScopeSpring, true
	}
	return 0, false
}

// Season returns the member season for a scope, or nil.
func (t *SeasonTriple) Season(scope Scope) *Season {
	switch scope {
	case ScopeYear:
		return t.Year
	case ScopeFall:
		return t.Fall
	case ScopeSpring:
		return t.Spring
	}
	return nil
}

// Overlapping returns the ids of seasons whose classes run at the same time
// as classes of the given scope. A year class overlaps both halves.
func (t *SeasonTriple) Overlapping(scope Scope) []int64 {
	ids := make([]int64, 0, 3)
	add := func(s *Season) {
		if s != nil {
			ids = append(ids, s.SeasonID)
		}
	}
	switch scope {
	case ScopeYear:
		add(t.Year)
		add(t.Fall)
		add(t.Spring)
	case ScopeFall:
		add(t.Year)
		add(t.Fall)
	case ScopeSpring:
		add(t.Year)
		add(t.Spring)
	}
	return ids
}
