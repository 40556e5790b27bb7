// Package calendar reads events from the user's calendars.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jrsteele09/go-calendar-relay/internal/fanout"
)

// Personal classifies non-work events.
type Personal int

const (
	Chore Personal = iota
	Habit
	Plan
	Medical
)

func (p Personal) String() string {
	switch p {
	case Chore:
		return "Chore"
	case Habit:
		return "Habit"
	case Plan:
		return "Plan"
	case Medical:
		return "Medical"
	default:
		return fmt.Sprintf("Personal(%d)", int(p))
	}
}

// Category is either Work or a Personal kind.
type Category struct {
	personal *Personal
}

// Work is the category of events from work calendars.
var Work = Category{}

// PersonalCategory returns the category for a personal event kind.
func PersonalCategory(p Personal) Category {
	return Category{personal: &p}
}

// IsWork reports whether c is Work.
func (c Category) IsWork() bool {
	return c.personal == nil
}

// Personal returns the personal kind, if c is not Work.
func (c Category) Personal() (Personal, bool) {
	if c.personal == nil {
		return 0, false
	}
	return *c.personal, true
}

func (c Category) String() string {
	if c.personal == nil {
		return "Work"
	}
	return "Personal: " + c.personal.String()
}

// Equal compares categories by value.
func (c Category) Equal(o Category) bool {
	if c.personal == nil || o.personal == nil {
		return c.personal == nil && o.personal == nil
	}
	return *c.personal == *o.personal
}

// Event is one calendar entry. Start and End are UTC.
type Event struct {
	Category Category
	Title    string
	Start    time.Time
	End      time.Time
	Location string
}

// Calendar lists the events overlapping [after, before).
type Calendar interface {
	GetEvents(ctx context.Context, after, before time.Time) ([]Event, error)
}

// Collect queries every calendar concurrently and returns all events found,
// sorted by start time. Calendars that fail do not prevent the others from
// being read; their errors come back as an *errors.AggregateError next to
// the events that were collected.
func Collect(ctx context.Context, calendars []Calendar, after, before time.Time) ([]Event, error) {
	perCalendar, err := fanout.Collect(ctx, calendars, func(ctx context.Context, c Calendar) ([]Event, error) {
		return c.GetEvents(ctx, after, before)
	})

	var events []Event
	for _, es := range perCalendar {
		events = append(events, es...)
	}
	SortByStart(events)
	return events, err
}

// SortByStart orders events by start time, keeping the relative order of
// events that start together.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
