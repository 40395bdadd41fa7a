// Package calendar holds the table of recurring sale events and finds the
// nearest upcoming occurrence within a fixed lookahead horizon.
//
// Year rollover rule: an event whose month is earlier than the current month
// is looked up next year. An event in the current month stays in the current
// year even when its day has already passed, so such days produce a negative
// distance and are dropped until the event recurs.
package calendar

import (
	"fmt"
	"slices"
	"time"

	"github.com/rewired-gh/pricewise/internal/models"
)

// Horizon is how many days ahead a sale still counts as upcoming.
const Horizon = 60

// Calendar is an immutable table of sale events. It is safe for concurrent use.
type Calendar struct {
	events []models.SaleEvent
}

// New validates events and returns a calendar holding a private copy of them.
// Table order is preserved and decides ties between equally near events.
func New(events []models.SaleEvent) (*Calendar, error) {
	copied := make([]models.SaleEvent, len(events))
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid sale event at index %d: %w", i, err)
		}
		copied[i] = models.SaleEvent{Name: e.Name, Month: e.Month, Days: slices.Clone(e.Days)}
	}
	return &Calendar{events: copied}, nil
}

// Default returns a calendar built from DefaultEvents.
func Default() *Calendar {
	cal, err := New(DefaultEvents())
	if err != nil {
		panic(fmt.Sprintf("calendar: default events are invalid: %v", err))
	}
	return cal
}

// Events returns a copy of the configured table.
func (c *Calendar) Events() []models.SaleEvent {
	out := make([]models.SaleEvent, len(c.events))
	for i, e := range c.events {
		out[i] = models.SaleEvent{Name: e.Name, Month: e.Month, Days: slices.Clone(e.Days)}
	}
	return out
}

// NextSale returns the sale nearest to today that starts within Horizon days,
// or nil when none does. Only the calendar date of today matters.
func (c *Calendar) NextSale(today time.Time) *models.UpcomingSale {
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var best *models.UpcomingSale
	for _, event := range c.events {
		year := y
		if event.Month < m {
			year++
		}
		for _, day := range event.Days {
			// Feb 29 outside a leap year would normalise into March; skip it.
			if day > daysIn(event.Month, year) {
				continue
			}
			candidate := time.Date(year, event.Month, day, 0, 0, 0, 0, time.UTC)
			daysUntil := int(candidate.Sub(start).Hours() / 24)
			if daysUntil < 0 || daysUntil > Horizon {
				continue
			}
			if best == nil || daysUntil < best.DaysUntil {
				best = &models.UpcomingSale{Name: event.Name, DaysUntil: daysUntil}
			}
		}
	}
	return best
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DefaultEvents is the built-in table of Indian-market sale events.
func DefaultEvents() []models.SaleEvent {
	return []models.SaleEvent{
		{Name: "Republic Day Sale", Month: time.January, Days: []int{26}},
		{Name: "Valentine's Day Sale", Month: time.February, Days: []int{14}},
		{Name: "Holi Sale", Month: time.March, Days: dayRange(15, 25)},
		{Name: "Summer Sale", Month: time.May, Days: dayRange(1, 31)},
		{Name: "Independence Day Sale", Month: time.August, Days: []int{15}},
		{Name: "Ganesh Chaturthi Sale", Month: time.September, Days: dayRange(1, 15)},
		{Name: "Diwali Sale", Month: time.October, Days: append(dayRange(15, 31), dayRange(1, 15)...)},
		{Name: "Black Friday", Month: time.November, Days: dayRange(20, 30)},
		{Name: "Christmas Sale", Month: time.December, Days: dayRange(20, 31)},
		{Name: "New Year Sale", Month: time.January, Days: dayRange(1, 7)},
	}
}

// dayRange returns from..to-1.
func dayRange(from, to int) []int {
	days := make([]int, 0, to-from)
	for d := from; d < to; d++ {
		days = append(days, d)
	}
	return days
}
