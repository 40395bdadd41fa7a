package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/pricewise/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustCalendar(t *testing.T, events ...models.SaleEvent) *Calendar {
	t.Helper()
	cal, err := New(events)
	require.NoError(t, err)
	return cal
}

func TestNextSale_TenDaysAhead(t *testing.T) {
	cal := mustCalendar(t, models.SaleEvent{Name: "Mid-Year Sale", Month: time.June, Days: []int{20}})

	got := cal.NextSale(day(2025, time.June, 10))
	require.NotNil(t, got)
	assert.Equal(t, "Mid-Year Sale", got.Name)
	assert.Equal(t, 10, got.DaysUntil)
}

func TestNextSale_HorizonBoundary(t *testing.T) {
	cal := mustCalendar(t, models.SaleEvent{Name: "Independence Day Sale", Month: time.August, Days: []int{10}})

	assert.Nil(t, cal.NextSale(day(2025, time.June, 10)), "61 days ahead is outside the horizon")

	got := cal.NextSale(day(2025, time.June, 11))
	require.NotNil(t, got)
	assert.Equal(t, 60, got.DaysUntil)
}

func TestNextSale_SaleToday(t *testing.T) {
	cal := mustCalendar(t, models.SaleEvent{Name: "Flash Sale", Month: time.April, Days: []int{3}})

	got := cal.NextSale(day(2025, time.April, 3))
	require.NotNil(t, got)
	assert.Equal(t, 0, got.DaysUntil)
}

func TestNextSale_IgnoresTimeOfDay(t *testing.T) {
	cal := mustCalendar(t, models.SaleEvent{Name: "Flash Sale", Month: time.April, Days: []int{4}})

	got := cal.NextSale(time.Date(2025, time.April, 3, 23, 59, 0, 0, time.UTC))
	require.NotNil(t, got)
	assert.Equal(t, 1, got.DaysUntil)
}

func TestNextSale_EarlierMonthRollsToNextYear(t *testing.T) {
	cal := mustCalendar(t, models.SaleEvent{Name: "New Year Sale", Month: time.January, Days: []int{5}})

	got := cal.NextSale(day(2025, time.December, 10))
	require.NotNil(t, got)
	assert.Equal(t, 26, got.DaysUntil)
}

// An event earlier in the current month is not rolled to next year. Its day
// gives a negative distance and is dropped, so only later days of the same
// event can match.
func TestNextSale_SameMonthPassedDayIsDropped(t *testing.T) {
	cal := mustCalendar(t, models.SaleEvent{Name: "Mid-Month Sale", Month: time.June, Days: []int{5}})
	assert.Nil(t, cal.NextSale(day(2025, time.June, 10)))

	cal = mustCalendar(t, models.SaleEvent{Name: "Mid-Month Sale", Month: time.June, Days: []int{5, 25}})
	got := cal.NextSale(day(2025, time.June, 10))
	require.NotNil(t, got)
	assert.Equal(t, 15, got.DaysUntil)
}

func TestNextSale_NearestWinsAndTiesKeepTableOrder(t *testing.T) {
	cal := mustCalendar(t,
		models.SaleEvent{Name: "Later Sale", Month: time.July, Days: []int{20}},
		models.SaleEvent{Name: "First Sale", Month: time.July, Days: []int{10}},
		models.SaleEvent{Name: "Second Sale", Month: time.July, Days: []int{10}},
	)

	got := cal.NextSale(day(2025, time.July, 1))
	require.NotNil(t, got)
	assert.Equal(t, "First Sale", got.Name)
	assert.Equal(t, 9, got.DaysUntil)
}

func TestNextSale_LeapDay(t *testing.T) {
	cal := mustCalendar(t, models.SaleEvent{Name: "Leap Sale", Month: time.February, Days: []int{29}})

	assert.Nil(t, cal.NextSale(day(2025, time.February, 1)))

	got := cal.NextSale(day(2028, time.February, 1))
	require.NotNil(t, got)
	assert.Equal(t, 28, got.DaysUntil)
}

func TestNextSale_DefaultTable(t *testing.T) {
	cal := Default()

	// Ganesh Chaturthi (Sep 1-14) has passed this month; Diwali starts Oct 1.
	got := cal.NextSale(day(2025, time.September, 20))
	require.NotNil(t, got)
	assert.Equal(t, "Diwali Sale", got.Name)
	assert.Equal(t, 11, got.DaysUntil)

	got = cal.NextSale(day(2025, time.November, 15))
	require.NotNil(t, got)
	assert.Equal(t, "Black Friday", got.Name)
	assert.Equal(t, 5, got.DaysUntil)
}

func TestNextSale_EmptyCalendar(t *testing.T) {
	cal := mustCalendar(t)
	assert.Nil(t, cal.NextSale(day(2025, time.June, 1)))
}

func TestNew_RejectsInvalidEvents(t *testing.T) {
	_, err := New([]models.SaleEvent{
		{Name: "Good", Month: time.May, Days: []int{1}},
		{Name: "Bad", Month: time.February, Days: []int{31}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
}

func TestNew_CopiesInput(t *testing.T) {
	events := []models.SaleEvent{{Name: "Sale", Month: time.June, Days: []int{20}}}
	cal := mustCalendar(t, events...)

	events[0].Days[0] = 1
	events[0].Name = "Changed"

	got := cal.NextSale(day(2025, time.June, 10))
	require.NotNil(t, got)
	assert.Equal(t, "Sale", got.Name)
	assert.Equal(t, 10, got.DaysUntil)

	out := cal.Events()
	out[0].Days[0] = 2
	assert.Equal(t, 20, cal.Events()[0].Days[0])
}
