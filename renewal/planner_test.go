package renewal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tiffin-engine/calendar"
)

var monFri = calendar.DeliveryWindow{Start: time.Monday, End: time.Friday}

func TestProjectEndDate_WeekdayPlan(t *testing.T) {
	preferred := calendar.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	// Wednesday 2025-03-05, 3 units left: Wed, Thu, Fri consume them.
	today := calendar.NewDate(2025, time.March, 5)

	end, ok := ProjectEndDate(3, preferred, monFri, today)

	require.True(t, ok)
	assert.Equal(t, "2025-03-07", end.String())
}

func TestProjectEndDate_SkipsNonQualifyingDays(t *testing.T) {
	preferred := calendar.NewWeekdaySet(time.Monday)
	today := calendar.NewDate(2025, time.March, 5) // Wednesday

	end, ok := ProjectEndDate(2, preferred, monFri, today)

	// Only Mondays qualify: 2025-03-10 and 2025-03-17.
	require.True(t, ok)
	assert.Equal(t, "2025-03-17", end.String())
}

func TestProjectEndDate_CrossesWeekend(t *testing.T) {
	preferred := calendar.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	today := calendar.NewDate(2025, time.March, 7) // Friday

	end, ok := ProjectEndDate(2, preferred, monFri, today)

	require.True(t, ok)
	assert.Equal(t, "2025-03-10", end.String()) // Friday + next Monday
}

func TestProjectEndDate_NoQualifyingDays(t *testing.T) {
	// Preferred days entirely outside the window never qualify.
	preferred := calendar.NewWeekdaySet(time.Saturday, time.Sunday)

	_, ok := ProjectEndDate(5, preferred, monFri, calendar.NewDate(2025, time.March, 5))

	assert.False(t, ok)
}

func TestProjectEndDate_EmptyPreferredSet(t *testing.T) {
	_, ok := ProjectEndDate(5, calendar.WeekdaySet{}, monFri, calendar.NewDate(2025, time.March, 5))
	assert.False(t, ok)
}

func TestProjectEndDate_NonPositiveRemaining(t *testing.T) {
	preferred := calendar.NewWeekdaySet(time.Monday)
	_, ok := ProjectEndDate(0, preferred, monFri, calendar.NewDate(2025, time.March, 5))
	assert.False(t, ok)
	_, ok = ProjectEndDate(-3, preferred, monFri, calendar.NewDate(2025, time.March, 5))
	assert.False(t, ok)
}

func TestNextBusinessStart(t *testing.T) {
	// Saturday 2025-03-08 -> Monday 2025-03-10
	assert.Equal(t, "2025-03-10", NextBusinessStart(calendar.NewDate(2025, time.March, 8)).String())
	// Sunday 2025-03-09 -> Monday 2025-03-10
	assert.Equal(t, "2025-03-10", NextBusinessStart(calendar.NewDate(2025, time.March, 9)).String())
	// Weekdays pass through untouched
	assert.Equal(t, "2025-03-05", NextBusinessStart(calendar.NewDate(2025, time.March, 5)).String())
	assert.Equal(t, "2025-03-07", NextBusinessStart(calendar.NewDate(2025, time.March, 7)).String())
}
