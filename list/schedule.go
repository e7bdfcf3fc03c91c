/*
schedule.go - Purchase-date scheduling

PURPOSE:
  Places a contributed item on the correct future shopping trip. Two
  configured weekday cadences exist: the main weekly shop and a separate
  trip for fresh goods. The chosen date must never fall after the meal
  the item serves, and only dinner may be stocked on the meal day itself.

RULES (in order):
  1. cutoff = meal date for dinner, the day before otherwise
  2. each cadence's next occurrence is computed on/after today
  3. an occurrence past the cutoff collapses: main to today, fresh to
     the (already clamped) main date
  4. fresh items use the fresh date whenever the meal is on or after it;
     everything else uses the main date
  5. meals strictly before today are never scheduled - callers filter
     them out before calling in

SEE ALSO:
  - reconcile.go: Calls ScheduleDate once per contributed item
*/
package list

import "time"

// =============================================================================
// MEALS
// =============================================================================

type Meal string

const (
	MealMorning Meal = "morning"
	MealLunch   Meal = "lunch"
	MealDinner  Meal = "dinner"
)

// ValidMeal reports whether s is one of the three meal slots.
func ValidMeal(s string) bool {
	switch Meal(s) {
	case MealMorning, MealLunch, MealDinner:
		return true
	}
	return false
}

// =============================================================================
// CADENCE CONFIGURATION
// =============================================================================

// CadenceConfig holds the two configured shopping weekdays.
type CadenceConfig struct {
	MainWeekday  time.Weekday
	FreshWeekday time.Weekday
}

// DefaultCadence is the stock configuration: the big weekly shop on
// Wednesday, fresh goods on Friday.
func DefaultCadence() CadenceConfig {
	return CadenceConfig{MainWeekday: time.Wednesday, FreshWeekday: time.Friday}
}

// nextWeekday returns the next occurrence of the target weekday on or
// after from.
func nextWeekday(from Date, target time.Weekday) Date {
	ahead := (int(target) - int(from.Weekday()) + 7) % 7
	return from.AddDays(ahead)
}

// =============================================================================
// SCHEDULING
// =============================================================================

// ScheduleDate computes the shopping day for one contributed item.
//
// The result is always within [today, cutoff]: shopping never happens
// after the meal it serves, and an off-cadence trip today is preferred
// over one that would come too late. Fresh goods go on the nearer fresh
// cadence when the meal is on or after it.
func ScheduleDate(mealDate Date, meal Meal, isFresh bool, today Date, cfg CadenceConfig) Date {
	cutoff := mealDate
	if meal != MealDinner {
		// Same-day shopping only makes sense for dinner.
		cutoff = mealDate.AddDays(-1)
	}

	main := nextWeekday(today, cfg.MainWeekday)
	if main.After(cutoff) {
		main = today
	}

	fresh := nextWeekday(today, cfg.FreshWeekday)
	if fresh.After(cutoff) {
		fresh = main
	}

	if isFresh && mealDate.AfterOrEqual(fresh) {
		return fresh
	}
	return main
}
