package services

import (
	"cwms/src/models"
	"cwms/src/types"
	"math"
	"time"
)

// Pure interval and pricing arithmetic. Everything here is side-effect free;
// the availability checker and pricing calculator build on these.

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func DurationMinutes(start, end time.Time) float64 {
	return end.Sub(start).Minutes()
}

// UnitMinutes is the billing length of one price unit. A day is 24h and a
// month is 30d for quantity purposes.
func UnitMinutes(unit types.PriceUnit) float64 {
	switch unit {
	case types.PRICE_UNIT_DAY:
		return 24 * 60
	case types.PRICE_UNIT_WEEK:
		return 7 * 24 * 60
	case types.PRICE_UNIT_MONTH:
		return 30 * 24 * 60
	default:
		return 60
	}
}

// SelectPriceUnit picks the billing granularity for a booking window.
// Meeting rooms always bill hourly and hot desks daily. Private offices
// prefer the monthly rate for stays of 28 days or longer, then the daily
// rate for stays of at least one day, and fall back to hourly.
func SelectPriceUnit(resource *models.SpaceResource, start, end time.Time) types.PriceUnit {
	switch resource.Type {
	case types.RESOURCE_MEETING_ROOM:
		return types.PRICE_UNIT_HOUR
	case types.RESOURCE_HOT_DESK:
		return types.PRICE_UNIT_DAY
	case types.RESOURCE_PRIVATE_OFFICE:
		minutes := DurationMinutes(start, end)
		if minutes >= 28*24*60 && resource.MonthlyRate != nil {
			return types.PRICE_UNIT_MONTH
		}
		if minutes >= 24*60 && resource.DailyRate != nil {
			return types.PRICE_UNIT_DAY
		}
		return types.PRICE_UNIT_HOUR
	}
	return types.PRICE_UNIT_HOUR
}

// QuantityFor expresses the window in the chosen unit, rounded up. Partial
// units bill as whole ones.
func QuantityFor(unit types.PriceUnit, start, end time.Time) float64 {
	return math.Ceil(DurationMinutes(start, end) / UnitMinutes(unit))
}

// Derived-rate multipliers applied to the hourly rate when a resource has no
// configured rate for the selected unit. Fixed approximations of business
// usage (8h day, 40h week, 160h month), deliberately not configurable.
const (
	dayHours   = 8
	weekHours  = 40
	monthHours = 160
)

// UnitRate returns the price of one unit for the resource. When the unit has
// no configured rate it is derived from the hourly rate. ok is false only
// when the resource has no usable rate at all.
func UnitRate(resource *models.SpaceResource, unit types.PriceUnit) (rate float64, ok bool) {
	switch unit {
	case types.PRICE_UNIT_HOUR:
		if resource.HourlyRate != nil {
			return *resource.HourlyRate, true
		}
	case types.PRICE_UNIT_DAY:
		if resource.DailyRate != nil {
			return *resource.DailyRate, true
		}
		if resource.HourlyRate != nil {
			return *resource.HourlyRate * dayHours, true
		}
	case types.PRICE_UNIT_WEEK:
		if resource.WeeklyRate != nil {
			return *resource.WeeklyRate, true
		}
		if resource.HourlyRate != nil {
			return *resource.HourlyRate * weekHours, true
		}
	case types.PRICE_UNIT_MONTH:
		if resource.MonthlyRate != nil {
			return *resource.MonthlyRate, true
		}
		if resource.HourlyRate != nil {
			return *resource.HourlyRate * monthHours, true
		}
	}
	return 0, false
}
