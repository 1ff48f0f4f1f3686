package services

import (
	"cwms/src/models"
	"cwms/src/types"
	"time"

	"gorm.io/gorm"
)

// IsAvailable decides whether [start,end) can be booked on the resource.
// Rules short-circuit in order: active flag, operating hours, duration
// bounds, then a buffered overlap query against non-cancelled bookings.
// excludeBookingID skips the booking's own row when rechecking a reschedule.
// Ordinary unavailability returns false without error; only a malformed
// window is an error.
func IsAvailable(tx *gorm.DB, resource *models.SpaceResource, start, end time.Time, excludeBookingID uint) (bool, error) {
	if !end.After(start) {
		return false, NewValidationError("end", "must be after start")
	}
	if !resource.Active {
		return false, nil
	}
	if !withinOperatingHours(resource, start, end) {
		return false, nil
	}
	duration := DurationMinutes(start, end)
	if duration < float64(resource.MinDuration) {
		return false, nil
	}
	if resource.MaxDuration > 0 && duration > float64(resource.MaxDuration) {
		return false, nil
	}

	buffer := time.Duration(resource.BufferDuration) * time.Minute
	windowStart := start.Add(-buffer)
	windowEnd := end.Add(buffer)

	var count int64
	q := tx.
		Model(&models.Booking{}).
		Where("resource_id = ?", resource.ID).
		Where("status <> ?", types.BOOKING_CANCELED).
		Where("start_time < ? AND end_time > ?", windowEnd, windowStart)
	if excludeBookingID > 0 {
		q = q.Where("id <> ?", excludeBookingID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// withinOperatingHours checks the daily window when one is configured. The
// window is minutes from midnight in the booking's own location; a booking
// must start and end on the same day to be judged against it.
func withinOperatingHours(resource *models.SpaceResource, start, end time.Time) bool {
	if resource.OpensAt == nil || resource.ClosesAt == nil {
		return true
	}
	// Multi-day stays (private offices) are not held to a daily window.
	if end.Sub(start) >= 24*time.Hour {
		return true
	}
	startMin := uint(start.Hour()*60 + start.Minute())
	endMin := uint(end.Hour()*60 + end.Minute())
	endDay := end
	if endMin == 0 {
		// An end at 00:00 closes out the preceding day.
		endMin = 24 * 60
		endDay = end.Add(-time.Minute)
	}
	if start.YearDay() != endDay.YearDay() {
		// Crosses midnight; never inside a same-day window.
		return false
	}
	return startMin >= *resource.OpensAt && endMin <= *resource.ClosesAt
}
