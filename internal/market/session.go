package market

import "time"

// Beijing is the exchange time zone. Falls back to a fixed +08:00 zone when
// tzdata is not installed.
var Beijing = loadBeijing()

func loadBeijing() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*3600)
}

const (
	OpenMinute    = 9*60 + 30
	MorningClose  = 11*60 + 30
	AfternoonOpen = 13 * 60
	CloseMinute   = 15 * 60
)

// Minutes returns the minute of day of t in Beijing time.
func Minutes(t time.Time) int {
	t = t.In(Beijing)
	return t.Hour()*60 + t.Minute()
}

// IsWeekend reports whether t falls on a Saturday or Sunday in Beijing.
func IsWeekend(t time.Time) bool {
	wd := t.In(Beijing).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// BeforeOpen reports whether t is before 09:30 Beijing time.
func BeforeOpen(t time.Time) bool {
	return Minutes(t) < OpenMinute
}

// AfterClose reports whether t is at or after 15:00 Beijing time.
func AfterClose(t time.Time) bool {
	return Minutes(t) >= CloseMinute
}

// IsTradingTime checks the A-share continuous auction sessions.
// Holidays are ignored.
func IsTradingTime(t time.Time) bool {
	if IsWeekend(t) {
		return false
	}
	hm := Minutes(t)
	if hm >= OpenMinute && hm <= MorningClose {
		return true
	}
	return hm >= AfternoonOpen && hm <= CloseMinute
}

// SessionBounds returns 09:30 and 15:00 of t's trading day.
func SessionBounds(t time.Time) (start, end time.Time) {
	t = t.In(Beijing)
	start = time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, Beijing)
	end = time.Date(t.Year(), t.Month(), t.Day(), 15, 0, 0, 0, Beijing)
	return start, end
}

// DayStart returns midnight of t's day in Beijing time.
func DayStart(t time.Time) time.Time {
	t = t.In(Beijing)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Beijing)
}
