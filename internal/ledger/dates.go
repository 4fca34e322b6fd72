package ledger

import "time"

// normalizeDate converts a caller-supplied date into the storage
// representation: UTC, with a zero value defaulting to the current time.
func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// endOfDay returns the last representable millisecond of t's calendar day,
// 23:59:59.999. Range filters treat the end date as inclusive through this
// instant; one millisecond later is the next day and excluded.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999*int(time.Millisecond), t.Location())
}
