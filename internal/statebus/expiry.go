package statebus

import "time"

// ShouldExpire reports whether the record's state claim has outlived its
// declared expiry at instant now. An empty ExpiresAt means the claim never
// expires, and an unparseable ExpiresAt also returns false: bad input must
// never force an erroneous reset (fail open).
//
// The boundary is closed: now == expiresAt already counts as expired.
func ShouldExpire(rec Record, now time.Time) bool {
	if rec.ExpiresAt == "" {
		return false
	}
	expires, err := time.Parse(time.RFC3339, rec.ExpiresAt)
	if err != nil {
		return false
	}
	return !now.Before(expires)
}
