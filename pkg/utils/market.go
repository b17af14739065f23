package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// MarketStatus values.
const (
	StatusOpen    = "OPEN"
	StatusPreOpen = "PRE_OPEN"
	StatusClosed  = "CLOSED"
)

// GetMarketStatus returns the current market status.
func GetMarketStatus() string {
	now := time.Now().In(IndiaLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return StatusClosed
	}

	timeMinutes := now.Hour()*60 + now.Minute()

	// Pre-open: 9:00 - 9:15
	if timeMinutes >= 540 && timeMinutes < 555 {
		return StatusPreOpen
	}

	// Market open: 9:15 - 15:30
	if timeMinutes >= 555 && timeMinutes < 930 {
		return StatusOpen
	}

	return StatusClosed
}

// IsMarketOpen returns true if the market is currently open.
func IsMarketOpen() bool {
	return GetMarketStatus() == StatusOpen
}

// SessionOpen returns the session open (09:15 IST) for the day of t.
func SessionOpen(t time.Time) time.Time {
	ist := t.In(IndiaLocation)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 9, 15, 0, 0, IndiaLocation)
}

// SessionClose returns the session close (15:30 IST) for the day of t.
func SessionClose(t time.Time) time.Time {
	ist := t.In(IndiaLocation)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 15, 30, 0, 0, IndiaLocation)
}

// TradingDate returns the IST calendar date of t, truncated to midnight.
// Catalog refreshes and ledger partitions are keyed by this.
func TradingDate(t time.Time) time.Time {
	ist := t.In(IndiaLocation)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IndiaLocation)
}

// SameTradingDate reports whether two instants fall on the same IST date.
func SameTradingDate(a, b time.Time) bool {
	return TradingDate(a).Equal(TradingDate(b))
}

// YearsUntil returns the time to expiry in years, measured to the 15:30 IST
// close of the expiry date. Non-positive when the series has expired.
func YearsUntil(expiry time.Time, now time.Time) float64 {
	end := SessionClose(expiry)
	return end.Sub(now).Hours() / (24 * 365)
}
