package model

// Resource represents a bookable entity (court, chair, room, ...)
// exposed by the booking backend.  It is fetched once per viewing
// session and is immutable afterwards.  Working hours and the three
// exclusion fields drive the availability grid; the scheduler offers
// 30-minute slots between OpenTime and CloseTime for each parallel
// unit.
//
// Fields:
//  ID                     – backend identifier.
//  Name                   – display name.
//  UnitsCount             – number of parallel bookable units.
//  OpenTime / CloseTime   – working hours as "HH:mm" strings.
//  PricePerSlot           – price of one 30-minute slot.
//  Currency               – ISO currency code, e.g. "EUR".
//  UnavailableWeekdays    – comma-separated weekday indices (0=Sun..6=Sat).
//  UnavailableDates       – comma-separated ISO dates ("2025-12-24,...").
//  DailyUnavailableRanges – semicolon-separated "HH:mm-HH:mm" intervals
//                           excluded on every day.
type Resource struct {
	ID                     uint64  `json:"id"`
	Name                   string  `json:"name"`
	UnitsCount             int     `json:"unitsCount"`
	OpenTime               string  `json:"openTime"`
	CloseTime              string  `json:"closeTime"`
	PricePerSlot           float64 `json:"pricePerSlot"`
	Currency               string  `json:"currency"`
	UnavailableWeekdays    string  `json:"unavailableWeekdays"`
	UnavailableDates       string  `json:"unavailableDates"`
	DailyUnavailableRanges string  `json:"dailyUnavailableRanges"`
}

// Units returns the number of bookable units, never less than one.
// Backends occasionally report zero for legacy rows.
func (r *Resource) Units() int {
	if r.UnitsCount < 1 {
		return 1
	}
	return r.UnitsCount
}
