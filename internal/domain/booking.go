package domain

import "time"

// Booking occupies a room for a half-open stay. No two bookings on the
// same room may overlap.
type Booking struct {
	ID             int64
	RoomHotelID    int64
	RoomNumber     string
	GuestID        int64
	NumberOfGuests int
	Stay           Stay
	Comment        string
}

func (b Booking) Room() RoomRef { return RoomRef{HotelID: b.RoomHotelID, Number: b.RoomNumber} }

// BookingPatch enumerates the updatable booking fields; nil means
// unchanged. A date change is re-checked against the overlap invariant,
// excluding the booking being updated.
type BookingPatch struct {
	NumberOfGuests *int
	StartDate      *time.Time
	EndDate        *time.Time
	Comment        *string
}

func (p BookingPatch) Empty() bool {
	return p.NumberOfGuests == nil && p.StartDate == nil && p.EndDate == nil && p.Comment == nil
}

// Confirmation is the exportable record of a successful booking.
type Confirmation struct {
	BookingID      int64
	RoomHotelID    int64
	RoomNumber     string
	GuestID        int64
	NumberOfGuests int
	Stay           Stay
	Comment        string
	NightlyPrice   float64
}
