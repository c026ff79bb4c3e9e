package domain

import "context"

// SearchFilters is the search configuration; all fields optional.
// Start/End come as a Stay, so half-configured date ranges cannot reach
// the store.
type SearchFilters struct {
	Name       *string // case-insensitive substring match
	City       *string
	MinStars   *int
	ExactStars *int
	MaxGuests  *int
	Stay       *Stay
}

type Store interface {
	// Hotels & rooms
	AddHotel(ctx context.Context, name string, stars int, addr Address) (int64, error)
	GetHotel(ctx context.Context, id int64) (Hotel, error)
	UpdateHotel(ctx context.Context, id int64, p HotelPatch) error
	RemoveHotel(ctx context.Context, id int64) error
	AddRoom(ctx context.Context, r Room) error
	GetRoom(ctx context.Context, ref RoomRef) (Room, error)
	ListRooms(ctx context.Context, hotelID int64, minCapacity int) ([]RoomSummary, error)
	SetRoomAvailability(ctx context.Context, ref RoomRef, available bool) error
	SetRoomPrice(ctx context.Context, ref RoomRef, price float64) error

	// Search
	SearchHotels(ctx context.Context, f SearchFilters) ([]HotelSummary, error)
	AvailableRooms(ctx context.Context, hotelID int64, stay Stay) ([]Room, error)

	// Bookings. CreateBooking checks the overlap invariant and inserts
	// in one transaction; an occupied room yields ErrRoomUnavailable.
	BookingsForRoom(ctx context.Context, ref RoomRef) ([]Booking, error)
	CreateBooking(ctx context.Context, b Booking) (int64, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	UpdateBooking(ctx context.Context, id int64, p BookingPatch) error
	CancelBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context, window Stay) ([]Booking, error)

	// Guests & logins
	CreateGuest(ctx context.Context, profile GuestProfile) (int64, error)
	GetGuest(ctx context.Context, id int64) (Guest, error)
	FindGuestByEmail(ctx context.Context, email string) (Guest, error)
	GetGuestOfLogin(ctx context.Context, loginID int64) (Guest, error)
	GetLogin(ctx context.Context, username string) (Login, error)
	Register(ctx context.Context, username, passwordHash, roleName string, profile GuestProfile) (int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
