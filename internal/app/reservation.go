package app

import (
	"context"
	"errors"
	"strconv"

	"alpine_stay/internal/domain"
)

// ReservationService runs the booking workflow: guest resolution,
// validation, and the transactional availability-check-plus-insert.
type ReservationService struct {
	store domain.Store
	cache domain.Cache
}

func NewReservationService(s domain.Store, c domain.Cache) *ReservationService {
	return &ReservationService{store: s, cache: c}
}

// BookingRequest carries raw caller input; dates are YYYY-MM-DD strings
// parsed here so a bad format never reaches the store.
type BookingRequest struct {
	Room           domain.RoomRef
	GuestID        int64
	NumberOfGuests int
	StartDate      string
	EndDate        string
	Comment        string
}

// CreateBooking books the room for the stay. An occupied room is
// ErrRoomUnavailable — an expected outcome the caller can answer with
// alternative dates, not a failure. The availability check and the
// insert are one atomic storage transaction.
func (s *ReservationService) CreateBooking(ctx context.Context, req BookingRequest) (domain.Confirmation, error) {
	stay, err := domain.ParseStay(req.StartDate, req.EndDate)
	if err != nil {
		return domain.Confirmation{}, err
	}
	if req.NumberOfGuests < 1 {
		return domain.Confirmation{}, domain.Invalid("number_of_guests", strconv.Itoa(req.NumberOfGuests), "must be at least 1")
	}
	room, err := s.store.GetRoom(ctx, req.Room)
	if err != nil {
		return domain.Confirmation{}, err
	}
	if req.NumberOfGuests > room.MaxGuests {
		return domain.Confirmation{}, domain.Invalid("number_of_guests", strconv.Itoa(req.NumberOfGuests),
			"room sleeps at most "+strconv.Itoa(room.MaxGuests))
	}
	if _, err := s.store.GetGuest(ctx, req.GuestID); err != nil {
		return domain.Confirmation{}, err
	}

	id, err := s.store.CreateBooking(ctx, domain.Booking{
		RoomHotelID:    req.Room.HotelID,
		RoomNumber:     req.Room.Number,
		GuestID:        req.GuestID,
		NumberOfGuests: req.NumberOfGuests,
		Stay:           stay,
		Comment:        req.Comment,
	})
	if err != nil {
		return domain.Confirmation{}, err
	}

	// evict the exact availability window; broader stale entries ride out the TTL
	_ = s.cache.Del(ctx, availKey(req.Room.HotelID, stay))

	return domain.Confirmation{
		BookingID:      id,
		RoomHotelID:    req.Room.HotelID,
		RoomNumber:     req.Room.Number,
		GuestID:        req.GuestID,
		NumberOfGuests: req.NumberOfGuests,
		Stay:           stay,
		Comment:        req.Comment,
		NightlyPrice:   room.Price,
	}, nil
}

// EnsureGuest reuses an existing guest with the same email or creates a
// new Guest plus Address in one transaction.
func (s *ReservationService) EnsureGuest(ctx context.Context, profile domain.GuestProfile) (int64, error) {
	if err := profile.Validate(); err != nil {
		return 0, err
	}
	g, err := s.store.FindGuestByEmail(ctx, profile.Email)
	if err == nil {
		return g.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	return s.store.CreateGuest(ctx, profile)
}

// Confirmation re-reads a booking as an exportable confirmation record.
func (s *ReservationService) Confirmation(ctx context.Context, bookingID int64) (domain.Confirmation, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Confirmation{}, err
	}
	room, err := s.store.GetRoom(ctx, b.Room())
	if err != nil {
		return domain.Confirmation{}, err
	}
	return domain.Confirmation{
		BookingID:      b.ID,
		RoomHotelID:    b.RoomHotelID,
		RoomNumber:     b.RoomNumber,
		GuestID:        b.GuestID,
		NumberOfGuests: b.NumberOfGuests,
		Stay:           b.Stay,
		Comment:        b.Comment,
		NightlyPrice:   room.Price,
	}, nil
}
