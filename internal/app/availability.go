package app

import (
	"context"

	"alpine_stay/internal/domain"
)

// AvailabilityService answers whether a room is free for a stay. Pure
// reads, no side effects.
type AvailabilityService struct {
	store domain.Store
}

func NewAvailabilityService(s domain.Store) *AvailabilityService {
	return &AvailabilityService{store: s}
}

// RoomAvailable reports whether ref is free for the whole stay.
// A room that does not exist is ErrNotFound, never "unavailable".
func (s *AvailabilityService) RoomAvailable(ctx context.Context, ref domain.RoomRef, stay domain.Stay) (bool, error) {
	if !stay.End.After(stay.Start) {
		return false, domain.Invalid("end_date", stay.EndString(), "must be after start_date")
	}
	if _, err := s.store.GetRoom(ctx, ref); err != nil {
		return false, err
	}
	bookings, err := s.store.BookingsForRoom(ctx, ref)
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if stay.Overlaps(b.Stay) {
			return false, nil
		}
	}
	return true, nil
}
