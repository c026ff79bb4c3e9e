package app

import (
	"context"
	"strconv"
	"strings"

	"alpine_stay/internal/domain"
)

// InventoryService is the admin-gated mutation surface for hotels,
// rooms and bookings. Every operation checks the session role before
// touching the store; a refusal performs no mutation at all.
type InventoryService struct {
	store domain.Store
	cache domain.Cache
}

func NewInventoryService(s domain.Store, c domain.Cache) *InventoryService {
	return &InventoryService{store: s, cache: c}
}

func (s *InventoryService) authorize(sess *Session) error {
	if sess == nil || !sess.IsAdmin() {
		return domain.ErrNotAuthorized
	}
	return nil
}

func (s *InventoryService) AddHotel(ctx context.Context, sess *Session, name string, stars int, addr domain.Address) (int64, error) {
	if err := s.authorize(sess); err != nil {
		return 0, err
	}
	if strings.TrimSpace(name) == "" {
		return 0, domain.Invalid("name", name, "must not be empty")
	}
	if err := domain.ValidateStars(stars); err != nil {
		return 0, err
	}
	if strings.TrimSpace(addr.City) == "" {
		return 0, domain.Invalid("city", addr.City, "must not be empty")
	}
	return s.store.AddHotel(ctx, name, stars, addr)
}

func (s *InventoryService) UpdateHotel(ctx context.Context, sess *Session, id int64, p domain.HotelPatch) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	if p.Empty() {
		return domain.Invalid("patch", "", "no fields to update")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return domain.Invalid("name", *p.Name, "must not be empty")
	}
	if p.Stars != nil {
		if err := domain.ValidateStars(*p.Stars); err != nil {
			return err
		}
	}
	return s.store.UpdateHotel(ctx, id, p)
}

func (s *InventoryService) RemoveHotel(ctx context.Context, sess *Session, id int64) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	return s.store.RemoveHotel(ctx, id)
}

func (s *InventoryService) AddRoom(ctx context.Context, sess *Session, r domain.Room) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	if strings.TrimSpace(r.Number) == "" {
		return domain.Invalid("room_number", r.Number, "must not be empty")
	}
	if r.MaxGuests < 1 {
		return domain.Invalid("max_guests", strconv.Itoa(r.MaxGuests), "must be at least 1")
	}
	if r.Price <= 0 {
		return domain.Invalid("price", strconv.FormatFloat(r.Price, 'f', -1, 64), "must be positive")
	}
	return s.store.AddRoom(ctx, r)
}

// UpdateBooking applies a typed patch. When the dates change, the store
// re-checks the overlap invariant against all other bookings on the room.
func (s *InventoryService) UpdateBooking(ctx context.Context, sess *Session, id int64, p domain.BookingPatch) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	if p.Empty() {
		return domain.Invalid("patch", "", "no fields to update")
	}
	if p.NumberOfGuests != nil && *p.NumberOfGuests < 1 {
		return domain.Invalid("number_of_guests", strconv.Itoa(*p.NumberOfGuests), "must be at least 1")
	}
	if p.StartDate != nil && p.EndDate != nil && !p.EndDate.After(*p.StartDate) {
		return domain.Invalid("end_date", p.EndDate.Format(domain.DateLayout), "must be after start_date")
	}
	if err := s.store.UpdateBooking(ctx, id, p); err != nil {
		return err
	}
	s.evictBooking(ctx, id)
	return nil
}

func (s *InventoryService) CancelBooking(ctx context.Context, sess *Session, id int64) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.CancelBooking(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Del(ctx, availKey(b.RoomHotelID, b.Stay))
	return nil
}

func (s *InventoryService) SetRoomAvailability(ctx context.Context, sess *Session, ref domain.RoomRef, available bool) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	return s.store.SetRoomAvailability(ctx, ref, available)
}

func (s *InventoryService) SetRoomPrice(ctx context.Context, sess *Session, ref domain.RoomRef, price float64) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	if price <= 0 {
		return domain.Invalid("price", strconv.FormatFloat(price, 'f', -1, 64), "must be positive")
	}
	return s.store.SetRoomPrice(ctx, ref, price)
}

func (s *InventoryService) evictBooking(ctx context.Context, id int64) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return
	}
	_ = s.cache.Del(ctx, availKey(b.RoomHotelID, b.Stay))
}
