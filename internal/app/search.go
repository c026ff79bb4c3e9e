package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"alpine_stay/internal/domain"
)

// SearchService translates filter specifications into hotel and room
// lists. Read paths are cached; an empty result is a valid, cacheable
// answer, not an error.
type SearchService struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewSearchService(s domain.Store, c domain.Cache, ttl time.Duration) *SearchService {
	return &SearchService{store: s, cache: c, cacheTTL: ttl}
}

func validateFilters(f domain.SearchFilters) error {
	if f.Name != nil && strings.TrimSpace(*f.Name) == "" {
		return domain.Invalid("name", *f.Name, "must not be empty when set")
	}
	if f.City != nil && strings.TrimSpace(*f.City) == "" {
		return domain.Invalid("city", *f.City, "must not be empty when set")
	}
	if f.MinStars != nil {
		if err := domain.ValidateStars(*f.MinStars); err != nil {
			return err
		}
	}
	if f.ExactStars != nil {
		if err := domain.ValidateStars(*f.ExactStars); err != nil {
			return err
		}
	}
	if f.MinStars != nil && f.ExactStars != nil {
		return domain.Invalid("stars", strconv.Itoa(*f.ExactStars), "min_stars and stars are mutually exclusive")
	}
	if f.MaxGuests != nil && *f.MaxGuests < 1 {
		return domain.Invalid("guests", strconv.Itoa(*f.MaxGuests), "must be at least 1")
	}
	if f.Stay != nil && !f.Stay.End.After(f.Stay.Start) {
		return domain.Invalid("end_date", f.Stay.EndString(), "must be after start_date")
	}
	return nil
}

func filtersKey(f domain.SearchFilters) string {
	var b strings.Builder
	b.WriteString("hotels")
	if f.Name != nil {
		fmt.Fprintf(&b, ":n=%s", strings.ToLower(strings.TrimSpace(*f.Name)))
	}
	if f.City != nil {
		fmt.Fprintf(&b, ":c=%s", strings.ToLower(strings.TrimSpace(*f.City)))
	}
	if f.MinStars != nil {
		fmt.Fprintf(&b, ":ms=%d", *f.MinStars)
	}
	if f.ExactStars != nil {
		fmt.Fprintf(&b, ":es=%d", *f.ExactStars)
	}
	if f.MaxGuests != nil {
		fmt.Fprintf(&b, ":g=%d", *f.MaxGuests)
	}
	if f.Stay != nil {
		fmt.Fprintf(&b, ":%s:%s", f.Stay.StartString(), f.Stay.EndString())
	}
	return b.String()
}

func availKey(hotelID int64, stay domain.Stay) string {
	return fmt.Sprintf("avail:%d:%s:%s", hotelID, stay.StartString(), stay.EndString())
}

// FindHotels returns the distinct hotels that still have at least one
// qualifying room, ordered by hotel id.
func (s *SearchService) FindHotels(ctx context.Context, f domain.SearchFilters) ([]domain.HotelSummary, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	key := filtersKey(f)
	var cached []domain.HotelSummary
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}
	out, err := s.store.SearchHotels(ctx, f)
	if err != nil {
		return nil, err
	}
	// copy before caching so callers cannot mutate the cached value
	cp := make([]domain.HotelSummary, len(out))
	copy(cp, out)
	_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	return out, nil
}

// ListRooms lists a hotel's rooms meeting the capacity floor regardless
// of booking state. Availability filtering is a separate operation.
func (s *SearchService) ListRooms(ctx context.Context, hotelID int64, minCapacity int) ([]domain.RoomSummary, error) {
	if minCapacity < 0 {
		return nil, domain.Invalid("min_capacity", strconv.Itoa(minCapacity), "must not be negative")
	}
	if _, err := s.store.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	return s.store.ListRooms(ctx, hotelID, minCapacity)
}

// FindAvailableRooms returns the hotel's rooms with no conflicting
// booking for the stay and no manual hold.
func (s *SearchService) FindAvailableRooms(ctx context.Context, hotelID int64, stay domain.Stay) ([]domain.Room, error) {
	if !stay.End.After(stay.Start) {
		return nil, domain.Invalid("end_date", stay.EndString(), "must be after start_date")
	}
	if _, err := s.store.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	key := availKey(hotelID, stay)
	var cached []domain.Room
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}
	out, err := s.store.AvailableRooms(ctx, hotelID, stay)
	if err != nil {
		return nil, err
	}
	cp := make([]domain.Room, len(out))
	copy(cp, out)
	_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	return out, nil
}
