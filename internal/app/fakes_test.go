package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"alpine_stay/internal/domain"
)

// ---- in-memory store fake ----

type fakeStore struct {
	hotels   map[int64]domain.Hotel
	rooms    map[domain.RoomRef]domain.Room
	bookings map[int64]domain.Booking
	guests   map[int64]domain.Guest
	logins   map[string]domain.Login
	nextID   int64

	mutations int // write calls observed, for authorization tests
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hotels:   map[int64]domain.Hotel{},
		rooms:    map[domain.RoomRef]domain.Room{},
		bookings: map[int64]domain.Booking{},
		guests:   map[int64]domain.Guest{},
		logins:   map[string]domain.Login{},
	}
}

func (f *fakeStore) id() int64 { f.nextID++; return f.nextID }

func (f *fakeStore) AddHotel(ctx context.Context, name string, stars int, addr domain.Address) (int64, error) {
	f.mutations++
	id := f.id()
	addr.ID = f.id()
	f.hotels[id] = domain.Hotel{ID: id, Name: name, Stars: stars, Address: addr}
	return id, nil
}

func (f *fakeStore) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	h, ok := f.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}

func (f *fakeStore) UpdateHotel(ctx context.Context, id int64, p domain.HotelPatch) error {
	f.mutations++
	h, ok := f.hotels[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Stars != nil {
		h.Stars = *p.Stars
	}
	if p.Street != nil {
		h.Address.Street = *p.Street
	}
	if p.Zip != nil {
		h.Address.Zip = *p.Zip
	}
	if p.City != nil {
		h.Address.City = *p.City
	}
	f.hotels[id] = h
	return nil
}

func (f *fakeStore) RemoveHotel(ctx context.Context, id int64) error {
	f.mutations++
	if _, ok := f.hotels[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.hotels, id)
	return nil
}

func (f *fakeStore) AddRoom(ctx context.Context, r domain.Room) error {
	f.mutations++
	f.rooms[r.Ref()] = r
	return nil
}

func (f *fakeStore) GetRoom(ctx context.Context, ref domain.RoomRef) (domain.Room, error) {
	r, ok := f.rooms[ref]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ListRooms(ctx context.Context, hotelID int64, minCapacity int) ([]domain.RoomSummary, error) {
	out := []domain.RoomSummary{}
	for _, r := range f.rooms {
		if r.HotelID == hotelID && r.MaxGuests >= minCapacity {
			out = append(out, domain.RoomSummary{
				Number: r.Number, Type: r.Type, MaxGuests: r.MaxGuests,
				Description: r.Description, Price: r.Price,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeStore) SetRoomAvailability(ctx context.Context, ref domain.RoomRef, available bool) error {
	f.mutations++
	r, ok := f.rooms[ref]
	if !ok {
		return domain.ErrNotFound
	}
	r.Available = available
	f.rooms[ref] = r
	return nil
}

func (f *fakeStore) SetRoomPrice(ctx context.Context, ref domain.RoomRef, price float64) error {
	f.mutations++
	r, ok := f.rooms[ref]
	if !ok {
		return domain.ErrNotFound
	}
	r.Price = price
	f.rooms[ref] = r
	return nil
}

func (f *fakeStore) roomBooked(ref domain.RoomRef, stay domain.Stay, excl int64) bool {
	for _, b := range f.bookings {
		if b.ID != excl && b.Room() == ref && stay.Overlaps(b.Stay) {
			return true
		}
	}
	return false
}

func (f *fakeStore) SearchHotels(ctx context.Context, q domain.SearchFilters) ([]domain.HotelSummary, error) {
	out := []domain.HotelSummary{}
	for _, h := range f.hotels {
		if q.Name != nil && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(strings.TrimSpace(*q.Name))) {
			continue
		}
		if q.City != nil && !strings.EqualFold(strings.TrimSpace(*q.City), h.Address.City) {
			continue
		}
		if q.MinStars != nil && h.Stars < *q.MinStars {
			continue
		}
		if q.ExactStars != nil && h.Stars != *q.ExactStars {
			continue
		}
		qualifies := false
		for _, r := range f.rooms {
			if r.HotelID != h.ID {
				continue
			}
			if q.MaxGuests != nil && r.MaxGuests < *q.MaxGuests {
				continue
			}
			if q.Stay != nil {
				if !r.Available || f.roomBooked(r.Ref(), *q.Stay, 0) {
					continue
				}
			}
			qualifies = true
			break
		}
		if qualifies {
			out = append(out, domain.HotelSummary{
				ID: h.ID, Name: h.Name, Stars: h.Stars,
				Street: h.Address.Street, City: h.Address.City,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) AvailableRooms(ctx context.Context, hotelID int64, stay domain.Stay) ([]domain.Room, error) {
	out := []domain.Room{}
	for _, r := range f.rooms {
		if r.HotelID == hotelID && r.Available && !f.roomBooked(r.Ref(), stay, 0) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeStore) BookingsForRoom(ctx context.Context, ref domain.RoomRef) ([]domain.Booking, error) {
	out := []domain.Booking{}
	for _, b := range f.bookings {
		if b.Room() == ref {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, b domain.Booking) (int64, error) {
	f.mutations++
	if _, ok := f.rooms[b.Room()]; !ok {
		return 0, domain.ErrNotFound
	}
	if f.roomBooked(b.Room(), b.Stay, 0) {
		return 0, domain.ErrRoomUnavailable
	}
	b.ID = f.id()
	f.bookings[b.ID] = b
	return b.ID, nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) UpdateBooking(ctx context.Context, id int64, p domain.BookingPatch) error {
	f.mutations++
	b, ok := f.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.NumberOfGuests != nil {
		b.NumberOfGuests = *p.NumberOfGuests
	}
	if p.StartDate != nil {
		b.Stay.Start = *p.StartDate
	}
	if p.EndDate != nil {
		b.Stay.End = *p.EndDate
	}
	if p.Comment != nil {
		b.Comment = *p.Comment
	}
	if p.StartDate != nil || p.EndDate != nil {
		if f.roomBooked(b.Room(), b.Stay, id) {
			return domain.ErrRoomUnavailable
		}
	}
	f.bookings[id] = b
	return nil
}

func (f *fakeStore) CancelBooking(ctx context.Context, id int64) error {
	f.mutations++
	if _, ok := f.bookings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeStore) ListBookings(ctx context.Context, window domain.Stay) ([]domain.Booking, error) {
	out := []domain.Booking{}
	for _, b := range f.bookings {
		if window.Overlaps(b.Stay) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateGuest(ctx context.Context, profile domain.GuestProfile) (int64, error) {
	f.mutations++
	id := f.id()
	f.guests[id] = domain.Guest{
		ID: id, Firstname: profile.Firstname, Lastname: profile.Lastname, Email: profile.Email,
		Address: domain.Address{ID: f.id(), Street: profile.Street, Zip: profile.Zip, City: profile.City},
	}
	return id, nil
}

func (f *fakeStore) GetGuest(ctx context.Context, id int64) (domain.Guest, error) {
	g, ok := f.guests[id]
	if !ok {
		return domain.Guest{}, domain.ErrNotFound
	}
	return g, nil
}

func (f *fakeStore) FindGuestByEmail(ctx context.Context, email string) (domain.Guest, error) {
	best := domain.Guest{}
	found := false
	for _, g := range f.guests {
		if g.Email == email && (!found || g.ID < best.ID) {
			best, found = g, true
		}
	}
	if !found {
		return domain.Guest{}, domain.ErrNotFound
	}
	return best, nil
}

func (f *fakeStore) GetGuestOfLogin(ctx context.Context, loginID int64) (domain.Guest, error) {
	for _, g := range f.guests {
		if g.LoginID != nil && *g.LoginID == loginID {
			return g, nil
		}
	}
	return domain.Guest{}, domain.ErrNotFound
}

func (f *fakeStore) GetLogin(ctx context.Context, username string) (domain.Login, error) {
	l, ok := f.logins[username]
	if !ok {
		return domain.Login{}, domain.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) Register(ctx context.Context, username, passwordHash, roleName string, profile domain.GuestProfile) (int64, error) {
	f.mutations++
	if _, ok := f.logins[username]; ok {
		return 0, domain.ErrDuplicateUsername
	}
	login := domain.Login{
		ID: f.id(), Username: username, PasswordHash: passwordHash,
		Role: domain.Role{ID: 2, Name: roleName, AccessLevel: 1},
	}
	f.logins[username] = login
	id := f.id()
	f.guests[id] = domain.Guest{
		ID: id, Firstname: profile.Firstname, Lastname: profile.Lastname, Email: profile.Email,
		Address: domain.Address{ID: f.id(), Street: profile.Street, Zip: profile.Zip, City: profile.City},
		LoginID: &login.ID,
	}
	return id, nil
}

// ---- cache fake ----

type fakeCache struct{ store map[string][]byte }

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}
