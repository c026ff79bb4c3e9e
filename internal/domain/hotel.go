package domain

import "strconv"

type Address struct {
	ID     int64
	Street string
	Zip    string
	City   string
}

type Hotel struct {
	ID      int64
	Name    string
	Stars   int
	Address Address
}

// RoomRef identifies a room. Room numbers are unique only within a
// hotel, so a bare number never identifies a room on its own.
type RoomRef struct {
	HotelID int64
	Number  string
}

type Room struct {
	HotelID     int64
	Number      string
	Type        string
	MaxGuests   int
	Description string
	Amenities   []string
	Price       float64
	// Available is the manual maintenance-hold flag, independent of
	// booking-derived availability.
	Available bool
}

func (r Room) Ref() RoomRef { return RoomRef{HotelID: r.HotelID, Number: r.Number} }

// HotelSummary is the search read model.
type HotelSummary struct {
	ID     int64
	Name   string
	Stars  int
	Street string
	City   string
}

// RoomSummary is the informational room listing read model; it carries
// no availability information.
type RoomSummary struct {
	Number      string
	Type        string
	MaxGuests   int
	Description string
	Price       float64
}

// HotelPatch enumerates the updatable hotel fields; nil means unchanged.
// Address fields repoint the hotel at a (possibly new) address row,
// they never mutate an address shared with another hotel.
type HotelPatch struct {
	Name   *string
	Stars  *int
	Street *string
	Zip    *string
	City   *string
}

func (p HotelPatch) Empty() bool {
	return p.Name == nil && p.Stars == nil && p.Street == nil && p.Zip == nil && p.City == nil
}

func ValidateStars(stars int) error {
	if stars < 1 || stars > 5 {
		return invalid("stars", strconv.Itoa(stars), "must be between 1 and 5")
	}
	return nil
}
