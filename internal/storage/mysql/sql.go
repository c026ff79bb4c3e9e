package mysql

// -----------------------------------------------------------------------------
// ADDRESSES / HOTELS / ROOMS
// -----------------------------------------------------------------------------

// Hotel addresses are deduplicated by value: an identical
// (street, zip, city) tuple is reused, never inserted twice.
const findAddressSQL = `
SELECT id FROM addresses
WHERE street = ? AND zip = ? AND city = ?
LIMIT 1
`

const insertAddressSQL = `
INSERT INTO addresses (street, zip, city) VALUES (?, ?, ?)
`

const insertHotelSQL = `
INSERT INTO hotels (name, stars, address_id) VALUES (?, ?, ?)
`

const getHotelSQL = `
SELECT h.id, h.name, h.stars, a.id, a.street, a.zip, a.city
FROM hotels h
JOIN addresses a ON a.id = h.address_id
WHERE h.id = ?
`

const getHotelForUpdateSQL = getHotelSQL + ` FOR UPDATE`

const deleteHotelSQL = `DELETE FROM hotels WHERE id = ?`

const insertRoomSQL = `
INSERT INTO rooms (hotel_id, number, room_type, max_guests, description, amenities, price, available)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const getRoomSQL = `
SELECT hotel_id, number, room_type, max_guests, description, amenities, price, available
FROM rooms
WHERE hotel_id = ? AND number = ?
`

const listRoomsSQL = `
SELECT number, room_type, max_guests, description, price
FROM rooms
WHERE hotel_id = ? AND max_guests >= ?
ORDER BY number
`

const setRoomAvailabilitySQL = `
UPDATE rooms SET available = ? WHERE hotel_id = ? AND number = ?
`

const setRoomPriceSQL = `
UPDATE rooms SET price = ? WHERE hotel_id = ? AND number = ?
`

// lockRoomSQL serializes concurrent booking attempts on the same room;
// the row lock is held until the surrounding transaction ends.
const lockRoomSQL = `
SELECT max_guests FROM rooms WHERE hotel_id = ? AND number = ? FOR UPDATE
`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

// Half-open overlap: a booking conflicts iff start_date < candidate.end
// AND end_date > candidate.start. Touching endpoints do not conflict.
const countOverlapSQL = `
SELECT COUNT(*) FROM bookings
WHERE room_hotel_id = ? AND room_number = ?
  AND start_date < ? AND end_date > ?
`

const countOverlapExclSQL = countOverlapSQL + ` AND id <> ?`

const insertBookingSQL = `
INSERT INTO bookings (room_hotel_id, room_number, guest_id, number_of_guests, start_date, end_date, comment)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const bookingColumns = `id, room_hotel_id, room_number, guest_id, number_of_guests, start_date, end_date, comment`

const getBookingSQL = `
SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?
`

const getBookingForUpdateSQL = getBookingSQL + ` FOR UPDATE`

const bookingsForRoomSQL = `
SELECT ` + bookingColumns + ` FROM bookings
WHERE room_hotel_id = ? AND room_number = ?
ORDER BY start_date, id
`

const listBookingsSQL = `
SELECT ` + bookingColumns + ` FROM bookings
WHERE start_date < ? AND end_date > ?
ORDER BY id
`

const updateBookingSQL = `
UPDATE bookings
SET number_of_guests = ?, start_date = ?, end_date = ?, comment = ?
WHERE id = ?
`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

// availableRoomsSQL excludes rooms under a manual hold and rooms with a
// conflicting booking for the stay.
const availableRoomsSQL = `
SELECT r.hotel_id, r.number, r.room_type, r.max_guests, r.description, r.amenities, r.price, r.available
FROM rooms r
WHERE r.hotel_id = ? AND r.available = 1
  AND NOT EXISTS (
    SELECT 1 FROM bookings b
    WHERE b.room_hotel_id = r.hotel_id AND b.room_number = r.number
      AND b.start_date < ? AND b.end_date > ?
  )
ORDER BY r.number
`

// -----------------------------------------------------------------------------
// GUESTS / LOGINS / ROLES
// -----------------------------------------------------------------------------

const guestColumns = `g.id, g.firstname, g.lastname, g.email, g.login_id, a.id, a.street, a.zip, a.city`

const getGuestSQL = `
SELECT ` + guestColumns + `
FROM guests g
JOIN addresses a ON a.id = g.address_id
WHERE g.id = ?
`

const findGuestByEmailSQL = `
SELECT ` + guestColumns + `
FROM guests g
JOIN addresses a ON a.id = g.address_id
WHERE g.email = ?
ORDER BY g.id
LIMIT 1
`

const getGuestOfLoginSQL = `
SELECT ` + guestColumns + `
FROM guests g
JOIN addresses a ON a.id = g.address_id
WHERE g.login_id = ?
`

const insertGuestSQL = `
INSERT INTO guests (firstname, lastname, email, address_id, login_id)
VALUES (?, ?, ?, ?, ?)
`

const getLoginSQL = `
SELECT l.id, l.username, l.password_hash, r.id, r.name, r.access_level
FROM logins l
JOIN roles r ON r.id = l.role_id
WHERE l.username = ?
`

const roleIDSQL = `SELECT id FROM roles WHERE name = ?`

const insertLoginSQL = `
INSERT INTO logins (username, password_hash, role_id) VALUES (?, ?, ?)
`
