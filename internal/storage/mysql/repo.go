package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"alpine_stay/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// dbtx lets the row scanners run against the pool or an open transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx commits only on full success and rolls back entirely on any
// error, so no partial writes survive.
func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// ---------- hotels ----------

// AddHotel reuses an existing address row with identical values, else
// inserts one, then inserts the hotel — all in one transaction.
func (r *Repo) AddHotel(ctx context.Context, name string, stars int, addr domain.Address) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		addrID, err := findOrCreateAddress(ctx, tx, addr)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, insertHotelSQL, name, stars, addrID)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func findOrCreateAddress(ctx context.Context, tx dbtx, addr domain.Address) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, findAddressSQL, addr.Street, addr.Zip, addr.City).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, insertAddressSQL, addr.Street, addr.Zip, addr.City)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	return scanHotel(r.db.QueryRowContext(ctx, getHotelSQL, id))
}

func scanHotel(row *sql.Row) (domain.Hotel, error) {
	var h domain.Hotel
	err := row.Scan(&h.ID, &h.Name, &h.Stars,
		&h.Address.ID, &h.Address.Street, &h.Address.Zip, &h.Address.City)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, err
}

func (r *Repo) UpdateHotel(ctx context.Context, id int64, p domain.HotelPatch) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanHotel(tx.QueryRowContext(ctx, getHotelForUpdateSQL, id))
		if err != nil {
			return err
		}

		sets := make([]string, 0, 3)
		args := make([]any, 0, 4)
		if p.Name != nil {
			sets = append(sets, "name = ?")
			args = append(args, *p.Name)
		}
		if p.Stars != nil {
			sets = append(sets, "stars = ?")
			args = append(args, *p.Stars)
		}
		if p.Street != nil || p.Zip != nil || p.City != nil {
			// Addresses are shared by value, so an address change
			// repoints the hotel at a (possibly new) row instead of
			// mutating the shared one.
			next := cur.Address
			if p.Street != nil {
				next.Street = *p.Street
			}
			if p.Zip != nil {
				next.Zip = *p.Zip
			}
			if p.City != nil {
				next.City = *p.City
			}
			addrID, err := findOrCreateAddress(ctx, tx, next)
			if err != nil {
				return err
			}
			sets = append(sets, "address_id = ?")
			args = append(args, addrID)
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, id)
		_, err = tx.ExecContext(ctx, "UPDATE hotels SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		return err
	})
}

func (r *Repo) RemoveHotel(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteHotelSQL, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// ---------- rooms ----------

func (r *Repo) AddRoom(ctx context.Context, room domain.Room) error {
	amen, _ := json.Marshal(room.Amenities)
	_, err := r.db.ExecContext(ctx, insertRoomSQL,
		room.HotelID, room.Number, room.Type, room.MaxGuests,
		room.Description, string(amen), room.Price, room.Available)
	if isDuplicate(err) {
		return domain.Invalid("room_number", room.Number, "already exists in this hotel")
	}
	return err
}

func (r *Repo) GetRoom(ctx context.Context, ref domain.RoomRef) (domain.Room, error) {
	return scanRoom(r.db.QueryRowContext(ctx, getRoomSQL, ref.HotelID, ref.Number).Scan)
}

func scanRoom(scan func(...any) error) (domain.Room, error) {
	var rm domain.Room
	var amenitiesJSON []byte
	err := scan(&rm.HotelID, &rm.Number, &rm.Type, &rm.MaxGuests,
		&rm.Description, &amenitiesJSON, &rm.Price, &rm.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	_ = json.Unmarshal(amenitiesJSON, &rm.Amenities)
	return rm, nil
}

func (r *Repo) ListRooms(ctx context.Context, hotelID int64, minCapacity int) ([]domain.RoomSummary, error) {
	rows, err := r.db.QueryContext(ctx, listRoomsSQL, hotelID, minCapacity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RoomSummary{}
	for rows.Next() {
		var rs domain.RoomSummary
		if err := rows.Scan(&rs.Number, &rs.Type, &rs.MaxGuests, &rs.Description, &rs.Price); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (r *Repo) SetRoomAvailability(ctx context.Context, ref domain.RoomRef, available bool) error {
	return r.execRoomUpdate(ctx, setRoomAvailabilitySQL, available, ref)
}

func (r *Repo) SetRoomPrice(ctx context.Context, ref domain.RoomRef, price float64) error {
	return r.execRoomUpdate(ctx, setRoomPriceSQL, price, ref)
}

func (r *Repo) execRoomUpdate(ctx context.Context, query string, v any, ref domain.RoomRef) error {
	res, err := r.db.ExecContext(ctx, query, v, ref.HotelID, ref.Number)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---------- search ----------

func (r *Repo) SearchHotels(ctx context.Context, f domain.SearchFilters) ([]domain.HotelSummary, error) {
	var b strings.Builder
	b.WriteString(`
SELECT DISTINCT h.id, h.name, h.stars, a.street, a.city
FROM hotels h
JOIN addresses a ON a.id = h.address_id
JOIN rooms r ON r.hotel_id = h.id
WHERE 1 = 1`)
	var args []any

	if f.Name != nil {
		b.WriteString(" AND LOWER(h.name) LIKE LOWER(?)")
		args = append(args, "%"+strings.TrimSpace(*f.Name)+"%")
	}
	if f.City != nil {
		b.WriteString(" AND LOWER(a.city) = LOWER(?)")
		args = append(args, strings.TrimSpace(*f.City))
	}
	if f.MinStars != nil {
		b.WriteString(" AND h.stars >= ?")
		args = append(args, *f.MinStars)
	}
	if f.ExactStars != nil {
		b.WriteString(" AND h.stars = ?")
		args = append(args, *f.ExactStars)
	}
	if f.MaxGuests != nil {
		b.WriteString(" AND r.max_guests >= ?")
		args = append(args, *f.MaxGuests)
	}
	if f.Stay != nil {
		b.WriteString(` AND r.available = 1 AND NOT EXISTS (
  SELECT 1 FROM bookings bk
  WHERE bk.room_hotel_id = r.hotel_id AND bk.room_number = r.number
    AND bk.start_date < ? AND bk.end_date > ?)`)
		args = append(args, f.Stay.End, f.Stay.Start)
	}
	b.WriteString(" ORDER BY h.id")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HotelSummary{}
	for rows.Next() {
		var hs domain.HotelSummary
		if err := rows.Scan(&hs.ID, &hs.Name, &hs.Stars, &hs.Street, &hs.City); err != nil {
			return nil, err
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}

func (r *Repo) AvailableRooms(ctx context.Context, hotelID int64, stay domain.Stay) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, availableRoomsSQL, hotelID, stay.End, stay.Start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// ---------- bookings ----------

// CreateBooking locks the room row, re-checks the overlap invariant and
// inserts, all inside one transaction. Two actors racing for the same
// room serialize on the row lock; the loser sees the winner's booking.
func (r *Repo) CreateBooking(ctx context.Context, bk domain.Booking) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var maxGuests int
		err := tx.QueryRowContext(ctx, lockRoomSQL, bk.RoomHotelID, bk.RoomNumber).Scan(&maxGuests)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var conflicts int
		if err := tx.QueryRowContext(ctx, countOverlapSQL,
			bk.RoomHotelID, bk.RoomNumber, bk.Stay.End, bk.Stay.Start).Scan(&conflicts); err != nil {
			return err
		}
		if conflicts > 0 {
			return domain.ErrRoomUnavailable
		}

		res, err := tx.ExecContext(ctx, insertBookingSQL,
			bk.RoomHotelID, bk.RoomNumber, bk.GuestID, bk.NumberOfGuests,
			bk.Stay.Start, bk.Stay.End, bk.Comment)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id).Scan)
}

func scanBooking(scan func(...any) error) (domain.Booking, error) {
	var bk domain.Booking
	err := scan(&bk.ID, &bk.RoomHotelID, &bk.RoomNumber, &bk.GuestID,
		&bk.NumberOfGuests, &bk.Stay.Start, &bk.Stay.End, &bk.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return bk, err
}

func (r *Repo) BookingsForRoom(ctx context.Context, ref domain.RoomRef) ([]domain.Booking, error) {
	return r.queryBookings(ctx, bookingsForRoomSQL, ref.HotelID, ref.Number)
}

func (r *Repo) ListBookings(ctx context.Context, window domain.Stay) ([]domain.Booking, error) {
	return r.queryBookings(ctx, listBookingsSQL, window.End, window.Start)
}

func (r *Repo) queryBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		bk, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, bk)
	}
	return out, rows.Err()
}

// UpdateBooking merges the patch into the current row under a row lock;
// a date change re-checks the overlap invariant against the room's
// other bookings before the update is written.
func (r *Repo) UpdateBooking(ctx context.Context, id int64, p domain.BookingPatch) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanBooking(tx.QueryRowContext(ctx, getBookingForUpdateSQL, id).Scan)
		if err != nil {
			return err
		}

		next := cur
		if p.NumberOfGuests != nil {
			next.NumberOfGuests = *p.NumberOfGuests
		}
		if p.StartDate != nil {
			next.Stay.Start = *p.StartDate
		}
		if p.EndDate != nil {
			next.Stay.End = *p.EndDate
		}
		if p.Comment != nil {
			next.Comment = *p.Comment
		}
		if !next.Stay.End.After(next.Stay.Start) {
			return domain.Invalid("end_date", next.Stay.EndString(), "must be after start_date")
		}

		if p.StartDate != nil || p.EndDate != nil {
			var lock int
			if err := tx.QueryRowContext(ctx, lockRoomSQL, cur.RoomHotelID, cur.RoomNumber).Scan(&lock); err != nil {
				return err
			}
			var conflicts int
			if err := tx.QueryRowContext(ctx, countOverlapExclSQL,
				cur.RoomHotelID, cur.RoomNumber, next.Stay.End, next.Stay.Start, id).Scan(&conflicts); err != nil {
				return err
			}
			if conflicts > 0 {
				return domain.ErrRoomUnavailable
			}
		}

		_, err = tx.ExecContext(ctx, updateBookingSQL,
			next.NumberOfGuests, next.Stay.Start, next.Stay.End, next.Comment, id)
		return err
	})
}

func (r *Repo) CancelBooking(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteBookingSQL, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// ---------- guests & logins ----------

func (r *Repo) CreateGuest(ctx context.Context, profile domain.GuestProfile) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertAddressSQL, profile.Street, profile.Zip, profile.City)
		if err != nil {
			return err
		}
		addrID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, insertGuestSQL,
			profile.Firstname, profile.Lastname, profile.Email, addrID, nil)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (r *Repo) GetGuest(ctx context.Context, id int64) (domain.Guest, error) {
	return scanGuest(r.db.QueryRowContext(ctx, getGuestSQL, id))
}

func (r *Repo) FindGuestByEmail(ctx context.Context, email string) (domain.Guest, error) {
	return scanGuest(r.db.QueryRowContext(ctx, findGuestByEmailSQL, email))
}

func (r *Repo) GetGuestOfLogin(ctx context.Context, loginID int64) (domain.Guest, error) {
	return scanGuest(r.db.QueryRowContext(ctx, getGuestOfLoginSQL, loginID))
}

func scanGuest(row *sql.Row) (domain.Guest, error) {
	var g domain.Guest
	var loginID sql.NullInt64
	err := row.Scan(&g.ID, &g.Firstname, &g.Lastname, &g.Email, &loginID,
		&g.Address.ID, &g.Address.Street, &g.Address.Zip, &g.Address.City)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Guest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Guest{}, err
	}
	if loginID.Valid {
		v := loginID.Int64
		g.LoginID = &v
	}
	return g, nil
}

func (r *Repo) GetLogin(ctx context.Context, username string) (domain.Login, error) {
	var l domain.Login
	err := r.db.QueryRowContext(ctx, getLoginSQL, username).Scan(
		&l.ID, &l.Username, &l.PasswordHash,
		&l.Role.ID, &l.Role.Name, &l.Role.AccessLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Login{}, domain.ErrNotFound
	}
	return l, err
}

// Register creates Login, Address and Guest atomically. The username
// uniqueness constraint is the authority; a violation surfaces as
// ErrDuplicateUsername with the whole transaction rolled back.
func (r *Repo) Register(ctx context.Context, username, passwordHash, roleName string, profile domain.GuestProfile) (int64, error) {
	var guestID int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var roleID int64
		if err := tx.QueryRowContext(ctx, roleIDSQL, roleName).Scan(&roleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("role %q not seeded", roleName)
			}
			return err
		}
		res, err := tx.ExecContext(ctx, insertLoginSQL, username, passwordHash, roleID)
		if err != nil {
			if isDuplicate(err) {
				return domain.ErrDuplicateUsername
			}
			return err
		}
		loginID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, insertAddressSQL, profile.Street, profile.Zip, profile.City)
		if err != nil {
			return err
		}
		addrID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, insertGuestSQL,
			profile.Firstname, profile.Lastname, profile.Email, addrID, loginID)
		if err != nil {
			return err
		}
		guestID, err = res.LastInsertId()
		return err
	})
	return guestID, err
}
