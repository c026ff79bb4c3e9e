package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"alpine_stay/internal/domain"
)

// Writer emits booking confirmations and user profiles as CSV files,
// one record per file, rows of [field, value] pairs in fixed order.
type Writer struct{ dir string }

func NewWriter(dir string) *Writer { return &Writer{dir: dir} }

// BookingConfirmation writes booking_<id>_details.csv and returns its path.
func (w *Writer) BookingConfirmation(c domain.Confirmation) (string, error) {
	rows := [][]string{
		{"booking_id", strconv.FormatInt(c.BookingID, 10)},
		{"room_hotel_id", strconv.FormatInt(c.RoomHotelID, 10)},
		{"room_number", c.RoomNumber},
		{"guest_id", strconv.FormatInt(c.GuestID, 10)},
		{"number_of_guests", strconv.Itoa(c.NumberOfGuests)},
		{"start_date", c.Stay.StartString()},
		{"end_date", c.Stay.EndString()},
		{"comment", c.Comment},
	}
	path := filepath.Join(w.dir, fmt.Sprintf("booking_%d_details.csv", c.BookingID))
	return path, writeRows(path, rows)
}

// UserProfile writes user_<username>_profile.csv and returns its path.
func (w *Writer) UserProfile(username string, p domain.GuestProfile) (string, error) {
	rows := [][]string{
		{"firstname", p.Firstname},
		{"lastname", p.Lastname},
		{"email", p.Email},
		{"username", username},
		{"city", p.City},
		{"street", p.Street},
		{"zip", p.Zip},
	}
	path := filepath.Join(w.dir, fmt.Sprintf("user_%s_profile.csv", username))
	return path, writeRows(path, rows)
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadBookingConfirmation parses a confirmation file back into its
// record; a written confirmation re-read must reproduce identical
// field values.
func ReadBookingConfirmation(path string) (domain.Confirmation, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Confirmation{}, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return domain.Confirmation{}, err
	}
	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) == 2 {
			fields[row[0]] = row[1]
		}
	}

	var c domain.Confirmation
	if c.BookingID, err = strconv.ParseInt(fields["booking_id"], 10, 64); err != nil {
		return domain.Confirmation{}, fmt.Errorf("booking_id: %w", err)
	}
	if c.RoomHotelID, err = strconv.ParseInt(fields["room_hotel_id"], 10, 64); err != nil {
		return domain.Confirmation{}, fmt.Errorf("room_hotel_id: %w", err)
	}
	c.RoomNumber = fields["room_number"]
	if c.GuestID, err = strconv.ParseInt(fields["guest_id"], 10, 64); err != nil {
		return domain.Confirmation{}, fmt.Errorf("guest_id: %w", err)
	}
	if c.NumberOfGuests, err = strconv.Atoi(fields["number_of_guests"]); err != nil {
		return domain.Confirmation{}, fmt.Errorf("number_of_guests: %w", err)
	}
	if c.Stay, err = domain.ParseStay(fields["start_date"], fields["end_date"]); err != nil {
		return domain.Confirmation{}, err
	}
	c.Comment = fields["comment"]
	return c, nil
}
