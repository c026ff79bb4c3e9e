package domain

import (
	"math"
	"regexp"
	"strings"
)

const (
	RoleAdministrator  = "administrator"
	RoleRegisteredUser = "registered_user"

	// AdminAccessLevel is the sentinel access level of the administrator
	// role: the maximum representable value.
	AdminAccessLevel int64 = math.MaxInt64
)

type Role struct {
	ID          int64
	Name        string
	AccessLevel int64
}

type Login struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
}

// Guest is a booking identity. A guest with a non-nil LoginID is a
// registered guest; anonymous one-off guests have no login.
type Guest struct {
	ID        int64
	Firstname string
	Lastname  string
	Email     string
	Address   Address
	LoginID   *int64
}

type Credentials struct {
	Username string
	Password string
}

// GuestProfile is the input shape for guest creation and registration.
type GuestProfile struct {
	Firstname string
	Lastname  string
	Email     string
	Street    string
	Zip       string
	City      string
}

var emailRx = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidateEmail rejects anything that is not local@domain.tld.
func ValidateEmail(email string) error {
	if !emailRx.MatchString(email) {
		return invalid("email", email, "expected local@domain.tld")
	}
	return nil
}

func (p GuestProfile) Validate() error {
	if strings.TrimSpace(p.Firstname) == "" {
		return invalid("firstname", p.Firstname, "must not be empty")
	}
	if strings.TrimSpace(p.Lastname) == "" {
		return invalid("lastname", p.Lastname, "must not be empty")
	}
	return ValidateEmail(p.Email)
}
