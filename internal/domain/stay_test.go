package domain

import "testing"

func mustStay(t *testing.T, start, end string) Stay {
	t.Helper()
	s, err := ParseStay(start, end)
	if err != nil {
		t.Fatalf("ParseStay(%s, %s): %v", start, end, err)
	}
	return s
}

func TestStayOverlaps(t *testing.T) {
	base := mustStay(t, "2025-06-01", "2025-06-05")

	cases := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"identical", "2025-06-01", "2025-06-05", true},
		{"contained", "2025-06-02", "2025-06-04", true},
		{"containing", "2025-05-30", "2025-06-10", true},
		{"overlap tail", "2025-06-04", "2025-06-10", true},
		{"overlap head", "2025-05-28", "2025-06-02", true},
		{"checkout day checkin", "2025-05-28", "2025-06-01", false},
		{"checkin day checkout", "2025-06-05", "2025-06-09", false},
		{"before", "2025-05-01", "2025-05-20", false},
		{"after", "2025-07-01", "2025-07-05", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other := mustStay(t, tc.start, tc.end)
			if got := base.Overlaps(other); got != tc.want {
				t.Fatalf("Overlaps(%s..%s) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
			// overlap is symmetric
			if got := other.Overlaps(base); got != tc.want {
				t.Fatalf("reverse Overlaps(%s..%s) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestParseStayRejectsBadInput(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		field      string
	}{
		{"bad start format", "06/01/2025", "2025-06-05", "start_date"},
		{"bad end format", "2025-06-01", "yesterday", "end_date"},
		{"end equals start", "2025-06-01", "2025-06-01", "end_date"},
		{"end before start", "2025-06-05", "2025-06-01", "end_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStay(tc.start, tc.end)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsInvalidInput(err) {
				t.Fatalf("expected InvalidInputError, got %T", err)
			}
			ie := err.(*InvalidInputError)
			if ie.Field != tc.field {
				t.Fatalf("field = %q, want %q", ie.Field, tc.field)
			}
		})
	}
}

func TestStayNights(t *testing.T) {
	if n := mustStay(t, "2025-06-01", "2025-06-05").Nights(); n != 4 {
		t.Fatalf("Nights = %d, want 4", n)
	}
	if n := mustStay(t, "2025-06-01", "2025-06-02").Nights(); n != 1 {
		t.Fatalf("Nights = %d, want 1", n)
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"anna@example.com", "a.b+c@mail.co.uk"} {
		if err := ValidateEmail(ok); err != nil {
			t.Fatalf("ValidateEmail(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "no-at-sign", "a@b", "a@b.", "@example.com"} {
		if err := ValidateEmail(bad); err == nil {
			t.Fatalf("ValidateEmail(%q): expected error", bad)
		}
	}
}

func TestValidateStars(t *testing.T) {
	for s := 1; s <= 5; s++ {
		if err := ValidateStars(s); err != nil {
			t.Fatalf("ValidateStars(%d): %v", s, err)
		}
	}
	for _, s := range []int{0, -1, 6} {
		if err := ValidateStars(s); err == nil {
			t.Fatalf("ValidateStars(%d): expected error", s)
		}
	}
}
