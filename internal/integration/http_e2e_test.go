//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"golang.org/x/crypto/bcrypt"

	"alpine_stay/internal/adapters/export"
	httpserver "alpine_stay/internal/adapters/http_server"
	redisad "alpine_stay/internal/adapters/redis"
	"alpine_stay/internal/app"
	mysqlrepo "alpine_stay/internal/storage/mysql"
)

// ---------- helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	var out bytes.Buffer
	_, _ = out.ReadFrom(res.Body)
	return res, out.Bytes()
}

func (c *client) expect(method, path string, body any, status int) []byte {
	c.t.Helper()
	res, raw := c.do(method, path, body)
	if res.StatusCode != status {
		c.t.Fatalf("%s %s: status %d, want %d: %s", method, path, res.StatusCode, status, raw)
	}
	if tok := res.Header.Get("X-Session-Token"); tok != "" {
		c.token = tok
	}
	return raw
}

// ---------- the test ----------

func TestHTTP_EndToEnd_BookingFlow(t *testing.T) {
	// isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=alpine",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "alpine")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	// seed an administrator login directly
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO logins (username, password_hash, role_id)
		 SELECT 'boss', ?, id FROM roles WHERE name = 'administrator'`, string(hash)); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	// real stack: repo + redis cache + services + router
	repo := mysqlrepo.New(db)
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	search := app.NewSearchService(repo, cache, 5*time.Minute)
	handlers := &httpserver.Handlers{
		Search:   search,
		Avail:    app.NewAvailabilityService(repo),
		Res:      app.NewReservationService(repo, cache),
		Inv:      app.NewInventoryService(repo, cache),
		Store:    repo,
		Export:   export.NewWriter(t.TempDir()),
		Sessions: httpserver.NewSessionRegistry(repo),
	}
	srv := httpserver.New(0)
	srv.MountHandlers(handlers)
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	admin := &client{t: t, base: ts.URL}
	guest := &client{t: t, base: ts.URL}

	// admin login; a wrong password first, so the budget visibly shrinks
	admin.expect("POST", "/v1/auth/login",
		map[string]string{"username": "boss", "password": "wrong"}, http.StatusUnauthorized)
	raw := admin.expect("POST", "/v1/auth/login",
		map[string]string{"username": "boss", "password": "admin-pass"}, http.StatusOK)
	var loginBody struct {
		Role         string `json:"role"`
		AttemptsLeft int    `json:"attempts_left"`
	}
	if err := json.Unmarshal(raw, &loginBody); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if loginBody.Role != "administrator" {
		t.Fatalf("role = %q", loginBody.Role)
	}
	if loginBody.AttemptsLeft != 1 {
		t.Fatalf("attempts_left = %d, want 1", loginBody.AttemptsLeft)
	}

	// anonymous inventory mutation is forbidden
	guest.expect("POST", "/v1/hotels",
		map[string]any{"name": "Nope", "stars": 3, "city": "Chur"}, http.StatusForbidden)

	// admin builds the inventory
	raw = admin.expect("POST", "/v1/hotels", map[string]any{
		"name": "Schatzalp", "stars": 5,
		"street": "Bergweg 1", "zip": "7270", "city": "Davos",
	}, http.StatusCreated)
	var created struct {
		HotelID int64 `json:"hotel_id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode hotel: %v", err)
	}
	hotelPath := fmt.Sprintf("/v1/hotels/%d", created.HotelID)

	admin.expect("POST", hotelPath+"/rooms", map[string]any{
		"number": "101", "type": "double", "max_guests": 2,
		"amenities": []string{"wifi"}, "price": 320.0,
	}, http.StatusCreated)

	// guest registers and logs in
	guest.expect("POST", "/v1/auth/register", map[string]string{
		"username": "anna", "password": "correct-horse",
		"firstname": "Anna", "lastname": "Huber", "email": "anna@example.com",
		"street": "Poststrasse 2", "zip": "8001", "city": "Zurich",
	}, http.StatusCreated)
	guest.expect("POST", "/v1/auth/login",
		map[string]string{"username": "anna", "password": "correct-horse"}, http.StatusOK)

	// search finds the hotel, availability lists the room
	raw = guest.expect("GET", "/v1/hotels?city=davos&min_stars=4", nil, http.StatusOK)
	var searchBody struct {
		Hotels []struct {
			ID int64 `json:"id"`
		} `json:"hotels"`
	}
	if err := json.Unmarshal(raw, &searchBody); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(searchBody.Hotels) != 1 || searchBody.Hotels[0].ID != created.HotelID {
		t.Fatalf("search = %s", raw)
	}
	guest.expect("GET", hotelPath+"/availability?start=2025-06-01&end=2025-06-05", nil, http.StatusOK)

	// authenticated guest books the room; identity comes from the session
	raw = guest.expect("POST", "/v1/bookings", map[string]any{
		"hotel_id": created.HotelID, "room_number": "101", "number_of_guests": 2,
		"start_date": "2025-06-01", "end_date": "2025-06-05", "comment": "late arrival",
	}, http.StatusCreated)
	var conf struct {
		BookingID    int64   `json:"booking_id"`
		NightlyPrice float64 `json:"nightly_price"`
	}
	if err := json.Unmarshal(raw, &conf); err != nil {
		t.Fatalf("decode confirmation: %v", err)
	}
	if conf.BookingID == 0 || conf.NightlyPrice != 320 {
		t.Fatalf("confirmation = %s", raw)
	}

	// overlapping dates conflict; back-to-back dates do not
	guest.expect("POST", "/v1/bookings", map[string]any{
		"hotel_id": created.HotelID, "room_number": "101", "number_of_guests": 1,
		"start_date": "2025-06-04", "end_date": "2025-06-08",
	}, http.StatusConflict)
	guest.expect("POST", "/v1/bookings", map[string]any{
		"hotel_id": created.HotelID, "room_number": "101", "number_of_guests": 1,
		"start_date": "2025-06-05", "end_date": "2025-06-08",
	}, http.StatusCreated)

	// the booked window no longer lists the room
	raw = guest.expect("GET", hotelPath+"/availability?start=2025-06-01&end=2025-06-05", nil, http.StatusOK)
	var avail struct {
		Rooms []any `json:"rooms"`
	}
	if err := json.Unmarshal(raw, &avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if len(avail.Rooms) != 0 {
		t.Fatalf("booked room still listed: %s", raw)
	}

	// booking detail is admin-only
	bookingPath := fmt.Sprintf("/v1/bookings/%d", conf.BookingID)
	guest.expect("GET", bookingPath, nil, http.StatusForbidden)
	admin.expect("GET", bookingPath, nil, http.StatusOK)

	// admin cancels; the room frees up again
	admin.expect("DELETE", bookingPath, nil, http.StatusNoContent)
	raw = guest.expect("GET", hotelPath+"/availability?start=2025-06-01&end=2025-06-05", nil, http.StatusOK)
	if err := json.Unmarshal(raw, &avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if len(avail.Rooms) != 1 {
		t.Fatalf("cancelled room should be free: %s", raw)
	}

	// logout invalidates the token
	admin.expect("POST", "/v1/auth/logout", nil, http.StatusNoContent)
	admin.expect("DELETE", hotelPath, nil, http.StatusForbidden)
}
