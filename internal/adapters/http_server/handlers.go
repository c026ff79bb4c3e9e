package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"alpine_stay/internal/adapters/export"
	"alpine_stay/internal/adapters/observability"
	"alpine_stay/internal/app"
	"alpine_stay/internal/domain"
)

type Handlers struct {
	Search   *app.SearchService
	Avail    *app.AvailabilityService
	Res      *app.ReservationService
	Inv      *app.InventoryService
	Store    domain.Store
	Export   *export.Writer
	Sessions *SessionRegistry
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/auth/login", h.login)
	s.mux.Post("/v1/auth/logout", h.logout)
	s.mux.Post("/v1/auth/register", h.register)

	s.mux.Get("/v1/hotels", h.searchHotels)
	s.mux.Get("/v1/hotels/{id}/rooms", h.listRooms)
	s.mux.Get("/v1/hotels/{id}/availability", h.availableRooms)
	s.mux.Get("/v1/hotels/{id}/rooms/{number}/availability", h.roomAvailable)

	s.mux.Post("/v1/bookings", h.createBooking)

	// admin surface; authorization happens in the inventory service
	s.mux.Post("/v1/hotels", h.addHotel)
	s.mux.Patch("/v1/hotels/{id}", h.updateHotel)
	s.mux.Delete("/v1/hotels/{id}", h.removeHotel)
	s.mux.Post("/v1/hotels/{id}/rooms", h.addRoom)
	s.mux.Get("/v1/bookings/{id}", h.getBooking)
	s.mux.Patch("/v1/bookings/{id}", h.updateBooking)
	s.mux.Delete("/v1/bookings/{id}", h.cancelBooking)
	s.mux.Put("/v1/hotels/{id}/rooms/{number}/availability", h.setRoomAvailability)
	s.mux.Put("/v1/hotels/{id}/rooms/{number}/price", h.setRoomPrice)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the core error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInvalidInput(err):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrNoAttemptsLeft),
		errors.Is(err, domain.ErrAlreadyAuthenticated):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrDuplicateUsername):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrRoomUnavailable):
		writeProblem(w, http.StatusConflict, "Room Unavailable", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ---- auth ----

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string `json:"token"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	GuestID      *int64 `json:"guest_id,omitempty"`
	AttemptsLeft int    `json:"attempts_left"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	tok, sess := h.Sessions.GetOrCreate(bearerToken(r))
	w.Header().Set("X-Session-Token", tok)

	if err := sess.Login(r.Context(), req.Username, req.Password); err != nil {
		observability.ObserveAuth("login", "denied")
		writeError(w, err)
		return
	}
	observability.ObserveAuth("login", "ok")
	login := sess.CurrentLogin()
	writeJSON(w, http.StatusOK, loginResponse{
		Token:        tok,
		Username:     login.Username,
		Role:         login.Role.Name,
		GuestID:      sess.GuestID(),
		AttemptsLeft: sess.AttemptsLeft(),
	})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	tok := bearerToken(r)
	sess := h.Sessions.Get(tok)
	if sess == nil {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "unknown session token")
		return
	}
	sess.Logout()
	h.Sessions.Drop(tok)
	observability.ObserveAuth("logout", "ok")
	w.WriteHeader(http.StatusNoContent)
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	profile := domain.GuestProfile{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Street:    req.Street,
		Zip:       req.Zip,
		City:      req.City,
	}
	sess := app.NewSession(h.Store)
	guestID, err := sess.Register(r.Context(), domain.Credentials{Username: req.Username, Password: req.Password}, profile)
	if err != nil {
		observability.ObserveAuth("register", "denied")
		writeError(w, err)
		return
	}
	observability.ObserveAuth("register", "ok")
	if h.Export != nil && r.URL.Query().Get("export") == "true" {
		if _, err := h.Export.UserProfile(req.Username, profile); err != nil {
			log.Warn().Err(err).Str("username", req.Username).Msg("profile export failed")
		}
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"guest_id": guestID})
}

// ---- search ----

type hotelJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Stars  int    `json:"stars"`
	Street string `json:"street"`
	City   string `json:"city"`
}

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f domain.SearchFilters

	if v := q.Get("name"); v != "" {
		f.Name = &v
	}
	if v := q.Get("city"); v != "" {
		f.City = &v
	}
	intParam := func(name string) (*int, bool) {
		v := q.Get(name)
		if v == "" {
			return nil, true
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Input", name+" must be an integer")
			return nil, false
		}
		return &n, true
	}
	var ok bool
	if f.MinStars, ok = intParam("min_stars"); !ok {
		return
	}
	if f.ExactStars, ok = intParam("stars"); !ok {
		return
	}
	if f.MaxGuests, ok = intParam("guests"); !ok {
		return
	}

	start, end := q.Get("start"), q.Get("end")
	if (start == "") != (end == "") {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", "start and end must be supplied together")
		return
	}
	if start != "" {
		stay, err := domain.ParseStay(start, end)
		if err != nil {
			writeError(w, err)
			return
		}
		f.Stay = &stay
	}

	hotels, err := h.Search.FindHotels(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]hotelJSON, 0, len(hotels))
	for _, hs := range hotels {
		out = append(out, hotelJSON{ID: hs.ID, Name: hs.Name, Stars: hs.Stars, Street: hs.Street, City: hs.City})
	}
	writeJSON(w, http.StatusOK, map[string]any{"hotels": out})
}

func hotelID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, domain.Invalid("hotel_id", chi.URLParam(r, "id"), "must be an integer")
	}
	return id, nil
}

type roomSummaryJSON struct {
	Number      string  `json:"number"`
	Type        string  `json:"type"`
	MaxGuests   int     `json:"max_guests"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	id, err := hotelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	minCap := 0
	if v := r.URL.Query().Get("min_capacity"); v != "" {
		minCap, err = strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Input", "min_capacity must be an integer")
			return
		}
	}
	rooms, err := h.Search.ListRooms(r.Context(), id, minCap)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]roomSummaryJSON, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, roomSummaryJSON{Number: rm.Number, Type: rm.Type, MaxGuests: rm.MaxGuests, Description: rm.Description, Price: rm.Price})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": out})
}

func parseStayParams(r *http.Request) (domain.Stay, error) {
	q := r.URL.Query()
	return domain.ParseStay(q.Get("start"), q.Get("end"))
}

type roomJSON struct {
	Number      string   `json:"number"`
	Type        string   `json:"type"`
	MaxGuests   int      `json:"max_guests"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
	Price       float64  `json:"price"`
}

func (h *Handlers) availableRooms(w http.ResponseWriter, r *http.Request) {
	id, err := hotelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stay, err := parseStayParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rooms, err := h.Search.FindAvailableRooms(r.Context(), id, stay)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]roomJSON, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, roomJSON{Number: rm.Number, Type: rm.Type, MaxGuests: rm.MaxGuests, Description: rm.Description, Amenities: rm.Amenities, Price: rm.Price})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": out})
}

func (h *Handlers) roomAvailable(w http.ResponseWriter, r *http.Request) {
	id, err := hotelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stay, err := parseStayParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ref := domain.RoomRef{HotelID: id, Number: chi.URLParam(r, "number")}
	free, err := h.Avail.RoomAvailable(r.Context(), ref, stay)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": free})
}

// ---- bookings ----

type guestJSON struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
}

type createBookingRequest struct {
	HotelID        int64      `json:"hotel_id"`
	RoomNumber     string     `json:"room_number"`
	NumberOfGuests int        `json:"number_of_guests"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	Comment        string     `json:"comment"`
	GuestID        *int64     `json:"guest_id,omitempty"`
	Guest          *guestJSON `json:"guest,omitempty"`
}

type confirmationJSON struct {
	BookingID      int64   `json:"booking_id"`
	HotelID        int64   `json:"room_hotel_id"`
	RoomNumber     string  `json:"room_number"`
	GuestID        int64   `json:"guest_id"`
	NumberOfGuests int     `json:"number_of_guests"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Comment        string  `json:"comment"`
	NightlyPrice   float64 `json:"nightly_price"`
}

func toConfirmationJSON(c domain.Confirmation) confirmationJSON {
	return confirmationJSON{
		BookingID:      c.BookingID,
		HotelID:        c.RoomHotelID,
		RoomNumber:     c.RoomNumber,
		GuestID:        c.GuestID,
		NumberOfGuests: c.NumberOfGuests,
		StartDate:      c.Stay.StartString(),
		EndDate:        c.Stay.EndString(),
		Comment:        c.Comment,
		NightlyPrice:   c.NightlyPrice,
	}
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	var guestID int64
	switch {
	case req.GuestID != nil:
		guestID = *req.GuestID
	case req.Guest != nil:
		id, err := h.Res.EnsureGuest(r.Context(), domain.GuestProfile{
			Firstname: req.Guest.Firstname,
			Lastname:  req.Guest.Lastname,
			Email:     req.Guest.Email,
			Street:    req.Guest.Street,
			Zip:       req.Guest.Zip,
			City:      req.Guest.City,
		})
		if err != nil {
			observability.ObserveBooking("rejected")
			writeError(w, err)
			return
		}
		guestID = id
	default:
		// fall back to the authenticated guest, if any
		if sess := h.Sessions.Get(bearerToken(r)); sess != nil && sess.GuestID() != nil {
			guestID = *sess.GuestID()
		} else {
			writeProblem(w, http.StatusBadRequest, "Invalid Input", "guest_id or guest profile required")
			return
		}
	}

	conf, err := h.Res.CreateBooking(r.Context(), app.BookingRequest{
		Room:           domain.RoomRef{HotelID: req.HotelID, Number: req.RoomNumber},
		GuestID:        guestID,
		NumberOfGuests: req.NumberOfGuests,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Comment:        req.Comment,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomUnavailable) {
			observability.ObserveBooking("unavailable")
		} else {
			observability.ObserveBooking("rejected")
		}
		writeError(w, err)
		return
	}
	observability.ObserveBooking("created")

	if h.Export != nil && r.URL.Query().Get("export") == "true" {
		if path, err := h.Export.BookingConfirmation(conf); err != nil {
			log.Warn().Err(err).Int64("booking_id", conf.BookingID).Msg("confirmation export failed")
		} else {
			log.Info().Str("path", path).Int64("booking_id", conf.BookingID).Msg("confirmation exported")
		}
	}
	writeJSON(w, http.StatusCreated, toConfirmationJSON(conf))
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Get(bearerToken(r))
	if sess == nil || !sess.IsAdmin() {
		writeError(w, domain.ErrNotAuthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", "booking id must be an integer")
		return
	}
	conf, err := h.Res.Confirmation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfirmationJSON(conf))
}

// ---- inventory (admin) ----

func (h *Handlers) session(r *http.Request) *app.Session {
	return h.Sessions.Get(bearerToken(r))
}

type addHotelRequest struct {
	Name   string `json:"name"`
	Stars  int    `json:"stars"`
	Street string `json:"street"`
	Zip    string `json:"zip"`
	City   string `json:"city"`
}

func (h *Handlers) addHotel(w http.ResponseWriter, r *http.Request) {
	var req addHotelRequest
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	id, err := h.Inv.AddHotel(r.Context(), h.session(r), req.Name, req.Stars,
		domain.Address{Street: req.Street, Zip: req.Zip, City: req.City})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"hotel_id": id})
}

type updateHotelRequest struct {
	Name   *string `json:"name"`
	Stars  *int    `json:"stars"`
	Street *string `json:"street"`
	Zip    *string `json:"zip"`
	City   *string `json:"city"`
}

func (h *Handlers) updateHotel(w http.ResponseWriter, r *http.Request) {
	id, err := hotelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateHotelRequest
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	patch := domain.HotelPatch{Name: req.Name, Stars: req.Stars, Street: req.Street, Zip: req.Zip, City: req.City}
	if err := h.Inv.UpdateHotel(r.Context(), h.session(r), id, patch); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeHotel(w http.ResponseWriter, r *http.Request) {
	id, err := hotelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Inv.RemoveHotel(r.Context(), h.session(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addRoomRequest struct {
	Number      string   `json:"number"`
	Type        string   `json:"type"`
	MaxGuests   int      `json:"max_guests"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
	Price       float64  `json:"price"`
}

func (h *Handlers) addRoom(w http.ResponseWriter, r *http.Request) {
	id, err := hotelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addRoomRequest
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	room := domain.Room{
		HotelID:     id,
		Number:      req.Number,
		Type:        req.Type,
		MaxGuests:   req.MaxGuests,
		Description: req.Description,
		Amenities:   req.Amenities,
		Price:       req.Price,
		Available:   true,
	}
	if err := h.Inv.AddRoom(r.Context(), h.session(r), room); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type updateBookingRequest struct {
	NumberOfGuests *int    `json:"number_of_guests"`
	StartDate      *string `json:"start_date"`
	EndDate        *string `json:"end_date"`
	Comment        *string `json:"comment"`
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", "booking id must be an integer")
		return
	}
	var req updateBookingRequest
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	var patch domain.BookingPatch
	patch.NumberOfGuests = req.NumberOfGuests
	patch.Comment = req.Comment
	if req.StartDate != nil {
		t, err := domain.ParseDate("start_date", *req.StartDate)
		if err != nil {
			writeError(w, err)
			return
		}
		patch.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := domain.ParseDate("end_date", *req.EndDate)
		if err != nil {
			writeError(w, err)
			return
		}
		patch.EndDate = &t
	}
	if err := h.Inv.UpdateBooking(r.Context(), h.session(r), id, patch); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", "booking id must be an integer")
		return
	}
	if err := h.Inv.CancelBooking(r.Context(), h.session(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) roomRef(r *http.Request) (domain.RoomRef, error) {
	id, err := hotelID(r)
	if err != nil {
		return domain.RoomRef{}, err
	}
	return domain.RoomRef{HotelID: id, Number: chi.URLParam(r, "number")}, nil
}

func (h *Handlers) setRoomAvailability(w http.ResponseWriter, r *http.Request) {
	ref, err := h.roomRef(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Available bool `json:"available"`
	}
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.Inv.SetRoomAvailability(r.Context(), h.session(r), ref, req.Available); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setRoomPrice(w http.ResponseWriter, r *http.Request) {
	ref, err := h.roomRef(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Price float64 `json:"price"`
	}
	if err := decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.Inv.SetRoomPrice(r.Context(), h.session(r), ref, req.Price); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
