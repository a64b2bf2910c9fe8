// Package stub implements a small in-memory booking backend exposing
// the same HTTP contract the real service does.  It exists so the
// client library, UI prototypes and integration tests can run without
// the production stack: fixtures instead of a database, a JWT check
// with a shared dev secret, and first-writer-wins slot conflicts.
package stub

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/ajasta/booking-client/internal/availability"
	"github.com/ajasta/booking-client/internal/middleware"
	"github.com/ajasta/booking-client/internal/model"
)

// Server holds the fixtures and accepted bookings.
type Server struct {
	mu          sync.Mutex
	secret      string
	resources   map[uint64]model.Resource
	booked      map[uint64]map[string]bool // resource id -> slot key -> taken
	savedEmails map[string][]string        // user id -> emails
}

// New builds a stub over the given resource fixtures.  Tokens must be
// HS256-signed with secret.
func New(secret string, resources ...model.Resource) *Server {
	s := &Server{
		secret:      secret,
		resources:   make(map[uint64]model.Resource, len(resources)),
		booked:      make(map[uint64]map[string]bool),
		savedEmails: make(map[string][]string),
	}
	for _, r := range resources {
		s.resources[r.ID] = r
	}
	return s
}

// Register mounts all routes on an Echo instance.  Resource reads are
// public; booking and profile routes sit behind the JWT and role
// middleware, matching the real backend's layout.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/resources/:id", s.getResource)

	auth := e.Group("")
	auth.Use(middleware.JWTAuth(s.secret))
	auth.GET("/saved-emails", s.listSavedEmails)
	auth.POST("/saved-emails", s.addSavedEmail)
	auth.GET("/my-profile", s.myProfile)

	book := auth.Group("")
	book.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	book.POST("/resources/:id/book-batch", s.bookBatch)
	book.POST("/resources/:id/book-multi", s.bookMulti)
}

// Booked reports whether a slot has been accepted, for assertions in
// tests.
func (s *Server) Booked(resourceID uint64, slotKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.booked[resourceID][slotKey]
}

func envelope(c echo.Context, status int, message string) error {
	// The real backend wraps business failures in a 200 transport
	// response; only auth middleware uses HTTP error statuses.
	return c.JSON(http.StatusOK, echo.Map{"statusCode": status, "message": message})
}

func (s *Server) getResource(c echo.Context) error {
	var id uint64
	if _, err := fmt.Sscanf(c.Param("id"), "%d", &id); err != nil {
		return envelope(c, http.StatusBadRequest, "invalid resource id")
	}
	s.mu.Lock()
	r, ok := s.resources[id]
	s.mu.Unlock()
	if !ok {
		return envelope(c, http.StatusNotFound, "resource not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"statusCode": http.StatusOK, "message": "success", "data": r})
}

type slotBody struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Unit      int    `json:"unit"`
}

type dayBody struct {
	Date  string     `json:"date"`
	Slots []slotBody `json:"slots"`
}

func (s *Server) bookBatch(c echo.Context) error {
	var body dayBody
	if err := c.Bind(&body); err != nil {
		return envelope(c, http.StatusBadRequest, "invalid request body")
	}
	return s.accept(c, []dayBody{body})
}

func (s *Server) bookMulti(c echo.Context) error {
	var body struct {
		Days []dayBody `json:"days"`
	}
	if err := c.Bind(&body); err != nil {
		return envelope(c, http.StatusBadRequest, "invalid request body")
	}
	return s.accept(c, body.Days)
}

// accept validates and records all slots of a request atomically:
// either every slot is free and all are booked, or nothing changes.
func (s *Server) accept(c echo.Context, days []dayBody) error {
	var id uint64
	if _, err := fmt.Sscanf(c.Param("id"), "%d", &id); err != nil {
		return envelope(c, http.StatusBadRequest, "invalid resource id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[id]
	if !ok {
		return envelope(c, http.StatusNotFound, "resource not found")
	}

	var keys []string
	total := 0
	for _, day := range days {
		if day.Date == "" || len(day.Slots) == 0 {
			return envelope(c, http.StatusBadRequest, "each day needs a date and at least one slot")
		}
		for _, sl := range day.Slots {
			if _, ok := availability.ParseClock(sl.StartTime); !ok {
				return envelope(c, http.StatusBadRequest, "invalid slot start time")
			}
			if sl.Unit < 1 || sl.Unit > r.Units() {
				return envelope(c, http.StatusBadRequest, "unit out of range")
			}
			key := model.SlotKey(day.Date, sl.StartTime, sl.Unit)
			if s.booked[id][key] {
				return envelope(c, http.StatusConflict, "one or more selected slots are already booked")
			}
			keys = append(keys, key)
			total++
		}
	}

	if s.booked[id] == nil {
		s.booked[id] = make(map[string]bool)
	}
	for _, k := range keys {
		s.booked[id][k] = true
	}
	msg := fmt.Sprintf("Your booking has been received for %d slot(s). We've sent a secure payment link to your email.", total)
	return envelope(c, http.StatusOK, msg)
}

func (s *Server) listSavedEmails(c echo.Context) error {
	user := fmt.Sprint(c.Get("user_id"))
	s.mu.Lock()
	emails := append([]string(nil), s.savedEmails[user]...)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"statusCode": http.StatusOK, "message": "success", "data": emails})
}

func (s *Server) addSavedEmail(c echo.Context) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&body); err != nil || body.Email == "" {
		return envelope(c, http.StatusBadRequest, "email is required")
	}
	user := fmt.Sprint(c.Get("user_id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.savedEmails[user] {
		if e == body.Email {
			return envelope(c, http.StatusOK, "already saved")
		}
	}
	s.savedEmails[user] = append(s.savedEmails[user], body.Email)
	return envelope(c, http.StatusOK, "saved")
}

func (s *Server) myProfile(c echo.Context) error {
	user := fmt.Sprint(c.Get("user_id"))
	return c.JSON(http.StatusOK, echo.Map{
		"statusCode": http.StatusOK,
		"message":    "success",
		"data":       echo.Map{"email": user + "@example.test"},
	})
}
