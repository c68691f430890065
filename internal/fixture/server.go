// Package fixture is an in-process implementation of the remote participants
// service contract, used by integration tests and runnable standalone for
// local development. It reproduces the remote's observable quirks, most
// importantly that dates in responses are rendered in RFC 1123 form, which is
// why the client carries a date normalizer at all.
package fixture

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trialdesk/internal/platform/logger"
)

type participantRecord struct {
	ID             int
	ParticipantID  string
	SubjectID      string
	StudyGroup     string
	EnrollmentDate string // canonical YYYY-MM-DD, rendered RFC1123 on the way out
	Status         string
	Age            int
	Gender         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type userRecord struct {
	ID       int
	Email    string
	FullName *string
	Password string
}

// Server holds the fixture's state behind a chi router mounted at /api.
type Server struct {
	signingKey []byte
	logger     *slog.Logger
	router     chi.Router

	mu           sync.Mutex
	participants []participantRecord
	users        []userRecord
	nextID       int
	nextUserID   int
}

type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.logger = log
	}
}

func New(signingKey string, opts ...Option) *Server {
	s := &Server{
		signingKey: []byte(signingKey),
		logger:     logger.Discard(),
		nextID:     1,
		nextUserID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "fixture_api"))

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/participants", s.handleList)
			r.Post("/participants", s.handleCreate)
			r.Get("/participants/metrics/summary", s.handleMetrics)
			r.Get("/participants/{id}", s.handleGet)
			r.Put("/participants/{id}", s.handleUpdate)
			r.Delete("/participants/{id}", s.handleDelete)
		})
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SeedUser registers an account directly, bypassing the HTTP surface.
func (s *Server) SeedUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, userRecord{ID: s.nextUserID, Email: email, Password: password})
	s.nextUserID++
}

// --- auth ---

type credentials struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Registration validation error")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == creds.Email {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
	}
	user := userRecord{ID: s.nextUserID, Email: creds.Email, FullName: creds.FullName, Password: creds.Password}
	s.nextUserID++
	s.users = append(s.users, user)
	s.mu.Unlock()

	s.logger.Info("user registered", slog.String("email", user.Email))
	s.writeTokenResponse(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Login validation error")
		return
	}

	s.mu.Lock()
	var found *userRecord
	for i := range s.users {
		if s.users[i].Email == creds.Email && s.users[i].Password == creds.Password {
			found = &s.users[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.writeTokenResponse(w, http.StatusOK, *found)
}

func (s *Server) writeTokenResponse(w http.ResponseWriter, status int, user userRecord) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.Itoa(user.ID),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token signing failed")
		return
	}

	writeJSON(w, status, map[string]any{
		"access_token": signed,
		"token_type":   "bearer",
		"user": map[string]any{
			"id":        user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
		},
	})
}

// requireToken verifies the bearer credential on every participants route.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Missing Authorization Header")
			return
		}

		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.signingKey, nil
		}, jwt.WithExpirationRequired())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token has expired or is invalid")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- participants ---

type participantPayload struct {
	SubjectID      string `json:"subject_id"`
	StudyGroup     string `json:"study_group"`
	EnrollmentDate string `json:"enrollment_date"`
	Status         string `json:"status"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
}

func (p participantPayload) validate() string {
	if p.SubjectID == "" {
		return "subject_id is required"
	}
	switch p.StudyGroup {
	case "treatment", "control":
	default:
		return "study_group must be treatment or control"
	}
	switch p.Status {
	case "active", "completed", "withdrawn", "":
	default:
		return "status must be active, completed or withdrawn"
	}
	switch p.Gender {
	case "M", "F", "Other":
	default:
		return "gender must be M, F or Other"
	}
	if p.Age < 0 || p.Age > 150 {
		return "age must be between 0 and 150"
	}
	if _, err := time.Parse("2006-01-02", p.EnrollmentDate); err != nil {
		return "enrollment_date must be a valid date"
	}
	return ""
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, renderParticipant(p))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload participantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := payload.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	if s.subjectIDTaken(payload.SubjectID, 0) {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Subject ID already exists")
		return
	}

	now := time.Now().UTC()
	status := payload.Status
	if status == "" {
		status = "active"
	}
	record := participantRecord{
		ID:             s.nextID,
		ParticipantID:  uuid.NewString(),
		SubjectID:      payload.SubjectID,
		StudyGroup:     payload.StudyGroup,
		EnrollmentDate: payload.EnrollmentDate,
		Status:         status,
		Age:            payload.Age,
		Gender:         payload.Gender,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.nextID++
	s.participants = append(s.participants, record)
	s.mu.Unlock()

	s.logger.Info("participant created", slog.Int("id", record.ID), slog.String("subject_id", record.SubjectID))
	writeJSON(w, http.StatusCreated, renderParticipant(record))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Participant not found")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.ID == id {
			writeJSON(w, http.StatusOK, renderParticipant(p))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Participant not found")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Participant not found")
		return
	}

	var payload participantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := payload.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.participants {
		if p.ID != id {
			continue
		}
		if payload.SubjectID != p.SubjectID && s.subjectIDTaken(payload.SubjectID, id) {
			writeError(w, http.StatusConflict, "Subject ID already exists")
			return
		}
		p.SubjectID = payload.SubjectID
		p.StudyGroup = payload.StudyGroup
		p.EnrollmentDate = payload.EnrollmentDate
		if payload.Status != "" {
			p.Status = payload.Status
		}
		p.Age = payload.Age
		p.Gender = payload.Gender
		p.UpdatedAt = time.Now().UTC()
		s.participants[i] = p
		writeJSON(w, http.StatusOK, renderParticipant(p))
		return
	}
	writeError(w, http.StatusNotFound, "Participant not found")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Participant not found")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.participants {
		if p.ID == id {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Participant deleted"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Participant not found")
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStatus := map[string]int{"active": 0, "completed": 0, "withdrawn": 0}
	byGroup := map[string]int{"treatment": 0, "control": 0}
	for _, p := range s.participants {
		byStatus[p.Status]++
		byGroup[p.StudyGroup]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":     len(s.participants),
		"by_status": byStatus,
		"by_group":  byGroup,
	})
}

func (s *Server) subjectIDTaken(subjectID string, excludeID int) bool {
	for _, p := range s.participants {
		if p.ID != excludeID && p.SubjectID == subjectID {
			return true
		}
	}
	return false
}

// renderParticipant serializes a record the way the remote service does:
// calendar dates and timestamps come out in RFC 1123 form.
func renderParticipant(p participantRecord) map[string]any {
	enrollment, err := time.Parse("2006-01-02", p.EnrollmentDate)
	enrollmentOut := p.EnrollmentDate
	if err == nil {
		enrollmentOut = enrollment.UTC().Format(http.TimeFormat)
	}
	return map[string]any{
		"id":              p.ID,
		"participant_id":  p.ParticipantID,
		"subject_id":      p.SubjectID,
		"study_group":     p.StudyGroup,
		"enrollment_date": enrollmentOut,
		"status":          p.Status,
		"age":             p.Age,
		"gender":          p.Gender,
		"created_at":      p.CreatedAt.Format(http.TimeFormat),
		"updated_at":      p.UpdatedAt.Format(http.TimeFormat),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
