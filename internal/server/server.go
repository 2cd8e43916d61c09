// Package server exposes the settlement service as a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"tripledger/internal/calculator"
	"tripledger/internal/eventio"
	"tripledger/internal/models"
	"tripledger/internal/money"
	"tripledger/internal/service"
	"tripledger/internal/storage"
)

// Server routes API requests to the settlement service.
type Server struct {
	svc *service.SettlementService
	mux *http.ServeMux
}

// New builds the API server and registers all routes.
func New(svc *service.SettlementService) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/events", s.createEvent)
	s.mux.HandleFunc("GET /api/events", s.listEvents)
	s.mux.HandleFunc("GET /api/events/{id}", s.getEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.deleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/people", s.addPerson)
	s.mux.HandleFunc("POST /api/events/{id}/activities", s.addActivity)
	s.mux.HandleFunc("GET /api/events/{id}/settlement", s.getSettlement)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps domain errors to HTTP statuses. Validation and strategy
// errors are the caller's fault; rounding errors mean the engine could
// not reconcile and are reported as server errors with a distinct code.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		strategyErr   *calculator.StrategyError
		roundingErr   *money.RoundingError
	)
	switch {
	case errors.Is(err, storage.ErrEventNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "validation"})
	case errors.As(err, &strategyErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "strategy"})
	case errors.As(err, &roundingErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "rounding"})
	default:
		slog.Error("Unhandled API error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.Validationf("invalid request body: %v", err)
	}
	return nil
}

type createEventRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type eventCreatedResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	event, err := s.svc.CreateEvent(r.Context(), req.Name, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventCreatedResponse{
		ID:       event.ID(),
		Name:     event.Name(),
		Currency: event.Currency(),
	})
}

type eventInfoResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	CreatedAt int64  `json:"created_at"`
	People    int    `json:"people"`
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	infos, err := s.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]eventInfoResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, eventInfoResponse{
			ID:        info.ID,
			Name:      info.Name,
			Currency:  info.Currency,
			CreatedAt: info.CreatedAt,
			People:    info.People,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.svc.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := eventio.WriteEventJSON(w, event); err != nil {
		slog.Error("Failed to encode event", "error", err)
	}
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addPersonRequest struct {
	Name string `json:"name"`
}

type personResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) addPerson(w http.ResponseWriter, r *http.Request) {
	var req addPersonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	person, err := s.svc.AddPerson(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, personResponse{ID: person.ID, Name: person.Name})
}

type paymentRequest struct {
	PersonID string          `json:"person_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type addActivityRequest struct {
	Description    string                     `json:"description"`
	Amount         decimal.Decimal            `json:"amount"`
	PayerID        string                     `json:"payer_id"`
	Payers         []paymentRequest           `json:"payers"`
	ParticipantIDs []string                   `json:"participant_ids"`
	SplitStrategy  string                     `json:"split_strategy"`
	Weights        map[string]decimal.Decimal `json:"weights"`
	Shares         map[string]decimal.Decimal `json:"shares"`
}

type activityResponse struct {
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	SplitStrategy string          `json:"split_strategy"`
}

func (s *Server) addActivity(w http.ResponseWriter, r *http.Request) {
	var req addActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := service.ActivityInput{
		Description:    req.Description,
		Amount:         req.Amount,
		PayerID:        req.PayerID,
		ParticipantIDs: req.ParticipantIDs,
		Strategy:       req.SplitStrategy,
		Weights:        req.Weights,
		Shares:         req.Shares,
	}
	for _, p := range req.Payers {
		in.Payers = append(in.Payers, models.Payment{PersonID: p.PersonID, Amount: p.Amount})
	}

	activity, err := s.svc.AddActivity(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activityResponse{
		ID:            activity.ID(),
		Description:   activity.Description(),
		Amount:        activity.Amount(),
		SplitStrategy: string(activity.Strategy()),
	})
}

type transferResponse struct {
	From   personResponse  `json:"from"`
	To     personResponse  `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type summaryEntryResponse struct {
	Person personResponse  `json:"person"`
	Paid   decimal.Decimal `json:"paid"`
	Owed   decimal.Decimal `json:"owed"`
	Net    decimal.Decimal `json:"net"`
}

type settlementResponse struct {
	EventID   string                 `json:"event_id"`
	Currency  string                 `json:"currency"`
	Transfers []transferResponse     `json:"transfers"`
	Summary   []summaryEntryResponse `json:"summary"`
}

func (s *Server) getSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := s.svc.ComputeSettlement(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := settlementResponse{
		EventID:   settlement.Event.ID(),
		Currency:  settlement.Event.Currency(),
		Transfers: make([]transferResponse, 0, len(settlement.Transfers)),
		Summary:   make([]summaryEntryResponse, 0, len(settlement.Summary)),
	}
	for _, tr := range settlement.Transfers {
		out.Transfers = append(out.Transfers, transferResponse{
			From:   personResponse{ID: tr.From.ID, Name: tr.From.Name},
			To:     personResponse{ID: tr.To.ID, Name: tr.To.Name},
			Amount: tr.Amount,
		})
	}
	for _, entry := range settlement.Summary {
		out.Summary = append(out.Summary, summaryEntryResponse{
			Person: personResponse{ID: entry.Person.ID, Name: entry.Person.Name},
			Paid:   entry.Paid,
			Owed:   entry.Owed,
			Net:    entry.Net,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
