package http

import (
	"net/http"
	"strings"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/services"
)

type createClientRequest struct {
	core.NewClient
	InitialPayment *services.InitialPayment `json:"initialPayment,omitempty"`
}

type createClientResponse struct {
	Client      core.Client       `json:"client"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
}

type paymentRequest struct {
	Amount core.Money         `json:"amount"`
	Method core.PaymentMethod `json:"method"`
}

type paymentResponse struct {
	Payment     core.Payment     `json:"payment"`
	Transaction core.Transaction `json:"transaction"`
}

// handleListClients serves ?view=active|inactive (default all) narrowed by
// the optional ?q= search.
func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	query := r.URL.Query()

	var keep func(core.Client) bool
	switch view := strings.TrimSpace(query.Get("view")); view {
	case "", "all":
	case "active":
		keep = func(c core.Client) bool { return c.IsActive }
	case "inactive":
		keep = core.Client.IsInactive
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Vista desconhecida: " + view, Field: "view"})
		return
	}

	clients := s.deps.Clients.Search(sanitizeInput(query.Get("q")))
	out := make([]core.Client, 0, len(clients))
	for _, c := range clients {
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	client, tx, err := s.deps.Cashier.RegisterClient(r.Context(), sess, req.NewClient, req.InitialPayment)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if tx != nil {
		s.invalidateReports()
	}
	writeJSON(w, http.StatusCreated, createClientResponse{Client: client, Transaction: tx})
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	client, ok := s.deps.Clients.Get(r.PathValue("id"))
	if !ok {
		handleServiceError(w, r, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	var u core.ClientUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		badRequest(w, err)
		return
	}
	client, ok, err := s.deps.Clients.Update(r.Context(), r.PathValue("id"), u)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !ok {
		handleServiceError(w, r, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	if !s.deps.Clients.Remove(r.Context(), r.PathValue("id")) {
		handleServiceError(w, r, core.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleSignal(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	client, ok := s.deps.Clients.ToggleSignal(r.Context(), r.PathValue("id"))
	if !ok {
		handleServiceError(w, r, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// handleReceivePayment records a monthly payment and its ledger entrada.
func (s *Server) handleReceivePayment(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	payment, tx, err := s.deps.Cashier.ReceivePayment(r.Context(), sess, r.PathValue("id"), req.Amount, req.Method)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, paymentResponse{Payment: payment, Transaction: tx})
}

// handleQuote prices a payment. ?date=YYYY-MM-DD is the payment date
// (default today) and ?referenceMonth=YYYY-MM the month being paid.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	query := r.URL.Query()
	var paymentDate time.Time
	if v := query.Get("date"); v != "" {
		day, err := parseDay(v, s.today(), s.deps.Ledger.Location())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Data inválida (use AAAA-MM-DD)", Field: "date"})
			return
		}
		paymentDate = day
	}
	quote, err := s.deps.Cashier.Quote(r.PathValue("id"), paymentDate, strings.TrimSpace(query.Get("referenceMonth")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
