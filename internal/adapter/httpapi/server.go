package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/menu"
	"github.com/example/salad-order-service/internal/usecase"
	"github.com/gorilla/mux"
)

const serviceName = "salad-order-service"

// OrderQueue отдаёт кухне заказы в заданном статусе.
type OrderQueue interface {
	ByStatus(status domain.Status) []domain.Order
}

// Handlers — use cases, обслуживаемые HTTP-адаптером.
type Handlers struct {
	Create        usecase.CreateOrder
	Get           usecase.GetOrderByID
	History       usecase.GetStatusHistory
	UpdateStatus  usecase.ApplyStatusUpdate
	Webhook       usecase.HandleWebhook
	PaymentStatus usecase.GetPaymentStatus
	Slots         usecase.ListSlots
	Quote         usecase.QuoteSelection
	Catalog       *menu.Catalog
	Queue         OrderQueue
}

type Server struct {
	Router *mux.Router
	h      Handlers
}

func NewServer(h Handlers) *Server {
	s := &Server{Router: mux.NewRouter(), h: h}
	r := s.Router
	r.Use(requestLogger)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/create", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/orders", s.handleQueue).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/{id}/status", s.handleStatus).Methods(http.MethodPatch)
	r.HandleFunc("/api/orders/{id}/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/payments/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/api/payments/webhook", s.handlePaymentStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/slots", s.handleSlots).Methods(http.MethodGet)
	r.HandleFunc("/api/menu", s.handleMenu).Methods(http.MethodGet)
	r.HandleFunc("/api/menu/quote", s.handleQuote).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   serviceName,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}
	res, err := s.h.Create.Execute(r.Context(), req)
	var pe *usecase.PaymentInitError
	if errors.As(err, &pe) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Payment initialization failed", Details: pe.Details})
		return
	}
	if err != nil {
		writeError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	o, err := s.h.Get.Execute(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.h.History.Execute(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleQueue lists cached orders in one status for the kitchen screen.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	st := domain.Status(r.URL.Query().Get("status"))
	if st == "" {
		st = domain.StatusPaid
	}
	if !st.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Unknown status"})
		return
	}
	orders := []domain.Order{}
	if s.h.Queue != nil {
		orders = s.h.Queue.ByStatus(st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": orders, "total": len(orders)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}
	o, err := s.h.UpdateStatus.Update(r.Context(), domain.StatusUpdate{OrderID: mux.Vars(r)["id"], Status: body.Status})
	if err != nil {
		writeError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var p domain.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}
	res, err := s.h.Webhook.Execute(r.Context(), p, r.Header.Get("x-signature"))
	if err != nil {
		writeError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("paymentId")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing paymentId parameter"})
		return
	}
	res, err := s.h.PaymentStatus.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to check payment status")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	res, err := s.h.Slots.Execute(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err, "Failed to fetch available slots")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMenu(w http.ResponseWriter, _ *http.Request) {
	if s.h.Catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Menu not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, s.h.Catalog)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var sel menu.Selection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}
	q, err := s.h.Quote.Execute(sel)
	if err != nil {
		writeError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, q)
}
