// Package api provides HTTP handlers for OrderFlow endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/VeriScreen/OrderFlow/internal/backend"
	"github.com/VeriScreen/OrderFlow/internal/models"
	"github.com/VeriScreen/OrderFlow/internal/wizard"
)

// statusForError maps orchestrator errors to HTTP status codes. Unknown
// errors are treated as client validation failures, which is what the
// orchestrator's free-form errors are.
func statusForError(err error) int {
	var be *backend.BackendError
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSessionTerminal),
		errors.Is(err, models.ErrSubmitInFlight),
		errors.Is(err, wizard.ErrStaleSession):
		return http.StatusConflict
	case errors.As(err, &be):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func writeWizardError(w http.ResponseWriter, err error) {
	writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
}

// sessionsHandler routes /sessions and /sessions/{id}/... requests.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sessionsHandler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/sessions")
	path = strings.TrimPrefix(path, "/")
	segments := strings.Split(path, "/")

	if len(segments) == 0 || segments[0] == "" {
		// /sessions
		switch r.Method {
		case http.MethodPost:
			s.createSessionHandler(w, r)
		default:
			w.Header().Set("Allow", http.MethodPost)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	sessionID := segments[0]

	if len(segments) == 1 {
		// /sessions/{id}
		switch r.Method {
		case http.MethodGet:
			s.getSessionHandler(w, r, sessionID)
		default:
			w.Header().Set("Allow", http.MethodGet)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	if len(segments) == 2 {
		switch segments[1] {
		case "advance":
			s.requirePost(w, r, sessionID, s.advanceHandler)
		case "retreat":
			s.requirePost(w, r, sessionID, s.retreatHandler)
		case "order-info":
			s.requirePut(w, r, sessionID, s.orderInfoHandler)
		case "participant":
			s.requirePut(w, r, sessionID, s.participantHandler)
		case "communication":
			s.requirePut(w, r, sessionID, s.communicationHandler)
		case "sites":
			s.requirePost(w, r, sessionID, s.sitesHandler)
		case "site":
			s.requirePut(w, r, sessionID, s.selectSiteHandler)
		case "submit":
			s.requirePost(w, r, sessionID, s.submitHandler)
		case "reset":
			s.requirePost(w, r, sessionID, s.resetHandler)
		default:
			writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
		}
		return
	}

	if len(segments) == 3 && segments[1] == "sites" && segments[2] == "pincode" {
		s.requirePost(w, r, sessionID, s.pincodeHandler)
		return
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
}

type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, sessionID string)

func (s *Server) requirePost(w http.ResponseWriter, r *http.Request, sessionID string, h sessionHandlerFunc) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	h(w, r, sessionID)
}

func (s *Server) requirePut(w http.ResponseWriter, r *http.Request, sessionID string, h sessionHandlerFunc) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	h(w, r, sessionID)
}

// createSessionHandler handles POST /sessions.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
	}
	sess, err := s.orch.CreateSession(r.Context(), req)
	if err != nil {
		slog.Error("Server.createSessionHandler: create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create session"))
		return
	}
	slog.Info("Server.createSessionHandler: session created", "session", sess.ID, "seeded", sess.Prefill != nil)
	writeJSONResponse(w, http.StatusCreated, models.Success(sess))
}

// getSessionHandler handles GET /sessions/{id}.
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := s.orch.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
			return
		}
		slog.Error("Server.getSessionHandler: fetch failed", "error", err, "session", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// advanceHandler handles POST /sessions/{id}/advance.
func (s *Server) advanceHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := s.orch.Advance(r.Context(), sessionID)
	if err != nil {
		slog.Warn("Server.advanceHandler: advance rejected", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// retreatHandler handles POST /sessions/{id}/retreat.
func (s *Server) retreatHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := s.orch.Retreat(r.Context(), sessionID)
	if err != nil {
		slog.Warn("Server.retreatHandler: retreat rejected", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// orderInfoHandler handles PUT /sessions/{id}/order-info.
func (s *Server) orderInfoHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	var upd models.OrderInfoUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		slog.Warn("Server.orderInfoHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	sess, err := s.orch.UpdateOrderInfo(r.Context(), sessionID, upd)
	if err != nil {
		slog.Warn("Server.orderInfoHandler: update rejected", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// participantHandler handles PUT /sessions/{id}/participant.
func (s *Server) participantHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	var upd models.ParticipantUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		slog.Warn("Server.participantHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	sess, err := s.orch.UpdateParticipant(r.Context(), sessionID, upd)
	if err != nil {
		slog.Warn("Server.participantHandler: update rejected", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// communicationHandler handles PUT /sessions/{id}/communication.
func (s *Server) communicationHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	var upd models.CommunicationUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		slog.Warn("Server.communicationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	sess, err := s.orch.UpdateCommunication(r.Context(), sessionID, upd)
	if err != nil {
		slog.Warn("Server.communicationHandler: update rejected", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// sitesHandler handles POST /sessions/{id}/sites.
func (s *Server) sitesHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	outcome, err := s.orch.RequestSiteInformation(r.Context(), sessionID)
	if err != nil {
		slog.Warn("Server.sitesHandler: site request failed", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	if outcome.LinkDispatched {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(outcome.Message, outcome))
		return
	}
	slog.Info("Server.sitesHandler: sites returned", "session", sessionID,
		"case_number", outcome.CaseNumber, "site_count", len(outcome.Sites))
	writeJSONResponse(w, http.StatusOK, models.Success(outcome))
}

// pincodeHandler handles POST /sessions/{id}/sites/pincode.
func (s *Server) pincodeHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req models.PincodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.pincodeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	outcome, err := s.orch.ResubmitWithCorrectedZip(r.Context(), sessionID, req)
	if err != nil {
		slog.Warn("Server.pincodeHandler: pincode resubmit failed", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(outcome))
}

// selectSiteHandler handles PUT /sessions/{id}/site.
func (s *Server) selectSiteHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	var sel models.SiteSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		slog.Warn("Server.selectSiteHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	sess, err := s.orch.SelectSite(r.Context(), sessionID, sel)
	if err != nil {
		slog.Warn("Server.selectSiteHandler: selection rejected", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// submitHandler handles POST /sessions/{id}/submit.
func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	outcome, err := s.orch.SubmitFinalOrder(r.Context(), sessionID)
	if err != nil {
		slog.Warn("Server.submitHandler: submit failed", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	slog.Info("Server.submitHandler: order submitted", "session", sessionID, "case_number", outcome.CaseNumber)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(outcome.Message, outcome))
}

// resetHandler handles POST /sessions/{id}/reset.
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := s.orch.HardReset(r.Context(), sessionID)
	if err != nil {
		slog.Warn("Server.resetHandler: reset failed", "error", err, "session", sessionID)
		writeWizardError(w, err)
		return
	}
	slog.Info("Server.resetHandler: session reset", "session", sessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset successfully", sess))
}

// companiesHandler handles GET /companies.
func (s *Server) companiesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.companiesHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	companies, err := s.orch.Companies(r.Context())
	if err != nil {
		slog.Error("Server.companiesHandler: fetch failed", "error", err)
		var be *backend.BackendError
		if errors.As(err, &be) {
			writeJSONResponse(w, http.StatusBadGateway, models.Error(be.Message))
			return
		}
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch companies"))
		return
	}
	slog.Debug("Server.companiesHandler: companies fetched", "count", len(companies))
	writeJSONResponse(w, http.StatusOK, models.Success(companies))
}

// ordersHandler returns submitted order receipts (GET /orders).
func (s *Server) ordersHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.ordersHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	orders, err := s.orch.Orders(r.Context())
	if err != nil {
		slog.Error("Server.ordersHandler: fetch failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch orders"))
		return
	}
	slog.Debug("Server.ordersHandler: orders fetched", "count", len(orders))
	writeJSONResponse(w, http.StatusOK, models.Success(orders))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	// The store is the only hard dependency worth probing here; the lab
	// backend is reached lazily and its failures surface per-request.
	if _, err := s.st.ListSessions(); err != nil {
		slog.Warn("Health check: store probe failed", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to reach session store"
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, healthData)
}
