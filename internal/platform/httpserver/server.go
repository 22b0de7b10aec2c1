package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	councilengine "conclave/contexts/governance/council-engine"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	governancehttp "conclave/contexts/governance/council-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance councilengine.Module
}

func New(governance councilengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/governance/v1/votes", s.handleCreateVote)
	s.mux.HandleFunc("GET /api/governance/v1/votes", s.handleListVotes)
	s.mux.HandleFunc("GET /api/governance/v1/votes/open", s.handleListOpenVotes)
	s.mux.HandleFunc("GET /api/governance/v1/votes/{vote_id}", s.handleGetVote)
	s.mux.HandleFunc("POST /api/governance/v1/votes/{vote_id}/ballots", s.handleCastBallot)
	s.mux.HandleFunc("POST /api/governance/v1/votes/{vote_id}/veto", s.handleCastVeto)
	s.mux.HandleFunc("POST /api/governance/v1/votes/{vote_id}/close", s.handleCloseVote)
	s.mux.HandleFunc("POST /api/governance/v1/votes/{vote_id}/outcome", s.handleSubmitOutcome)
	s.mux.HandleFunc("GET /api/governance/v1/votes/{vote_id}/vetoes", s.handleListVetoes)
	s.mux.HandleFunc("POST /api/governance/v1/votes/expire", s.handleExpireOverdue)
	s.mux.HandleFunc("GET /api/governance/v1/veto-authority", s.handleVetoAuthority)

	s.mux.HandleFunc("GET /api/governance/v1/dissent", s.handleListDissent)
	s.mux.HandleFunc("GET /api/governance/v1/dissent/{vote_id}", s.handleGetDissent)

	s.mux.HandleFunc("POST /api/governance/v1/emergency", s.handleCreateEmergencyVote)
	s.mux.HandleFunc("POST /api/governance/v1/emergency/{vote_id}/ballots", s.handleCastEmergencyBallot)
	s.mux.HandleFunc("POST /api/governance/v1/emergency/{vote_id}/overturn", s.handleRequestOverturn)
	s.mux.HandleFunc("POST /api/governance/v1/overturns/{vote_id}/complete", s.handleCompleteOverturn)
	s.mux.HandleFunc("GET /api/governance/v1/emergency/overturnable", s.handleListOverturnable)
}

func (s *Server) handleCreateVote(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.CreateVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CreateVoteHandler(r.Context(), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListVotesHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOpenVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListOpenVotesHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVote(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.GetVoteHandler(r.Context(), r.PathValue("vote_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CastBallotHandler(r.Context(), r.PathValue("vote_id"), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVeto(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.CastVetoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CastVetoHandler(r.Context(), r.PathValue("vote_id"), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseVote(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.CloseVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CloseVoteHandler(r.Context(), r.PathValue("vote_id"), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitOutcome(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.SubmitOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.SubmitOutcomeHandler(r.Context(), r.PathValue("vote_id"), req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVetoes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListVetoesHandler(r.Context(), r.PathValue("vote_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExpireOverdue(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ExpireOverdueHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVetoAuthority(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.governance.Handler.VetoAuthorityHandler(r.Context()))
}

func (s *Server) handleListDissent(w http.ResponseWriter, r *http.Request) {
	if domain := strings.TrimSpace(r.URL.Query().Get("domain")); domain != "" {
		resp, err := s.governance.Handler.DissentByDomainHandler(r.Context(), domain)
		if err != nil {
			writeGovernanceDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp, err := s.governance.Handler.ListDissentReportsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDissent(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.GetDissentReportHandler(r.Context(), r.PathValue("vote_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateEmergencyVote(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.CreateEmergencyVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CreateEmergencyVoteHandler(r.Context(), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastEmergencyBallot(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CastEmergencyVoteHandler(r.Context(), r.PathValue("vote_id"), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequestOverturn(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.RequestOverturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.RequestOverturnHandler(r.Context(), r.PathValue("vote_id"), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCompleteOverturn(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.CompleteOverturnHandler(r.Context(), r.PathValue("vote_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOverturnable(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListOverturnableHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrVoteNotFound),
		errors.Is(err, domainerrors.ErrMemberNotFound),
		errors.Is(err, domainerrors.ErrDissentReportNotFound),
		errors.Is(err, domainerrors.ErrEmergencyMetaNotFound):
		writeGovernanceError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domainerrors.ErrBallotAlreadyCast),
		errors.Is(err, domainerrors.ErrOverturnExists),
		errors.Is(err, domainerrors.ErrVoteNotOpen),
		errors.Is(err, domainerrors.ErrVoteStillOpen),
		errors.Is(err, domainerrors.ErrOverturnNotClosed),
		errors.Is(err, domainerrors.ErrNotOverturnable):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domainerrors.ErrMemberNotEligible),
		errors.Is(err, domainerrors.ErrNotPanelMember),
		errors.Is(err, domainerrors.ErrVetoNotAuthorized):
		writeGovernanceError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domainerrors.ErrDeadlinePassed),
		errors.Is(err, domainerrors.ErrOverturnWindowClosed):
		writeGovernanceError(w, http.StatusGone, "window_closed", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidThresholdClass),
		errors.Is(err, domainerrors.ErrInvalidBallotOption),
		errors.Is(err, domainerrors.ErrInvalidCloseStatus),
		errors.Is(err, domainerrors.ErrInvalidPanelSize),
		errors.Is(err, domainerrors.ErrInvalidOutcomeRating),
		errors.Is(err, domainerrors.ErrNotEmergencyVote),
		errors.Is(err, domainerrors.ErrInvalidVoteInput):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
