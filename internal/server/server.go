package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/location"
	"seo-opportunity/internal/middleware"
	"seo-opportunity/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type StateCityResolver interface {
	ResolveStateCity(ctx context.Context, state, city string) (location.Match, error)
}

type Server struct {
	analysis    *service.AnalysisService
	competitors *service.CompetitorService
	locations   StateCityResolver
	gatherer    prometheus.Gatherer
	logger      zerolog.Logger
}

func NewServer(
	analysis *service.AnalysisService,
	competitors *service.CompetitorService,
	locations StateCityResolver,
	gatherer prometheus.Gatherer,
	logger zerolog.Logger,
) *Server {
	return &Server{
		analysis:    analysis,
		competitors: competitors,
		locations:   locations,
		gatherer:    gatherer,
		logger:      logger,
	}
}

// Routes returns the API mux without CORS, which the caller adds.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	mux.HandleFunc("POST /api/reports/{id}/email-sent", s.handleMarkEmailSent)
	mux.HandleFunc("POST /api/location-code", s.handleLocationCode)
	mux.HandleFunc("POST /api/competitors/detect", s.handleDetectCompetitors)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return middleware.RequestID(s.logger)(middleware.Recover(mux))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.analysis.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	stored, err := s.analysis.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleMarkEmailSent(w http.ResponseWriter, r *http.Request) {
	if err := s.analysis.MarkEmailSent(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reports, err := s.analysis.ListReports(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

type locationCodeRequest struct {
	State string `json:"state"`
	City  string `json:"city"`
}

type matchedLocation struct {
	State     string `json:"state"`
	StateCode int    `json:"state_code"`
	City      string `json:"city,omitempty"`
	CityCode  int    `json:"city_code,omitempty"`
}

type locationCodeResponse struct {
	LocationCode int             `json:"location_code"`
	Matched      matchedLocation `json:"matched"`
	Type         string          `json:"type"`
	Source       string          `json:"source"`
}

func (s *Server) handleLocationCode(w http.ResponseWriter, r *http.Request) {
	var req locationCodeRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := s.locations.ResolveStateCity(r.Context(), req.State, req.City)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := locationCodeResponse{
		LocationCode: m.Location.Code,
		Type:         m.Type,
		Source:       "dataforseo",
	}
	if m.State != nil {
		resp.Matched.State = m.State.Name
		resp.Matched.StateCode = m.State.Code
	}
	if m.City != nil {
		resp.Matched.City = m.City.Name
		resp.Matched.CityCode = m.City.Code
	}
	writeJSON(w, http.StatusOK, resp)
}

type detectRequest struct {
	BusinessURL  string `json:"businessUrl"`
	BusinessType string `json:"businessType"`
	Location     string `json:"location"`
	Scope        string `json:"scope"`
}

func (s *Server) handleDetectCompetitors(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decode(w, r, &req) {
		return
	}
	scope, err := domain.ParseScope(req.Scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	competitors, err := s.competitors.Detect(r.Context(), service.DetectRequest{
		BusinessURL:  req.BusinessURL,
		BusinessType: req.BusinessType,
		Location:     req.Location,
		Scope:        scope,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "competitors": competitors})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, &domain.ValidationError{Field: "body", Reason: strings.TrimPrefix(err.Error(), "json: ")})
		return false
	}
	return true
}

type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: middleware.GetRequestID(r.Context())}
	status := http.StatusInternalServerError

	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		upstream   *domain.UpstreamError
		config     *domain.ConfigurationError
	)
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		resp.Suggestion = notFound.Suggestion
	case errors.As(err, &config):
		status = http.StatusInternalServerError
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
