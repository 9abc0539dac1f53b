package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/models"
	"github.com/bobmcallan/iexgate/internal/services/price"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleSymbols handles GET /iex/symbols.
func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbols, err := s.app.PriceService.ListSymbols(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, symbols)
}

// handleLastTradedPrice handles GET /iex/lastTradedPrice?symbols=A,B.
func (s *Server) handleLastTradedPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbols := splitSymbols(r.URL.Query()["symbols"])

	prices, err := s.app.PriceService.LastTradedPrice(r.Context(), symbols)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, prices)
}

// handleHistoricalPrice handles GET /iex/historicalPrice?symbol=S&date=YYYYMMDD|range=R.
func (s *Server) handleHistoricalPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	symbol := strings.TrimSpace(q.Get("symbol"))
	if symbol == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "Symbol is required", "invalid_argument")
		return
	}

	var date *time.Time
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := models.ParseCompactDate(raw)
		if err != nil {
			WriteErrorWithCode(w, http.StatusBadRequest, price.MsgInvalidDate, "invalid_argument")
			return
		}
		date = &d
	}

	var rng *string
	if q.Has("range") {
		v := q.Get("range")
		rng = &v
	}

	prices, err := s.app.PriceService.HistoricalPrice(r.Context(), symbol, date, rng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, prices)
}

// splitSymbols flattens repeated and comma-separated values, dropping blanks.
func splitSymbols(values []string) []string {
	symbols := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				symbols = append(symbols, part)
			}
		}
	}
	return symbols
}

// writeServiceError maps service errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *models.InvalidArgumentError
	var upstream *models.UpstreamError

	switch {
	case errors.As(err, &invalid):
		WriteErrorWithCode(w, http.StatusBadRequest, invalid.Message, "invalid_argument")
	case errors.As(err, &upstream):
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Upstream request failed")
		WriteErrorWithCode(w, http.StatusBadGateway, upstream.Error(), "upstream_failure")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
