package server

import "net/http"

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	paths := s.app.Config.Paths

	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Market data
	mux.HandleFunc(paths.Symbols, s.handleSymbols)
	mux.HandleFunc(paths.LastTradedPrice, s.handleLastTradedPrice)
	mux.HandleFunc(paths.HistoricalPrice, s.handleHistoricalPrice)
}
