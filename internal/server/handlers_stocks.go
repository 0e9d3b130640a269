package server

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/folio/internal/services/quote"
)

// handleStocks handles GET /api/stocks?symbols=A,B,C
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	NoStore(w)

	symbols := quote.NormalizeSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		WriteError(w, http.StatusBadRequest, "No symbols provided")
		return
	}

	data, err := s.app.StockService.GetStocks(r.Context(), symbols)
	if errors.Is(err, quote.ErrNoSymbols) {
		WriteError(w, http.StatusBadRequest, "No symbols provided")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Strs("symbols", symbols).Msg("Stock data request failed")
		WriteErrorWithDetails(w, http.StatusInternalServerError, "Failed to fetch stock data", err)
		return
	}

	WriteJSON(w, http.StatusOK, data)
}
