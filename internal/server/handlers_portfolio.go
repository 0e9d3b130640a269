package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/portfolio"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportBytes  = 10 << 20
)

// portfolioResponse is the dashboard payload: the portfolio with its holdings
// filtered per the query, whole-portfolio display totals and the sector list
// for the filter control.
type portfolioResponse struct {
	Portfolio models.Portfolio `json:"portfolio"`
	Totals    portfolio.Totals `json:"totals"`
	Sectors   []string         `json:"sectors"`
	Count     int              `json:"count"`
}

func (s *Server) currency() string {
	return s.app.Config.Portfolio.Currency
}

// handlePortfolio handles GET /api/portfolio?search=&sector=&sort=&order=
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	query := interfaces.HoldingQuery{
		Search: q.Get("search"),
		Sector: q.Get("sector"),
		SortBy: q.Get("sort"),
		Order:  strings.ToLower(q.Get("order")),
	}
	if query.SortBy != "" && !slices.Contains(portfolio.SortKeys(), query.SortBy) {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown sort field %q", query.SortBy))
		return
	}
	if query.Order != "" && query.Order != "asc" && query.Order != "desc" {
		WriteError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	svc := s.app.PortfolioService
	p := svc.Snapshot()
	totals := portfolio.FormatTotals(p, s.currency())
	p.Holdings = svc.Query(query)

	WriteJSON(w, http.StatusOK, portfolioResponse{
		Portfolio: p,
		Totals:    totals,
		Sectors:   svc.SectorNames(),
		Count:     len(p.Holdings),
	})
}

// handlePortfolioSectors handles GET /api/portfolio/sectors
func (s *Server) handlePortfolioSectors(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.PortfolioService.Sectors())
}

// handleSectorChart handles GET /api/portfolio/sectors/chart
func (s *Server) handleSectorChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	png, err := portfolio.RenderSectorChart(s.app.PortfolioService.Sectors())
	if err != nil {
		WriteErrorWithDetails(w, http.StatusUnprocessableEntity, "Cannot render sector chart", err)
		return
	}
	NoStore(w)
	WriteBinary(w, "image/png", "", png)
}

// handlePortfolioRefresh handles POST /api/portfolio/refresh
func (s *Server) handlePortfolioRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	p, err := s.app.PortfolioService.Refresh(r.Context())
	if err != nil {
		WriteErrorWithDetails(w, http.StatusBadGateway, "Failed to refresh portfolio", err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handlePortfolioExport handles GET /api/portfolio/export
func (s *Server) handlePortfolioExport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	svc := s.app.PortfolioService
	p := svc.Snapshot()
	data, err := portfolio.ExportXLSX(p, svc.Sectors())
	if err != nil {
		WriteErrorWithDetails(w, http.StatusInternalServerError, "Failed to export portfolio", err)
		return
	}

	name := p.Name
	if name == "" {
		name = "portfolio"
	}
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("20060102"))
	WriteBinary(w, xlsxContentType, filename, data)
}

// handlePortfolioImport handles POST /api/portfolio/import. The workbook is
// read from the "file" multipart field, or from the raw body.
func (s *Server) handlePortfolioImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			WriteErrorWithDetails(w, http.StatusBadRequest, "Missing workbook file", err)
			return
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		WriteErrorWithDetails(w, http.StatusBadRequest, "Failed to read workbook", err)
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return
	}

	holdings, err := portfolio.ImportXLSX(bytes.NewReader(data), time.Now())
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, portfolio.ErrNoHoldings) {
			status = http.StatusUnprocessableEntity
		}
		WriteErrorWithDetails(w, status, "Invalid workbook", err)
		return
	}

	p := s.app.PortfolioService.ReplaceHoldings(holdings)
	WriteJSON(w, http.StatusOK, p)
}

// handleRecommendations handles GET /api/recommendations
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.PortfolioService.Recommendations())
}
