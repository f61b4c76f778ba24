package fxlots

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ===== HTTP adapter =====

const maxBody = 5 << 20

type Server struct {
	svc *LedgerService
	mux *http.ServeMux
}

func NewServer(svc *LedgerService) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Both ledgers
	s.mux.HandleFunc("/summary", s.handleDashboard) // GET
	s.mux.HandleFunc("/history", s.handleHistory)   // GET
	s.mux.HandleFunc("/export", s.handleExport)     // GET
	s.mux.HandleFunc("/import", s.handleImport)     // POST
	s.mux.HandleFunc("/reset", s.handleReset)       // POST
	s.mux.HandleFunc("/theme", s.handleTheme)       // GET, PUT

	// One subtree per currency ledger
	s.mux.HandleFunc("/usd/", s.handleLedgerSub)
	s.mux.HandleFunc("/jpy/", s.handleLedgerSub)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.mux.ServeHTTP(w, r)
}

/* ======= Global endpoints ======= */

// GET /summary
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out, err := s.svc.Dashboard(r.Context())
	if err != nil {
		httpFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /history?currency=&type=&from=&to=&sort=&order=asc|desc&format=json|csv
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	f, err := historyFilter(r)
	if err != nil {
		httpFail(w, err)
		return
	}
	txs, err := s.svc.History(r.Context(), f)
	if err != nil {
		httpFail(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, txs)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="fx-history.csv"`)
		w.WriteHeader(http.StatusOK)
		_ = WriteHistoryCSV(w, txs)
	default:
		httpError(w, http.StatusBadRequest, "invalid format (use json|csv)")
	}
}

func historyFilter(r *http.Request) (HistoryFilter, error) {
	q := r.URL.Query()
	var f HistoryFilter
	var err error
	if v := q.Get("currency"); v != "" {
		if f.Currency, err = ParseCurrency(v); err != nil {
			return f, err
		}
	}
	switch t := TxType(strings.ToLower(q.Get("type"))); t {
	case "", TxPurchase, TxSale:
		f.Type = t
	default:
		return f, fmt.Errorf("%w: invalid type %q (use purchase|sale)", ErrInvalidInput, t)
	}
	if v := q.Get("from"); v != "" {
		if f.From, err = ParseDate(v); err != nil {
			return f, fmt.Errorf("%w: from: %v", ErrInvalidInput, err)
		}
	}
	if v := q.Get("to"); v != "" {
		if f.To, err = ParseDate(v); err != nil {
			return f, fmt.Errorf("%w: to: %v", ErrInvalidInput, err)
		}
	}
	if f.Sort, err = ParseHistorySort(q.Get("sort")); err != nil {
		return f, err
	}
	f.Desc, err = parseOrder(q.Get("order"))
	return f, err
}

// parseOrder reads asc|desc; empty is desc, matching the stored order.
func parseOrder(s string) (desc bool, err error) {
	switch s {
	case "", "desc":
		return true, nil
	case "asc":
		return false, nil
	default:
		return false, fmt.Errorf("%w: invalid order (use asc|desc)", ErrInvalidInput)
	}
}

// GET /export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	b, err := s.svc.Export(r.Context())
	if err != nil {
		httpFail(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="fx-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// POST /import
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := s.svc.Import(r.Context(), body); err != nil {
		httpFail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.svc.Reset(r.Context()); err != nil {
		httpFail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type themeDTO struct {
	Theme Theme `json:"theme"`
}

// GET|PUT /theme
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t, err := s.svc.Theme(r.Context())
		if err != nil {
			httpFail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, themeDTO{Theme: t})
	case http.MethodPut:
		var dto themeDTO
		if !decodeBody(w, r, &dto) {
			return
		}
		if err := s.svc.SetTheme(r.Context(), dto.Theme); err != nil {
			httpFail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dto)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

/* ======= Currency subtree ======= */

func (s *Server) handleLedgerSub(w http.ResponseWriter, r *http.Request) {
	// Path is /{usd|jpy}/...
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	c, err := ParseCurrency(parts[0])
	if err != nil || len(parts) < 2 {
		http.NotFound(w, r)
		return
	}

	switch {
	// /{ccy}/summary
	case len(parts) == 2 && parts[1] == "summary":
		if r.Method != http.MethodGet {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		out, err := s.svc.Summary(r.Context(), c)
		if err != nil {
			httpFail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)

	// /{ccy}/lots?open=true&sort=&order=
	case len(parts) == 2 && parts[1] == "lots":
		switch r.Method {
		case http.MethodPost:
			var form LotForm
			if !decodeBody(w, r, &form) {
				return
			}
			out, err := s.svc.CreateLot(r.Context(), c, form)
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, out)
		case http.MethodGet:
			b, err := s.svc.Book(r.Context(), c)
			if err != nil {
				httpFail(w, err)
				return
			}
			q := r.URL.Query()
			lots := b.Lots
			if q.Get("open") == "true" {
				lots = b.Holdings()
			}
			desc, err := parseOrder(q.Get("order"))
			if err == nil {
				lots, err = SortLots(lots, q.Get("sort"), desc)
			}
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, lots)
		default:
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	// /{ccy}/lots/{id}
	case len(parts) == 3 && parts[1] == "lots":
		id := parts[2]
		switch r.Method {
		case http.MethodGet:
			out, err := s.svc.Lot(r.Context(), c, id)
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		case http.MethodPut:
			var form LotForm
			if !decodeBody(w, r, &form) {
				return
			}
			out, err := s.svc.EditLot(r.Context(), c, id, form)
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		case http.MethodDelete:
			if err := s.svc.DeleteLot(r.Context(), c, id); err != nil {
				httpFail(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	// /{ccy}/sales?lot=&sort=&order=
	case len(parts) == 2 && parts[1] == "sales":
		switch r.Method {
		case http.MethodPost:
			var form SaleForm
			if !decodeBody(w, r, &form) {
				return
			}
			out, err := s.svc.CreateSale(r.Context(), c, form)
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, out)
		case http.MethodGet:
			b, err := s.svc.Book(r.Context(), c)
			if err != nil {
				httpFail(w, err)
				return
			}
			q := r.URL.Query()
			sales := b.Sales
			if lot := q.Get("lot"); lot != "" {
				sales = b.SalesOf(lot)
			}
			desc, err := parseOrder(q.Get("order"))
			if err == nil {
				sales, err = SortSales(sales, q.Get("sort"), desc)
			}
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, sales)
		default:
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	// /{ccy}/sales/{id}
	case len(parts) == 3 && parts[1] == "sales":
		id := parts[2]
		switch r.Method {
		case http.MethodGet:
			out, err := s.svc.Sale(r.Context(), c, id)
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		case http.MethodPut:
			var form SaleForm
			if !decodeBody(w, r, &form) {
				return
			}
			out, err := s.svc.EditSale(r.Context(), c, id, form)
			if err != nil {
				httpFail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		case http.MethodDelete:
			if err := s.svc.DeleteSale(r.Context(), c, id); err != nil {
				httpFail(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	default:
		http.NotFound(w, r)
	}
}

/* ======= small helpers ======= */

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return false
	}
	return true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidImportFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidReduction),
		errors.Is(err, ErrReferencedByOpenSales),
		errors.Is(err, ErrInsufficientQuantity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func httpFail(w http.ResponseWriter, err error) {
	httpError(w, statusOf(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  http.StatusText(status),
		"detail": msg,
	})
}
