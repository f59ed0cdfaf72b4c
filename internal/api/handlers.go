package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"scannerpro/internal/model"
	"scannerpro/internal/store"
	"scannerpro/internal/syncer"
)

// seedSymbols is the starter watch-list installed by POST /api/seed.
var seedSymbols = []string{"BRK.B", "JPM", "FDX", "GLW", "GS"}

type tickerView struct {
	ID       int64  `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Sector   string `json:"sector,omitempty"`
	IsActive bool   `json:"is_active"`
	LastSync string `json:"last_sync"`
}

func toTickerView(t *model.Ticker) tickerView {
	return tickerView{
		ID:       t.ID,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Sector:   t.Sector,
		IsActive: t.IsActive,
		LastSync: t.LastSyncString(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTickers(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query().Get)
	if err == nil {
		err = s.validate.Struct(q)
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tickers, total, err := s.store.ListTickers(r.Context(), store.ListOptions{
		Page:      q.Page,
		PerPage:   q.PerPage,
		IsActive:  q.IsActive,
		Sector:    q.Sector,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	})
	if err != nil {
		s.serverError(w, "list tickers", err)
		return
	}

	items := make([]tickerView, 0, len(tickers))
	for i := range tickers {
		items = append(items, toTickerView(&tickers[i]))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":    items,
		"total":    total,
		"page":     q.Page,
		"per_page": q.PerPage,
	})
}

func (s *Server) handleCreateTicker(w http.ResponseWriter, r *http.Request) {
	var req createTickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	t := &model.Ticker{
		Symbol:   req.Symbol,
		Name:     req.Name,
		Sector:   req.Sector,
		IsActive: true,
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if err := s.store.CreateTicker(r.Context(), t); err != nil {
		if errors.Is(err, store.ErrDuplicateSymbol) {
			s.writeError(w, http.StatusBadRequest, "Ticker already exists")
			return
		}
		s.serverError(w, "create ticker", err)
		return
	}

	s.metrics.TickersAdded.Inc()
	s.refreshGauges(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Ticker added",
		"id":      t.ID,
	})
}

func (s *Server) handleGetTicker(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ticker id")
		return
	}

	t, err := s.store.TickerByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "ticker not found")
			return
		}
		s.serverError(w, "get ticker", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTickerView(t))
}

func (s *Server) handleDeleteTicker(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ticker id")
		return
	}

	// Price rows go with the ticker via the storage cascade.
	if err := s.store.DeleteTicker(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "ticker not found")
			return
		}
		s.serverError(w, "delete ticker", err)
		return
	}

	s.metrics.TickersDeleted.Inc()
	s.refreshGauges(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Ticker deleted"})
}

func (s *Server) handleDeleteEmptyTickers(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.DeleteEmptyTickers(r.Context())
	if err != nil {
		s.serverError(w, "delete empty tickers", err)
		return
	}
	s.metrics.TickersDeleted.Add(float64(count))
	s.refreshGauges(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Empty tickers removed: %d", count),
		"count":   count,
	})
}

func (s *Server) handleSeedTickers(w http.ResponseWriter, r *http.Request) {
	count := 0
	for _, sym := range seedSymbols {
		t := &model.Ticker{Symbol: sym, IsActive: true}
		err := s.store.CreateTicker(r.Context(), t)
		if errors.Is(err, store.ErrDuplicateSymbol) {
			continue
		}
		if err != nil {
			s.serverError(w, "seed tickers", err)
			return
		}
		count++
	}
	s.metrics.TickersAdded.Add(float64(count))
	s.refreshGauges(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Seeds added: %d", count),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	results := s.syncer.SyncAll(r.Context())
	s.refreshGauges(r.Context())
	if results == nil {
		results = []syncer.Result{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	q := scanQuery{Strategy: r.URL.Query().Get("strategy")}
	if q.Strategy == "" {
		q.Strategy = "rsi_macd"
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, http.StatusBadRequest,
			"strategy must be one of: "+strings.Join(s.engine.Strategies(), ", "))
		return
	}

	// A symbol parameter narrows the scan to that one ticker.
	if symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol"))); symbol != "" {
		t, err := s.store.TickerBySymbol(r.Context(), symbol)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.writeError(w, http.StatusNotFound, "ticker not found")
				return
			}
			s.serverError(w, "scan symbol", err)
			return
		}
		rec, err := s.engine.Signals(r.Context(), t, q.Strategy)
		if err != nil {
			s.serverError(w, "scan symbol", err)
			return
		}
		records := []*model.SignalRecord{}
		if rec != nil {
			records = append(records, rec)
		}
		s.writeJSON(w, http.StatusOK, records)
		return
	}

	records, err := s.engine.ScanAll(r.Context(), q.Strategy)
	if err != nil {
		s.serverError(w, "scan", err)
		return
	}
	if records == nil {
		records = []*model.SignalRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

// validationMessage flattens a validator error into a single user-facing
// message.
func validationMessage(err error) string {
	return "validation failed: " + err.Error()
}
