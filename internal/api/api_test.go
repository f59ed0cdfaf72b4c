package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scannerpro/internal/metrics"
	"scannerpro/internal/model"
	"scannerpro/internal/store"
	"scannerpro/internal/syncer"
)

type stubSyncer struct {
	results []syncer.Result
}

func (s *stubSyncer) SyncTicker(context.Context, *model.Ticker) (int, error) { return 0, nil }
func (s *stubSyncer) SyncAll(context.Context) []syncer.Result               { return s.results }

type stubEngine struct {
	records []*model.SignalRecord
	signal  *model.SignalRecord
	scanned []string
}

func (e *stubEngine) Signals(_ context.Context, _ *model.Ticker, strategy string) (*model.SignalRecord, error) {
	e.scanned = append(e.scanned, strategy)
	return e.signal, nil
}

func (e *stubEngine) ScanAll(_ context.Context, strategy string) ([]*model.SignalRecord, error) {
	e.scanned = append(e.scanned, strategy)
	return e.records, nil
}

func (e *stubEngine) Strategies() []string {
	return []string{"3_emas", "rsi_macd"}
}

func newTestServer(t *testing.T) (*Server, store.Store, *stubSyncer, *stubEngine) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sy := &stubSyncer{}
	en := &stubEngine{}
	return NewServer(st, sy, en, zap.NewNop(), metrics.New()), st, sy, en
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestHealth(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	w, body := doJSON(t, s.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateTickerNormalizesSymbol(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	w, body := doJSON(t, s.Router(), http.MethodPost, "/api/tickers",
		map[string]interface{}{"symbol": "  brk.b ", "name": "Berkshire"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ticker added", body["message"])

	id := int64(body["id"].(float64))
	tk, err := st.TickerByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "BRK.B", tk.Symbol)
	assert.True(t, tk.IsActive)
}

func TestCreateTickerDuplicate(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	req := map[string]interface{}{"symbol": "JPM"}
	w, _ := doJSON(t, s.Router(), http.MethodPost, "/api/tickers", req)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, s.Router(), http.MethodPost, "/api/tickers", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Ticker already exists", body["error"])
}

func TestCreateTickerRejectsInvalidSymbol(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	for _, symbol := range []string{"", "123", "TOOLONGSYM", "AA..B", "GGAL$"} {
		w, body := doJSON(t, s.Router(), http.MethodPost, "/api/tickers",
			map[string]interface{}{"symbol": symbol})
		assert.Equal(t, http.StatusBadRequest, w.Code, "symbol %q", symbol)
		assert.Contains(t, body, "error")
	}
}

func TestCreateTickerAcceptsExchangePrefix(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	w, _ := doJSON(t, s.Router(), http.MethodPost, "/api/tickers",
		map[string]interface{}{"symbol": "BCBA:GGAL"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListTickersPagination(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, st.CreateTicker(context.Background(),
			&model.Ticker{Symbol: fmt.Sprintf("SYM%c", 'A'+i), IsActive: true}))
	}

	w, body := doJSON(t, s.Router(), http.MethodGet, "/api/tickers?page=2&per_page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Len(t, body["items"], 2)
}

func TestListTickersRejectsOversizedPage(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	w, _ := doJSON(t, s.Router(), http.MethodGet, "/api/tickers?per_page=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTicker(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	tk := &model.Ticker{Symbol: "GS", Name: "Goldman Sachs", IsActive: true}
	require.NoError(t, st.CreateTicker(context.Background(), tk))

	w, body := doJSON(t, s.Router(), http.MethodGet, fmt.Sprintf("/api/tickers/%d", tk.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GS", body["symbol"])
	assert.Equal(t, "Goldman Sachs", body["name"])
	assert.Equal(t, "Never", body["last_sync"])

	w, _ = doJSON(t, s.Router(), http.MethodGet, "/api/tickers/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTicker(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	tk := &model.Ticker{Symbol: "FDX", IsActive: true}
	require.NoError(t, st.CreateTicker(context.Background(), tk))

	w, body := doJSON(t, s.Router(), http.MethodDelete, fmt.Sprintf("/api/tickers/%d", tk.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ticker deleted", body["message"])

	w, _ = doJSON(t, s.Router(), http.MethodDelete, fmt.Sprintf("/api/tickers/%d", tk.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeedIsIdempotent(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	w, body := doJSON(t, s.Router(), http.MethodPost, "/api/seed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Seeds added: 5", body["message"])

	w, body = doJSON(t, s.Router(), http.MethodPost, "/api/seed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Seeds added: 0", body["message"])
}

func TestRefreshReturnsResults(t *testing.T) {
	s, _, sy, _ := newTestServer(t)
	sy.results = []syncer.Result{{Symbol: "JPM", NewRecords: 3}}

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var results []syncer.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "JPM", results[0].Symbol)
	assert.Equal(t, 3, results[0].NewRecords)
}

func TestRefreshEmptyIsJSONArray(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestScanDefaultsToRSIMACD(t *testing.T) {
	s, _, _, en := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/scan", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"rsi_macd"}, en.scanned)
}

func TestScanRejectsUnknownStrategy(t *testing.T) {
	s, _, _, en := newTestServer(t)
	w, body := doJSON(t, s.Router(), http.MethodGet, "/api/scan?strategy=bollinger", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "rsi_macd")
	assert.Contains(t, body["error"], "3_emas")
	assert.Empty(t, en.scanned)
}

func TestScanSingleSymbol(t *testing.T) {
	s, st, _, en := newTestServer(t)
	require.NoError(t, st.CreateTicker(context.Background(),
		&model.Ticker{Symbol: "GLW", IsActive: true}))
	en.signal = &model.SignalRecord{Symbol: "GLW", Strategy: "rsi_macd", Price: 41.5}

	req := httptest.NewRequest(http.MethodGet, "/api/scan?symbol=glw", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "GLW", records[0]["symbol"])
	assert.Equal(t, []string{"rsi_macd"}, en.scanned)
}

func TestScanSingleSymbolNotFound(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	w, body := doJSON(t, s.Router(), http.MethodGet, "/api/scan?symbol=NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ticker not found", body["error"])
}

func TestScanSingleSymbolWithoutSignal(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	require.NoError(t, st.CreateTicker(context.Background(),
		&model.Ticker{Symbol: "NEW", IsActive: true}))

	req := httptest.NewRequest(http.MethodGet, "/api/scan?symbol=NEW", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestScanReturnsRecords(t *testing.T) {
	s, _, _, en := newTestServer(t)
	en.records = []*model.SignalRecord{{Symbol: "GLW", Strategy: "3_emas", Price: 41.5}}

	req := httptest.NewRequest(http.MethodGet, "/api/scan?strategy=3_emas", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "GLW", records[0]["symbol"])
	// Absent indicator fields stay out of the payload entirely.
	assert.NotContains(t, records[0], "rsi")
	assert.NotContains(t, records[0], "emas_d_active")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsLabelRequestsByRouteTemplate(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	router := s.Router()

	// Parameterized requests must be counted under the route template, never
	// the raw path, or the label set grows with every distinct id.
	req := httptest.NewRequest(http.MethodDelete, "/api/tickers/123", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	output := w.Body.String()
	assert.Contains(t, output, `endpoint="/api/tickers/{id:[0-9]+}"`)
	assert.NotContains(t, output, `endpoint="/api/tickers/123"`)
}
