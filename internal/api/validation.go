package api

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// symbolRe accepts plain symbols ("AAPL"), class shares ("BRK.B") and
// exchange-prefixed symbols ("BCBA:GGAL").
var symbolRe = regexp.MustCompile(`^([A-Z]{1,6}:)?[A-Z]{1,5}(\.[A-Z]{1,2})?$`)

func newValidator() *validator.Validate {
	v := validator.New()
	// Symbols are upper-trimmed before validation, so the pattern only needs
	// the canonical form.
	must(v.RegisterValidation("ticker_symbol", func(fl validator.FieldLevel) bool {
		return symbolRe.MatchString(fl.Field().String())
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// createTickerRequest is the POST /api/tickers payload.
type createTickerRequest struct {
	Symbol   string `json:"symbol" validate:"required,max=20,ticker_symbol"`
	Name     string `json:"name" validate:"max=100"`
	Sector   string `json:"sector" validate:"max=100"`
	IsActive *bool  `json:"is_active"`
}

func (r *createTickerRequest) normalize() {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Name = strings.TrimSpace(r.Name)
	r.Sector = strings.TrimSpace(r.Sector)
}

// listTickersQuery captures GET /api/tickers query parameters.
type listTickersQuery struct {
	Page      int    `validate:"min=1"`
	PerPage   int    `validate:"min=1,max=100"`
	IsActive  *bool
	Sector    string `validate:"max=100"`
	SortBy    string `validate:"oneof=symbol name sector last_sync created_at"`
	SortOrder string `validate:"oneof=asc desc"`
}

func parseListQuery(get func(string) string) (listTickersQuery, error) {
	q := listTickersQuery{
		Page:      1,
		PerPage:   20,
		SortBy:    "symbol",
		SortOrder: "asc",
	}
	if v := get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errBadParam("page")
		}
		q.Page = n
	}
	if v := get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errBadParam("per_page")
		}
		q.PerPage = n
	}
	if v := get("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errBadParam("is_active")
		}
		q.IsActive = &b
	}
	if v := get("sector"); v != "" {
		q.Sector = v
	}
	if v := get("sort_by"); v != "" {
		q.SortBy = v
	}
	if v := get("sort_order"); v != "" {
		q.SortOrder = strings.ToLower(v)
	}
	return q, nil
}

// scanQuery captures GET /api/scan query parameters. Unknown strategy names
// are rejected here; the engine below this layer simply yields no result for
// them.
type scanQuery struct {
	Strategy string `validate:"oneof=rsi_macd 3_emas"`
}

type paramError struct{ name string }

func (e paramError) Error() string { return "invalid value for " + e.name }

func errBadParam(name string) error { return paramError{name: name} }
