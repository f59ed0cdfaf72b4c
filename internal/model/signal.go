package model

import "github.com/moznion/go-optional"

// StreakStatus classifies a contiguous-run check over a condition series.
type StreakStatus string

const (
	StreakActive   StreakStatus = "active"
	StreakInactive StreakStatus = "inactive"
	StreakNone     StreakStatus = "none"
)

// SignalRecord is the output of a strategy evaluation for one ticker.
// Indicator values that never warmed up are absent, not zero. Fields specific
// to a strategy are omitted from the JSON of the other one.
type SignalRecord struct {
	Symbol    string  `json:"symbol"`
	Strategy  string  `json:"strategy"`
	Price     float64 `json:"price"`
	PriceDate string  `json:"price_date"`
	LastSync  string  `json:"last_sync"`

	// rsi_macd
	RSI                 optional.Option[float64] `json:"rsi,omitempty"`
	DateRSI30           optional.Option[string]  `json:"date_rsi_30,omitempty"`
	DaysSinceRSI30      optional.Option[int]     `json:"days_since_rsi_30,omitempty"`
	DateRSIBullish      optional.Option[string]  `json:"date_rsi_bullish,omitempty"`
	DaysSinceRSIBullish optional.Option[int]     `json:"days_since_rsi_bullish,omitempty"`
	MACDStatus          StreakStatus             `json:"macd_status,omitempty"`
	MACDDate            optional.Option[string]  `json:"macd_date,omitempty"`
	MACDDays            optional.Option[int]     `json:"macd_days,omitempty"`

	// 3_emas
	EMAsDailyActive  optional.Option[bool]    `json:"emas_d_active,omitempty"`
	EMAsDailyDate    optional.Option[string]  `json:"date_emas_d,omitempty"`
	EMAsDailyDays    optional.Option[int]     `json:"days_emas_d,omitempty"`
	EMAsWeeklyActive optional.Option[bool]    `json:"emas_w_active,omitempty"`
	EMAsWeeklyDate   optional.Option[string]  `json:"date_emas_w,omitempty"`
	EMAsWeeklyDays   optional.Option[int]     `json:"days_emas_w,omitempty"`
	EMA4Daily        optional.Option[float64] `json:"ema4_d,omitempty"`
	EMA9Daily        optional.Option[float64] `json:"ema9_d,omitempty"`
	EMA18Daily       optional.Option[float64] `json:"ema18_d,omitempty"`
}
