package fetcher

import "strings"

// baSuffix is Yahoo Finance's market suffix for the Buenos Aires exchange.
const baSuffix = ".BA"

// NormalizeSymbol maps a stored ticker symbol to the syntax the external
// source expects. Rules, in order: a "BCBA:CODE" exchange prefix becomes
// "CODE.BA"; any remaining class-share dot becomes a dash ("BRK.B" ->
// "BRK-B"). Pure and deterministic; trimming and casing are the API layer's
// concern.
func NormalizeSymbol(symbol string) string {
	if code, ok := strings.CutPrefix(symbol, "BCBA:"); ok {
		return code + baSuffix
	}
	return strings.ReplaceAll(symbol, ".", "-")
}
