package catalog

// Index underlyings trade under different quote symbols on the cash segment
// than the name their option contracts carry.
var indexQuoteSymbols = map[string]string{
	"NIFTY":      "NIFTY 50",
	"BANKNIFTY":  "NIFTY BANK",
	"FINNIFTY":   "NIFTY FIN SERVICE",
	"MIDCPNIFTY": "NIFTY MID SELECT",
}

// UnderlyingQuoteID returns the exchange-qualified id used to fetch the spot
// quote for an underlying.
func UnderlyingQuoteID(symbol string) string {
	if q, ok := indexQuoteSymbols[symbol]; ok {
		return "NSE:" + q
	}
	return "NSE:" + symbol
}
