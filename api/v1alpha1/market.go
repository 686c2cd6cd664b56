package v1alpha1

// MarketLookup is the reply of GET /api/v1/market/lookup.
type MarketLookup struct {
	Ticker   string  `json:"ticker"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// OptionExpirations is the reply of GET /api/v1/market/options/expirations.
type OptionExpirations struct {
	Ticker      string   `json:"ticker"`
	Expirations []string `json:"expirations"`
}

// OptionQuote is one row of an option chain.
type OptionQuote struct {
	Strike     float64 `json:"strike"`
	LastPrice  float64 `json:"lastPrice"`
	ImpliedVol float64 `json:"impliedVol"`
}

// OptionChain is the reply of GET /api/v1/market/options/chain, scoped to
// one (ticker, expiry) pair.
type OptionChain struct {
	Ticker string        `json:"ticker"`
	Expiry string        `json:"expiry"`
	Calls  []OptionQuote `json:"calls"`
	Puts   []OptionQuote `json:"puts"`
}
