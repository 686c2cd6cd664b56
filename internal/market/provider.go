// Package market serves synthetic but deterministic market data. Every quote
// is derived from a hash of the ticker, so repeated calls agree with each
// other and tests never depend on an external feed.
package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

const (
	historyDays    = 252
	expirationsOut = 6
)

var ErrUnknownTicker = fmt.Errorf("unknown ticker")

// Provider is the market data surface consumed by the compute worker and the
// market HTTP endpoints.
type Provider interface {
	Lookup(ctx context.Context, ticker string) (*api.MarketLookup, error)
	Expirations(ctx context.Context, ticker string) (*api.OptionExpirations, error)
	Chain(ctx context.Context, ticker, expiry string) (*api.OptionChain, error)
	// History returns one year of daily closes, oldest first.
	History(ctx context.Context, ticker string) ([]float64, error)
}

type SyntheticProvider struct {
	log *zap.SugaredLogger
	now func() time.Time
}

var _ Provider = (*SyntheticProvider)(nil)

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{
		log: zap.S().Named("market"),
		now: time.Now,
	}
}

// profile holds the per-ticker constants everything else is derived from.
type profile struct {
	spot  float64
	drift float64
	vol   float64
	seed  int64
}

func tickerProfile(ticker string) (profile, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" || len(t) > 12 {
		return profile{}, ErrUnknownTicker
	}
	for _, r := range t {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '.' && r != '-' {
			return profile{}, ErrUnknownTicker
		}
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(t))
	sum := h.Sum64()

	// spot in [20, 520), vol in [0.15, 0.55), drift in [0.02, 0.12)
	return profile{
		spot:  20 + float64(sum%5000)/10,
		vol:   0.15 + float64((sum>>16)%400)/1000,
		drift: 0.02 + float64((sum>>32)%100)/1000,
		seed:  int64(sum),
	}, nil
}

func (p *SyntheticProvider) Lookup(_ context.Context, ticker string) (*api.MarketLookup, error) {
	prof, err := tickerProfile(ticker)
	if err != nil {
		return nil, err
	}
	t := strings.ToUpper(strings.TrimSpace(ticker))
	return &api.MarketLookup{
		Ticker:   t,
		Name:     fmt.Sprintf("%s Holdings", t),
		Price:    round2(prof.spot),
		Currency: "USD",
	}, nil
}

// Expirations lists the next monthly expiries (third Friday of each month).
func (p *SyntheticProvider) Expirations(_ context.Context, ticker string) (*api.OptionExpirations, error) {
	if _, err := tickerProfile(ticker); err != nil {
		return nil, err
	}

	now := p.now().UTC()
	out := make([]string, 0, expirationsOut)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for len(out) < expirationsOut {
		exp := thirdFriday(month)
		if exp.After(now) {
			out = append(out, exp.Format("2006-01-02"))
		}
		month = month.AddDate(0, 1, 0)
	}

	return &api.OptionExpirations{
		Ticker:      strings.ToUpper(strings.TrimSpace(ticker)),
		Expirations: out,
	}, nil
}

func thirdFriday(firstOfMonth time.Time) time.Time {
	offset := (int(time.Friday) - int(firstOfMonth.Weekday()) + 7) % 7
	return firstOfMonth.AddDate(0, 0, offset+14)
}

// Chain builds a strike ladder around spot and prices each row with
// Black-Scholes under the ticker's synthetic vol smile.
func (p *SyntheticProvider) Chain(_ context.Context, ticker, expiry string) (*api.OptionChain, error) {
	prof, err := tickerProfile(ticker)
	if err != nil {
		return nil, err
	}
	expDate, err := time.Parse("2006-01-02", expiry)
	if err != nil {
		return nil, fmt.Errorf("parsing expiry %q: %w", expiry, err)
	}

	tYears := expDate.Sub(p.now().UTC()).Hours() / 24 / 365
	if tYears <= 0 {
		tYears = 1.0 / 365
	}

	strikes := strikeLadder(prof.spot)
	calls := make([]api.OptionQuote, 0, len(strikes))
	puts := make([]api.OptionQuote, 0, len(strikes))
	for _, k := range strikes {
		iv := smileVol(prof, k)
		call := bsPrice(prof.spot, k, 0.03, 0.0, iv, tYears, true)
		put := bsPrice(prof.spot, k, 0.03, 0.0, iv, tYears, false)
		calls = append(calls, api.OptionQuote{Strike: k, LastPrice: round2(call), ImpliedVol: round4(iv)})
		puts = append(puts, api.OptionQuote{Strike: k, LastPrice: round2(put), ImpliedVol: round4(iv)})
	}

	return &api.OptionChain{
		Ticker: strings.ToUpper(strings.TrimSpace(ticker)),
		Expiry: expDate.Format("2006-01-02"),
		Calls:  calls,
		Puts:   puts,
	}, nil
}

func strikeLadder(spot float64) []float64 {
	step := strikeStep(spot)
	atm := math.Round(spot/step) * step
	strikes := make([]float64, 0, 11)
	for i := -5; i <= 5; i++ {
		k := atm + float64(i)*step
		if k > 0 {
			strikes = append(strikes, k)
		}
	}
	sort.Float64s(strikes)
	return strikes
}

func strikeStep(spot float64) float64 {
	switch {
	case spot < 50:
		return 2.5
	case spot < 200:
		return 5
	default:
		return 10
	}
}

// smileVol bends the base vol into a shallow skew around spot.
func smileVol(prof profile, strike float64) float64 {
	m := math.Log(strike / prof.spot)
	return prof.vol * (1 + 0.3*m*m - 0.1*m)
}

func (p *SyntheticProvider) History(_ context.Context, ticker string) ([]float64, error) {
	prof, err := tickerProfile(ticker)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(prof.seed))
	dt := 1.0 / 252
	closes := make([]float64, historyDays)
	// walk backwards from today's spot so the series ends at the quoted price
	price := prof.spot
	for i := historyDays - 1; i >= 0; i-- {
		closes[i] = round2(price)
		z := rng.NormFloat64()
		price /= math.Exp((prof.drift-0.5*prof.vol*prof.vol)*dt + prof.vol*math.Sqrt(dt)*z)
	}
	return closes, nil
}

// AnnualizedVol estimates volatility from daily log returns of a close series.
func AnnualizedVol(closes []float64) (float64, error) {
	if len(closes) < 2 {
		return 0, fmt.Errorf("need at least 2 closes, got %d", len(closes))
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, fmt.Errorf("non-positive close in series")
		}
		rets = append(rets, math.Log(closes[i]/closes[i-1]))
	}

	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	variance := 0.0
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rets) - 1)

	return math.Sqrt(variance * 252), nil
}

// DailyLogReturns converts a close series to log returns, oldest first.
func DailyLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		rets = append(rets, math.Log(closes[i]/closes[i-1]))
	}
	return rets
}

func bsPrice(s, k, r, q, sigma, t float64, call bool) float64 {
	if t <= 0 || sigma <= 0 {
		if call {
			return math.Max(s-k, 0)
		}
		return math.Max(k-s, 0)
	}
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	if call {
		return s*math.Exp(-q*t)*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2)
	}
	return k*math.Exp(-r*t)*normCDF(-d2) - s*math.Exp(-q*t)*normCDF(-d1)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
