package compose

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

func chainForm() *ChainForm {
	return &ChainForm{
		Legs: []Leg{
			{Ticker: "$aapl", Expiry: "2026-12-18", Strike: 180, OptionType: Call, Quantity: 2},
			{Ticker: "msft", Expiry: "2026-12-18", Strike: 400, OptionType: Put, Quantity: -1},
		},
		R: 0.01,
		Q: 0.0,
	}
}

func historicalForm() *HistoricalForm {
	f := &HistoricalForm{
		Ticker:     "aapl",
		OptionType: Call,
		Strike:     180,
		R:          0.01,
		Q:          0.0,
	}
	f.SetMaturityYears(1.0)
	return f
}

func paramKeys(p api.JobParams) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestComposeChainFieldSets(t *testing.T) {
	tests := []struct {
		name string
		algo api.Algo
		keys []string
	}{
		{"black-scholes", api.AlgoBlackScholes, []string{"legs", "q", "r"}},
		{"monte-carlo", api.AlgoMonteCarlo, []string{"legs", "num_paths", "num_steps", "q", "r", "save_paths"}},
		{"qae", api.AlgoQAE, []string{"legs", "q", "qubits", "r", "sampler", "shots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Compose(Request{
				Type:    api.JobTypeOptionPricing,
				Product: api.ProductEuropean,
				Algo:    tt.algo,
				Mode:    ModeChain,
				Chain:   chainForm(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.keys, paramKeys(params))
		})
	}
}

func TestComposeHistoricalFieldSets(t *testing.T) {
	tests := []struct {
		name string
		algo api.Algo
		keys []string
	}{
		{"black-scholes", api.AlgoBlackScholes, []string{"T", "option_type", "q", "r", "strike", "ticker"}},
		{"monte-carlo", api.AlgoMonteCarlo, []string{"T", "num_paths", "num_steps", "option_type", "q", "r", "save_paths", "strike", "ticker"}},
		{"qae", api.AlgoQAE, []string{"T", "option_type", "q", "qubits", "r", "sampler", "shots", "strike", "ticker"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Compose(Request{
				Type:       api.JobTypeOptionPricing,
				Product:    api.ProductEuropean,
				Algo:       tt.algo,
				Mode:       ModeHistorical,
				Historical: historicalForm(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.keys, paramKeys(params))
		})
	}
}

func TestComposeChainNormalizesLegs(t *testing.T) {
	params, err := Compose(Request{
		Type:    api.JobTypeOptionPricing,
		Product: api.ProductEuropean,
		Algo:    api.AlgoBlackScholes,
		Mode:    ModeChain,
		Chain:   chainForm(),
	})
	require.NoError(t, err)

	legs, ok := params["legs"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, legs, 2)
	assert.Equal(t, "AAPL", legs[0]["ticker"])
	assert.Equal(t, "MSFT", legs[1]["ticker"])
	assert.Equal(t, float64(-1), legs[1]["qty"])
}

func TestExpiryAndMaturityAreMutuallyExclusive(t *testing.T) {
	form := historicalForm()

	form.SetExpiry("2027-01-15")
	_, hasT := form.MaturityYears()
	assert.False(t, hasT)
	assert.Equal(t, "2027-01-15", form.Expiry())

	form.SetMaturityYears(0.5)
	assert.Empty(t, form.Expiry())
	tYears, hasT := form.MaturityYears()
	assert.True(t, hasT)
	assert.Equal(t, 0.5, tYears)

	// the toggle survives repeated flips
	form.SetExpiry("2027-06-18")
	form.SetMaturityYears(2.0)
	form.SetExpiry("2028-01-21")

	params, err := Compose(Request{
		Type:       api.JobTypeOptionPricing,
		Product:    api.ProductEuropean,
		Algo:       api.AlgoBlackScholes,
		Mode:       ModeHistorical,
		Historical: form,
	})
	require.NoError(t, err)
	assert.Equal(t, "2028-01-21", params["expiry"])
	assert.NotContains(t, params, "T")
}

func TestHistoricalRequiresSomeMaturity(t *testing.T) {
	form := &HistoricalForm{Ticker: "AAPL", OptionType: Call, Strike: 100, R: 0.01}

	_, err := Compose(Request{
		Type:       api.JobTypeOptionPricing,
		Product:    api.ProductEuropean,
		Algo:       api.AlgoBlackScholes,
		Mode:       ModeHistorical,
		Historical: form,
	})
	var verr *ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestHistoricalSigmaIsOptional(t *testing.T) {
	form := historicalForm()
	params, err := Compose(Request{
		Type:       api.JobTypeOptionPricing,
		Product:    api.ProductEuropean,
		Algo:       api.AlgoBlackScholes,
		Mode:       ModeHistorical,
		Historical: form,
	})
	require.NoError(t, err)
	assert.NotContains(t, params, "sigma")

	sigma := 0.25
	form.Sigma = &sigma
	params, err = Compose(Request{
		Type:       api.JobTypeOptionPricing,
		Product:    api.ProductEuropean,
		Algo:       api.AlgoBlackScholes,
		Mode:       ModeHistorical,
		Historical: form,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.25, params["sigma"])
}

func TestUnsupportedProductsAreRejected(t *testing.T) {
	for _, product := range []api.Product{api.ProductAmerican, api.ProductAsian, api.ProductBarrier, api.ProductBasket} {
		_, err := Compose(Request{
			Type:    api.JobTypeOptionPricing,
			Product: product,
			Algo:    api.AlgoBlackScholes,
			Mode:    ModeChain,
			Chain:   chainForm(),
		})
		var cerr *ErrCapability
		assert.ErrorAs(t, err, &cerr, "product %s", product)
	}
}

func TestPricingRejectsOptimizationAlgos(t *testing.T) {
	_, err := Compose(Request{
		Type:    api.JobTypeOptionPricing,
		Product: api.ProductEuropean,
		Algo:    api.AlgoMeanVariance,
		Mode:    ModeChain,
		Chain:   chainForm(),
	})
	var cerr *ErrCapability
	assert.ErrorAs(t, err, &cerr)
}

func TestComposeOptimization(t *testing.T) {
	params, err := Compose(Request{
		Type: api.JobTypePortfolioOptimization,
		Algo: api.AlgoMeanVariance,
		Optimization: &OptimizationForm{
			Target:     0.08,
			Constraint: ConstraintLongOnly,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"constraint", "target"}, paramKeys(params))
	assert.Equal(t, 0.08, params["target"])
	assert.Equal(t, "Long-only", params["constraint"])
}

func TestComposeOptimizationDefaults(t *testing.T) {
	params, err := Compose(Request{
		Type: api.JobTypePortfolioOptimization,
		Algo: api.AlgoQUBO,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), params["target"])
	assert.Equal(t, "None", params["constraint"])
}

func TestChainValidation(t *testing.T) {
	form := chainForm()
	form.Legs[0].Strike = -5

	_, err := Compose(Request{
		Type:    api.JobTypeOptionPricing,
		Product: api.ProductEuropean,
		Algo:    api.AlgoBlackScholes,
		Mode:    ModeChain,
		Chain:   form,
	})
	var verr *ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker(" $aapl "))
	assert.Equal(t, "BRK.B", NormalizeTicker("brk.b"))
}
