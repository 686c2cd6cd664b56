package worker

import (
	"context"
	"fmt"
	"math"
	"sort"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/market"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

const (
	tradingDays = 252
	// ridge keeps the covariance matrix invertible when series are collinear
	ridge = 1e-6

	maxWeightCap    = 0.20
	cardinalityKeep = 5
)

type optimizationParams struct {
	Target     float64 `json:"target"`
	Constraint string  `json:"constraint"`
}

func (w *Worker) executeOptimization(ctx context.Context, job *model.Job) (api.JobResult, error) {
	switch api.Algo(job.Algo) {
	case api.AlgoMeanVariance:
	case api.AlgoQUBO, api.AlgoQAOA:
		return nil, NewJobFailure(fmt.Errorf("algo %s requires a quantum runtime, which is not available on this worker", job.Algo))
	default:
		return nil, NewJobFailure(fmt.Errorf("algo %s cannot optimize portfolios", job.Algo))
	}

	if job.Params == nil {
		return nil, NewJobFailure(fmt.Errorf("job has no params"))
	}
	params, err := decodeParams[optimizationParams](job.Params.Data)
	if err != nil {
		return nil, err
	}

	tickers, err := w.optimizationUniverse(ctx, job)
	if err != nil {
		return nil, err
	}
	if len(tickers) < 2 {
		return nil, NewJobFailure(fmt.Errorf("optimization needs at least 2 assets, got %d", len(tickers)))
	}

	mu, cov, err := w.estimateMoments(ctx, tickers)
	if err != nil {
		return nil, err
	}

	weights, err := meanVarianceWeights(mu, cov, params.Target)
	if err != nil {
		return nil, NewJobFailure(err)
	}
	weights = applyConstraint(weights, params.Constraint)

	result := api.OptimizationResult{
		Weights:        make(map[string]float64, len(tickers)),
		ExpectedReturn: dot(weights, mu),
		Variance:       quadForm(weights, cov),
		Constraint:     params.Constraint,
	}
	for i, t := range tickers {
		result.Weights[t] = round6(weights[i])
	}
	return api.ToPayload(result)
}

// optimizationUniverse resolves the asset tickers the run optimizes over:
// the job's portfolio when scoped, otherwise every stored asset.
func (w *Worker) optimizationUniverse(ctx context.Context, job *model.Job) ([]string, error) {
	var assets model.AssetList
	var err error
	if job.PortfolioID != nil {
		assets, err = w.store.Asset().ListByPortfolio(ctx, *job.PortfolioID)
	} else {
		assets, err = w.store.Asset().ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(assets))
	tickers := make([]string, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a.Ticker]; ok {
			continue
		}
		seen[a.Ticker] = struct{}{}
		tickers = append(tickers, a.Ticker)
	}
	sort.Strings(tickers)
	return tickers, nil
}

// estimateMoments computes annualized mean returns and the covariance matrix
// from each ticker's historical closes.
func (w *Worker) estimateMoments(ctx context.Context, tickers []string) ([]float64, [][]float64, error) {
	series := make([][]float64, len(tickers))
	minLen := math.MaxInt
	for i, t := range tickers {
		closes, err := w.market.History(ctx, t)
		if err != nil {
			return nil, nil, NewJobFailure(fmt.Errorf("fetching history for %s: %w", t, err))
		}
		rets := market.DailyLogReturns(closes)
		if len(rets) < 2 {
			return nil, nil, NewJobFailure(fmt.Errorf("not enough history for %s", t))
		}
		series[i] = rets
		if len(rets) < minLen {
			minLen = len(rets)
		}
	}
	for i := range series {
		series[i] = series[i][len(series[i])-minLen:]
	}

	n := len(tickers)
	mu := make([]float64, n)
	for i := range series {
		sum := 0.0
		for _, r := range series[i] {
			sum += r
		}
		mu[i] = sum / float64(minLen) * tradingDays
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		meanI := 0.0
		for _, r := range series[i] {
			meanI += r
		}
		meanI /= float64(minLen)
		for j := i; j < n; j++ {
			meanJ := 0.0
			for _, r := range series[j] {
				meanJ += r
			}
			meanJ /= float64(minLen)

			c := 0.0
			for k := 0; k < minLen; k++ {
				c += (series[i][k] - meanI) * (series[j][k] - meanJ)
			}
			c = c / float64(minLen-1) * tradingDays
			cov[i][j] = c
			cov[j][i] = c
		}
		cov[i][i] += ridge
	}

	return mu, cov, nil
}

// meanVarianceWeights solves the classic minimum-variance problem subject to
// full investment and, when target > 0, a target expected return, via the
// two-fund theorem.
func meanVarianceWeights(mu []float64, cov [][]float64, target float64) ([]float64, error) {
	n := len(mu)
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	invMu, err := solve(cov, mu)
	if err != nil {
		return nil, err
	}
	invOnes, err := solve(cov, ones)
	if err != nil {
		return nil, err
	}

	a := dot(ones, invMu)
	b := dot(mu, invMu)
	c := dot(ones, invOnes)

	if target <= 0 {
		// global minimum variance portfolio
		w := make([]float64, n)
		for i := range w {
			w[i] = invOnes[i] / c
		}
		return w, nil
	}

	d := b*c - a*a
	if math.Abs(d) < 1e-12 {
		return nil, fmt.Errorf("degenerate return structure, cannot hit target return")
	}
	lambda := (c*target - a) / d
	gamma := (b - a*target) / d

	w := make([]float64, n)
	for i := range w {
		w[i] = lambda*invMu[i] + gamma*invOnes[i]
	}
	return w, nil
}

func applyConstraint(w []float64, constraint string) []float64 {
	switch constraint {
	case "Long-only":
		for i := range w {
			if w[i] < 0 {
				w[i] = 0
			}
		}
		return renormalize(w)

	case "Gross<=1":
		gross := 0.0
		for _, v := range w {
			gross += math.Abs(v)
		}
		if gross > 1 {
			for i := range w {
				w[i] /= gross
			}
		}
		return w

	case "Max-weight-20%":
		for i := range w {
			if w[i] > maxWeightCap {
				w[i] = maxWeightCap
			}
			if w[i] < -maxWeightCap {
				w[i] = -maxWeightCap
			}
		}
		return w

	case "Cardinality=5":
		if len(w) <= cardinalityKeep {
			return w
		}
		idx := make([]int, len(w))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool {
			return math.Abs(w[idx[a]]) > math.Abs(w[idx[b]])
		})
		keep := make(map[int]struct{}, cardinalityKeep)
		for _, i := range idx[:cardinalityKeep] {
			keep[i] = struct{}{}
		}
		for i := range w {
			if _, ok := keep[i]; !ok {
				w[i] = 0
			}
		}
		return renormalize(w)

	default:
		return w
	}
}

func renormalize(w []float64) []float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum == 0 {
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// solve returns x with A x = b by Gaussian elimination with partial pivoting.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-14 {
			return nil, fmt.Errorf("singular covariance matrix")
		}
		m[col], m[pivot] = m[pivot], m[col]

		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			for k := col; k <= n; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := m[row][n]
		for col := row + 1; col < n; col++ {
			sum -= m[row][col] * x[col]
		}
		x[row] = sum / m[row][row]
	}
	return x, nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func quadForm(w []float64, cov [][]float64) float64 {
	sum := 0.0
	for i := range w {
		for j := range w {
			sum += w[i] * cov[i][j] * w[j]
		}
	}
	return sum
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
