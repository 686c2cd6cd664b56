package worker

import (
	"context"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/config"
	"github.com/quantdesk/quantjobs/internal/market"
	"github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

func TestWorker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Worker Suite")
}

var _ = Describe("Worker", Ordered, func() {
	var (
		s        store.Store
		gormdb   *gorm.DB
		provider *market.SyntheticProvider
		w        *Worker
		expiry   string
		spot     float64
	)

	// submit creates a pricing or optimization job, claims it the way a worker
	// slot would and runs it to completion, returning the stored row.
	runJob := func(job model.Job) *model.Job {
		created, err := s.Job().Create(context.TODO(), job)
		Expect(err).To(BeNil())
		claimed, err := s.Job().ClaimNextPending(context.TODO())
		Expect(err).To(BeNil())
		Expect(claimed.ID).To(Equal(created.ID))

		w.process(context.TODO(), claimed)

		got, err := s.Job().Get(context.TODO(), created.ID)
		Expect(err).To(BeNil())
		return got
	}

	resultOf := func(job *model.Job) api.JobResult {
		Expect(job.Status).To(Equal(string(api.JobStatusSucceeded)), "job error: %v", job.Error)
		Expect(job.Result).ToNot(BeNil())
		return job.Result.Data
	}

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db

		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())

		provider = market.NewSyntheticProvider()
		w = New(s, provider, config.NewDefault())

		exps, err := provider.Expirations(context.TODO(), "AAPL")
		Expect(err).To(BeNil())
		// skip the front month so time decay does not dwarf the price
		expiry = exps.Expirations[len(exps.Expirations)-1]

		look, err := provider.Lookup(context.TODO(), "AAPL")
		Expect(err).To(BeNil())
		spot = look.Price
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from path_bundles;")
		gormdb.Exec("DELETE from jobs;")
		gormdb.Exec("DELETE from assets;")
		gormdb.Exec("DELETE from portfolios;")
		gormdb.Exec("DELETE from clients;")
	})

	Context("Black-Scholes pricing", func() {
		It("prices a single call from chain params", func() {
			job := runJob(model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Product:  string(api.ProductEuropean),
				Algo:     string(api.AlgoBlackScholes),
				Priority: string(api.PriorityNormal),
				Params: model.MakeJSONField(api.JobParams{
					"ticker":      "AAPL",
					"option_type": "CALL",
					"strike":      spot,
					"expiry":      expiry,
					"r":           0.03,
					"q":           0.0,
				}),
			})

			result := resultOf(job)
			price := result["price"].(float64)
			Expect(price).To(BeNumerically(">", 0))
			Expect(price).To(BeNumerically("<", spot))
			Expect(result["S0"]).To(Equal(spot))
			Expect(result["sigma"]).To(BeNumerically(">", 0))
			Expect(result).ToNot(HaveKey("paths"))
		})

		It("respects an explicit sigma and maturity override", func() {
			job := runJob(model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Product:  string(api.ProductEuropean),
				Algo:     string(api.AlgoBlackScholes),
				Priority: string(api.PriorityNormal),
				Params: model.MakeJSONField(api.JobParams{
					"ticker":      "AAPL",
					"option_type": "PUT",
					"strike":      spot,
					"T":           0.5,
					"sigma":       0.3,
					"r":           0.03,
					"q":           0.0,
				}),
			})

			result := resultOf(job)
			Expect(result["sigma"]).To(Equal(0.3))
			Expect(result["T"]).To(Equal(0.5))
			Expect(result["price"].(float64)).To(BeNumerically(">", 0))
		})

		It("fails with a surfaced message on a past expiry", func() {
			job := runJob(model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Product:  string(api.ProductEuropean),
				Algo:     string(api.AlgoBlackScholes),
				Priority: string(api.PriorityNormal),
				Params: model.MakeJSONField(api.JobParams{
					"ticker":      "AAPL",
					"option_type": "CALL",
					"strike":      spot,
					"expiry":      "2001-01-19",
				}),
			})

			Expect(job.Status).To(Equal(string(api.JobStatusFailed)))
			Expect(job.Error).ToNot(BeNil())
			Expect(*job.Error).To(ContainSubstring("in the past"))
			Expect(job.Result).To(BeNil())
		})
	})

	Context("Monte-Carlo pricing", func() {
		It("agrees with Black-Scholes within the reported standard error", func() {
			job := runJob(model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Product:  string(api.ProductEuropean),
				Algo:     string(api.AlgoMonteCarlo),
				Priority: string(api.PriorityNormal),
				Params: model.MakeJSONField(api.JobParams{
					"ticker":      "AAPL",
					"option_type": "CALL",
					"strike":      spot,
					"T":           1.0,
					"sigma":       0.25,
					"r":           0.03,
					"q":           0.0,
					"num_steps":   50,
					"num_paths":   20000,
				}),
			})

			result := resultOf(job)
			price := result["price"].(float64)
			stderr := result["stderr"].(float64)
			Expect(stderr).To(BeNumerically(">", 0))

			expected := bsPrice(spot, spot, 0.03, 0, 0.25, 1.0, true)
			Expect(price).To(BeNumerically("~", expected, 5*stderr))
		})

		It("persists a capped path bundle when save_paths is set", func() {
			job := runJob(model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Product:  string(api.ProductEuropean),
				Algo:     string(api.AlgoMonteCarlo),
				Priority: string(api.PriorityNormal),
				Params: model.MakeJSONField(api.JobParams{
					"ticker":      "AAPL",
					"option_type": "CALL",
					"strike":      spot,
					"T":           1.0,
					"sigma":       0.25,
					"r":           0.03,
					"num_steps":   20,
					"num_paths":   1000,
					"save_paths":  true,
				}),
			})

			result := resultOf(job)
			Expect(result).To(HaveKey("paths"))
			ref := result["paths"].(map[string]any)
			Expect(ref["n_paths"]).To(BeEquivalentTo(maxStoredPaths))

			resp, err := s.PathBundle().Subset(context.TODO(), job.ID, 10, 1)
			Expect(err).To(BeNil())
			Expect(resp.Series).To(HaveLen(10))
			Expect(resp.NTotal).To(Equal(maxStoredPaths))
			Expect(resp.T).To(HaveLen(21))
			// every stored path starts at the spot
			Expect(resp.Series[0][0]).To(Equal(spot))
		})
	})

	Context("multi-leg pricing", func() {
		It("prices every leg and aggregates totals, keeping paths only for the first", func() {
			job := runJob(model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Product:  string(api.ProductEuropean),
				Algo:     string(api.AlgoMonteCarlo),
				Priority: string(api.PriorityNormal),
				Params: model.MakeJSONField(api.JobParams{
					"legs": []any{
						map[string]any{"ticker": "AAPL", "expiry": expiry, "strike": spot, "option_type": "CALL", "qty": 2.0},
						map[string]any{"ticker": "MSFT", "expiry": expiry, "strike": 300.0, "option_type": "PUT", "qty": -1.0},
					},
					"r":          0.03,
					"q":          0.0,
					"num_steps":  20,
					"num_paths":  2000,
					"save_paths": true,
				}),
			})

			result := resultOf(job)
			legs := result["legs"].([]any)
			Expect(legs).To(HaveLen(2))

			first := legs[0].(map[string]any)
			second := legs[1].(map[string]any)
			Expect(first["ticker"]).To(Equal("AAPL"))
			Expect(first["leg"]).To(BeEquivalentTo(1))
			Expect(first).To(HaveKey("paths"))
			Expect(second).ToNot(HaveKey("paths"))

			p1 := first["price"].(float64)
			p2 := second["price"].(float64)
			totals := result["totals"].(map[string]any)
			Expect(totals["notional"].(float64)).To(BeNumerically("~", 2*p1-p2, 1e-9))
			Expect(totals["weightedAvg"].(float64)).To(BeNumerically("~", (2*p1+p2)/3, 1e-9))
		})
	})

	Context("quantum amplitude estimation", func() {
		It("approximates the Black-Scholes price on a fine grid", func() {
			job := runJob(model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Product:  string(api.ProductEuropean),
				Algo:     string(api.AlgoQAE),
				Priority: string(api.PriorityNormal),
				Params: model.MakeJSONField(api.JobParams{
					"ticker":      "AAPL",
					"option_type": "CALL",
					"strike":      spot,
					"T":           1.0,
					"sigma":       0.25,
					"r":           0.03,
					"qubits":      10,
					"shots":       1024,
				}),
			})

			result := resultOf(job)
			expected := bsPrice(spot, spot, 0.03, 0, 0.25, 1.0, true)
			Expect(result["price"].(float64)).To(BeNumerically("~", expected, 0.02*expected))
			Expect(result["stderr"].(float64)).To(BeNumerically(">", 0))
		})
	})

	Context("portfolio optimization", func() {
		seedPortfolio := func(tickers ...string) uuid.UUID {
			client, err := s.Client().Create(context.TODO(), model.Client{Name: "desk"})
			Expect(err).To(BeNil())
			portfolio, err := s.Portfolio().Create(context.TODO(), model.Portfolio{ClientID: client.ID, Name: "book"})
			Expect(err).To(BeNil())
			for _, t := range tickers {
				_, err := s.Asset().Upsert(context.TODO(), model.Asset{PortfolioID: portfolio.ID, Ticker: t, Quantity: 100})
				Expect(err).To(BeNil())
			}
			return portfolio.ID
		}

		It("produces fully invested long-only weights", func() {
			portfolioID := seedPortfolio("AAPL", "MSFT", "GOOG", "AMZN")
			job := runJob(model.Job{
				Type:        string(api.JobTypePortfolioOptimization),
				Algo:        string(api.AlgoMeanVariance),
				Priority:    string(api.PriorityNormal),
				PortfolioID: &portfolioID,
				Params: model.MakeJSONField(api.JobParams{
					"target":     0.0,
					"constraint": "Long-only",
				}),
			})

			result := resultOf(job)
			weights := result["weights"].(map[string]any)
			Expect(weights).To(HaveLen(4))
			sum := 0.0
			for _, v := range weights {
				w := v.(float64)
				Expect(w).To(BeNumerically(">=", 0))
				sum += w
			}
			Expect(sum).To(BeNumerically("~", 1.0, 1e-4))
			Expect(result["variance"].(float64)).To(BeNumerically(">", 0))
		})

		It("rejects too small a universe", func() {
			portfolioID := seedPortfolio("AAPL")
			job := runJob(model.Job{
				Type:        string(api.JobTypePortfolioOptimization),
				Algo:        string(api.AlgoMeanVariance),
				Priority:    string(api.PriorityNormal),
				PortfolioID: &portfolioID,
				Params:      model.MakeJSONField(api.JobParams{"target": 0.0}),
			})

			Expect(job.Status).To(Equal(string(api.JobStatusFailed)))
			Expect(*job.Error).To(ContainSubstring("at least 2 assets"))
		})

		It("fails quantum algos with an actionable message", func() {
			portfolioID := seedPortfolio("AAPL", "MSFT")
			job := runJob(model.Job{
				Type:        string(api.JobTypePortfolioOptimization),
				Algo:        string(api.AlgoQUBO),
				Priority:    string(api.PriorityNormal),
				PortfolioID: &portfolioID,
				Params:      model.MakeJSONField(api.JobParams{"target": 0.0}),
			})

			Expect(job.Status).To(Equal(string(api.JobStatusFailed)))
			Expect(*job.Error).To(ContainSubstring("quantum runtime"))
		})
	})
})
