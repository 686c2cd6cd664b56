package store_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/config"
	st "github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

func newPricingJob(priority string) model.Job {
	return model.Job{
		Type:     string(api.JobTypeOptionPricing),
		Product:  string(api.ProductEuropean),
		Algo:     string(api.AlgoBlackScholes),
		Priority: priority,
		Params:   model.MakeJSONField(api.JobParams{"ticker": "AAPL"}),
	}
}

var _ = Describe("job store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = st.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from jobs;")
	})

	Context("create and get", func() {
		It("creates a job in Pending regardless of the given status", func() {
			job, err := s.Job().Create(context.TODO(), model.Job{
				Type:     string(api.JobTypeOptionPricing),
				Algo:     string(api.AlgoMonteCarlo),
				Priority: string(api.PriorityHigh),
				Status:   string(api.JobStatusSucceeded),
			})
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(string(api.JobStatusPending)))
			Expect(job.ID).ToNot(Equal(uuid.Nil))

			got, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(string(api.JobStatusPending)))
		})

		It("returns not found for an unknown id", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("filters by client id", func() {
			clientID := uuid.New()
			job := newPricingJob(string(api.PriorityNormal))
			job.ClientID = &clientID
			_, err := s.Job().Create(context.TODO(), job)
			Expect(err).To(BeNil())
			_, err = s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
			Expect(err).To(BeNil())

			jobs, err := s.Job().List(context.TODO(), st.NewJobQueryFilter().ByClientID(clientID))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))

			jobs, err = s.Job().List(context.TODO(), st.NewJobQueryFilter())
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
		})
	})

	Context("status transitions", func() {
		It("advances Pending -> Running -> Succeeded", func() {
			job, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
			Expect(err).To(BeNil())

			running, err := s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusRunning, nil, "")
			Expect(err).To(BeNil())
			Expect(running.StartedAt).ToNot(BeNil())
			Expect(running.FinishedAt).To(BeNil())

			done, err := s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusSucceeded, api.JobResult{"price": 1.5}, "")
			Expect(err).To(BeNil())
			Expect(done.FinishedAt).ToNot(BeNil())
			Expect(done.DurationSec).ToNot(BeNil())
			Expect(*done.DurationSec).To(BeNumerically(">=", 0))
			Expect(done.Result).ToNot(BeNil())
			Expect(done.Result.Data["price"]).To(Equal(1.5))
			Expect(done.Error).To(BeNil())
		})

		It("records the error and drops the result on failure", func() {
			job, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
			Expect(err).To(BeNil())

			failed, err := s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusFailed, api.JobResult{"price": 1.5}, "engine exploded")
			Expect(err).To(BeNil())
			Expect(failed.Result).To(BeNil())
			Expect(failed.Error).ToNot(BeNil())
			Expect(*failed.Error).To(Equal("engine exploded"))
		})

		It("rejects a regressing transition", func() {
			job, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
			Expect(err).To(BeNil())

			_, err = s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusRunning, nil, "")
			Expect(err).To(BeNil())

			_, err = s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusPending, nil, "")
			Expect(err).To(MatchError(st.ErrInvalidStatusTransition))
		})

		It("rejects any update once the job is terminal", func() {
			job, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
			Expect(err).To(BeNil())

			done, err := s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusSucceeded, api.JobResult{"price": 1.0}, "")
			Expect(err).To(BeNil())

			_, err = s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusFailed, nil, "oops")
			Expect(err).To(MatchError(st.ErrInvalidStatusTransition))

			// a same-status re-submit must not overwrite the recorded result
			_, err = s.Job().UpdateStatus(context.TODO(), job.ID, api.JobStatusSucceeded, api.JobResult{"price": 9.9}, "")
			Expect(err).To(MatchError(st.ErrInvalidStatusTransition))

			got, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(got.Result.Data["price"]).To(Equal(1.0))
			Expect(*got.FinishedAt).To(BeTemporally("~", *done.FinishedAt, time.Millisecond))
		})
	})

	Context("claim queue", func() {
		It("returns ErrNoPendingJobs on an empty queue", func() {
			_, err := s.Job().ClaimNextPending(context.TODO())
			Expect(err).To(MatchError(st.ErrNoPendingJobs))
		})

		It("claims by priority first, then age", func() {
			low, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityLow)))
			Expect(err).To(BeNil())
			urgentOld, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityUrgent)))
			Expect(err).To(BeNil())
			urgentNew := newPricingJob(string(api.PriorityUrgent))
			urgentNew.ID = uuid.New()
			gormdb.Exec("INSERT INTO jobs (id, type, algo, priority, status, created_at, updated_at) VALUES (?, ?, ?, ?, 'Pending', datetime('now', '+1 hour'), datetime('now'))",
				urgentNew.ID, urgentNew.Type, urgentNew.Algo, urgentNew.Priority)

			first, err := s.Job().ClaimNextPending(context.TODO())
			Expect(err).To(BeNil())
			Expect(first.ID).To(Equal(urgentOld.ID))
			Expect(first.Status).To(Equal(string(api.JobStatusRunning)))
			Expect(first.StartedAt).ToNot(BeNil())

			second, err := s.Job().ClaimNextPending(context.TODO())
			Expect(err).To(BeNil())
			Expect(second.ID).To(Equal(urgentNew.ID))

			third, err := s.Job().ClaimNextPending(context.TODO())
			Expect(err).To(BeNil())
			Expect(third.ID).To(Equal(low.ID))

			_, err = s.Job().ClaimNextPending(context.TODO())
			Expect(err).To(MatchError(st.ErrNoPendingJobs))
		})

		It("claims each job exactly once under concurrent claimers", func() {
			const pending = 20
			claimed := make(map[uuid.UUID]bool, pending)
			for i := 0; i < pending; i++ {
				job, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
				Expect(err).To(BeNil())
				claimed[job.ID] = false
			}

			var mu sync.Mutex
			var wg sync.WaitGroup
			for slot := 0; slot < 4; slot++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					for {
						job, err := s.Job().ClaimNextPending(context.TODO())
						if errors.Is(err, st.ErrNoPendingJobs) {
							return
						}
						Expect(err).To(BeNil())

						mu.Lock()
						Expect(claimed[job.ID]).To(BeFalse(), "job %s claimed twice", job.ID)
						claimed[job.ID] = true
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			for id, ok := range claimed {
				Expect(ok).To(BeTrue(), "job %s never claimed", id)
			}
		})
	})

	Context("stats", func() {
		It("zero-fills every status", func() {
			stats, err := s.Job().Stats(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.Total).To(Equal(0))
			Expect(stats.ByStatus).To(HaveLen(4))
			for _, status := range api.AllJobStatuses {
				Expect(stats.ByStatus[string(status)]).To(Equal(0))
			}
		})

		It("counts by status and lists recent and running", func() {
			job1, err := s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
			Expect(err).To(BeNil())
			_, err = s.Job().Create(context.TODO(), newPricingJob(string(api.PriorityNormal)))
			Expect(err).To(BeNil())
			_, err = s.Job().UpdateStatus(context.TODO(), job1.ID, api.JobStatusRunning, nil, "")
			Expect(err).To(BeNil())

			stats, err := s.Job().Stats(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.Total).To(Equal(2))
			Expect(stats.ByStatus[string(api.JobStatusPending)]).To(Equal(1))
			Expect(stats.ByStatus[string(api.JobStatusRunning)]).To(Equal(1))
			Expect(stats.Recent).To(HaveLen(2))
			Expect(stats.Running).To(HaveLen(1))
			Expect(stats.Running[0].ID).To(Equal(job1.ID))
		})
	})
})
