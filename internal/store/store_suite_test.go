package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/quantdesk/quantjobs/internal/config"
	st "github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		store.Close()
	})

	Context("transaction", func() {
		It("commits a client successfully", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			client, err := store.Client().Create(ctx, model.Client{
				ID:   uuid.New(),
				Name: "desk-1",
			})
			Expect(client).ToNot(BeNil())
			Expect(err).To(BeNil())

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) from clients;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rolls back a client successfully", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			client, err := store.Client().Create(ctx, model.Client{
				ID:   uuid.New(),
				Name: "desk-2",
			})
			Expect(client).ToNot(BeNil())
			Expect(err).To(BeNil())

			// visible inside the transaction
			clients, err := store.Client().List(ctx)
			Expect(err).To(BeNil())
			Expect(clients).To(HaveLen(1))

			_, cerr := st.Rollback(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) from clients;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(0))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from clients;")
		})
	})

	Context("statistics", func() {
		It("counts entities and jobs together", func() {
			client, err := store.Client().Create(context.TODO(), model.Client{Name: "desk"})
			Expect(err).To(BeNil())
			portfolio, err := store.Portfolio().Create(context.TODO(), model.Portfolio{ClientID: client.ID, Name: "book"})
			Expect(err).To(BeNil())
			_, err = store.Asset().Upsert(context.TODO(), model.Asset{PortfolioID: portfolio.ID, Ticker: "AAPL", Quantity: 10})
			Expect(err).To(BeNil())
			_, err = store.Job().Create(context.TODO(), model.Job{Type: "OptionPricing", Algo: "BlackScholes", Priority: "Normal"})
			Expect(err).To(BeNil())

			stats, err := store.Statistics(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.Clients).To(Equal(1))
			Expect(stats.Portfolios).To(Equal(1))
			Expect(stats.Assets).To(Equal(1))
			Expect(stats.TotalJobs).To(Equal(1))
			Expect(stats.JobsByStatus["Pending"]).To(Equal(1))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from jobs;")
			gormDB.Exec("DELETE from assets;")
			gormDB.Exec("DELETE from portfolios;")
			gormDB.Exec("DELETE from clients;")
		})
	})
})
