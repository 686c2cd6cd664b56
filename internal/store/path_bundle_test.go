package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/quantdesk/quantjobs/internal/config"
	st "github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

// gridBundle builds a bundle with nPaths rows over steps intervals, where
// value[i][j] = i*1000 + j so subsampling is easy to assert on.
func gridBundle(jobID uuid.UUID, nPaths, steps int) model.PathBundle {
	grid := make([]float64, steps+1)
	values := make([][]float64, nPaths)
	for j := 0; j <= steps; j++ {
		grid[j] = float64(j) / float64(steps)
	}
	for i := 0; i < nPaths; i++ {
		row := make([]float64, steps+1)
		for j := 0; j <= steps; j++ {
			row[j] = float64(i*1000 + j)
		}
		values[i] = row
	}
	return model.PathBundle{
		JobID:    jobID,
		NPaths:   nPaths,
		Steps:    steps,
		TimeGrid: model.MakeJSONField(grid),
		Values:   model.MakeJSONField(values),
	}
}

var _ = Describe("path bundle store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
		jobID  uuid.UUID
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

	BeforeEach(func() {
		jobID = uuid.New()
		_, err := s.PathBundle().Create(context.TODO(), gridBundle(jobID, 20, 10))
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from path_bundles;")
	})

	It("returns not found when no bundle exists for the job", func() {
		_, err := s.PathBundle().Subset(context.TODO(), uuid.New(), 10, 1)
		Expect(err).To(MatchError(st.ErrRecordNotFound))
	})

	It("rejects a second bundle for the same job", func() {
		_, err := s.PathBundle().Create(context.TODO(), gridBundle(jobID, 5, 10))
		Expect(err).To(MatchError(st.ErrDuplicateKey))
	})

	It("returns the requested subset with full totals", func() {
		resp, err := s.PathBundle().Subset(context.TODO(), jobID, 5, 1)
		Expect(err).To(BeNil())
		Expect(resp.Series).To(HaveLen(5))
		Expect(resp.T).To(HaveLen(11))
		Expect(resp.NTotal).To(Equal(20))
		Expect(resp.StepsTotal).To(Equal(10))
		Expect(resp.Series[3][0]).To(Equal(3000.0))
		Expect(resp.Series[3][10]).To(Equal(3010.0))
	})

	It("subsamples steps by stride, always keeping the origin", func() {
		resp, err := s.PathBundle().Subset(context.TODO(), jobID, 2, 4)
		Expect(err).To(BeNil())
		Expect(resp.T).To(Equal([]float64{0, 0.4, 0.8}))
		Expect(resp.Series[0]).To(Equal([]float64{0, 4, 8}))
		Expect(resp.StepsTotal).To(Equal(10))
	})

	It("caps limit at the stored path count", func() {
		resp, err := s.PathBundle().Subset(context.TODO(), jobID, 100000, 1)
		Expect(err).To(BeNil())
		Expect(resp.Series).To(HaveLen(20))
		Expect(resp.NTotal).To(Equal(20))
	})

	It("clamps non-positive limit and stride", func() {
		resp, err := s.PathBundle().Subset(context.TODO(), jobID, 0, 0)
		Expect(err).To(BeNil())
		Expect(resp.Series).To(HaveLen(1))
		Expect(resp.T).To(HaveLen(11))
	})
})
