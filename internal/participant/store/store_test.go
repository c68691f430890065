package store

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	storemetrics "trialdesk/internal/participant/metrics"
	"trialdesk/internal/participant/models"
	"trialdesk/internal/participant/repository"
	dErrors "trialdesk/pkg/domainerrors"
)

// fakeAuth is a hand-rolled session signal for tests.
type fakeAuth struct {
	authenticated bool
}

func (f *fakeAuth) Authenticated() bool {
	return f.authenticated
}

// countingRepo tracks how many calls reach the repository so tests can assert
// local guards short-circuit.
type countingRepo struct {
	repository.Repository
	calls int
}

func (c *countingRepo) Create(ctx context.Context, data models.Draft) (models.Participant, error) {
	c.calls++
	return c.Repository.Create(ctx, data)
}

func (c *countingRepo) Delete(ctx context.Context, id int) error {
	c.calls++
	return c.Repository.Delete(ctx, id)
}

// failingRepo makes selected operations fail while delegating the rest.
type failingRepo struct {
	repository.Repository
	failList    error
	failGet     error
	failCreate  error
	failUpdate  error
	failDelete  error
	failMetrics error
}

func (f *failingRepo) ListAll(ctx context.Context) ([]models.Participant, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	return f.Repository.ListAll(ctx)
}

func (f *failingRepo) GetByID(ctx context.Context, id int) (models.Participant, error) {
	if f.failGet != nil {
		return models.Participant{}, f.failGet
	}
	return f.Repository.GetByID(ctx, id)
}

func (f *failingRepo) Create(ctx context.Context, data models.Draft) (models.Participant, error) {
	if f.failCreate != nil {
		return models.Participant{}, f.failCreate
	}
	return f.Repository.Create(ctx, data)
}

func (f *failingRepo) Update(ctx context.Context, id int, data models.Draft) (models.Participant, error) {
	if f.failUpdate != nil {
		return models.Participant{}, f.failUpdate
	}
	return f.Repository.Update(ctx, id, data)
}

func (f *failingRepo) Delete(ctx context.Context, id int) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	return f.Repository.Delete(ctx, id)
}

func (f *failingRepo) GetMetrics(ctx context.Context) (models.Metrics, error) {
	if f.failMetrics != nil {
		return models.Metrics{}, f.failMetrics
	}
	return f.Repository.GetMetrics(ctx)
}

type StoreSuite struct {
	suite.Suite
	repo *repository.InMemory
	auth *fakeAuth
	ctx  context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.repo = repository.NewInMemory()
	s.auth = &fakeAuth{authenticated: true}
	s.ctx = context.Background()
}

func (s *StoreSuite) newStore(repo repository.Repository) *Store {
	st, err := New(repo, s.auth, WithMetrics(storemetrics.NewWith(prometheus.NewRegistry())))
	s.Require().NoError(err)
	return st
}

func (s *StoreSuite) newDraft(subjectID string) models.Draft {
	return models.Draft{
		SubjectID:      subjectID,
		StudyGroup:     models.StudyGroupTreatment,
		EnrollmentDate: "2024-03-01",
		Status:         models.StatusActive,
		Age:            45,
		Gender:         models.GenderFemale,
	}
}

func (s *StoreSuite) seed(subjectIDs ...string) []models.Participant {
	out := make([]models.Participant, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		p, err := s.repo.Create(s.ctx, s.newDraft(id))
		s.Require().NoError(err)
		out = append(out, p)
	}
	return out
}

func (s *StoreSuite) TestNew() {
	_, err := New(nil, s.auth)
	s.Error(err)

	_, err = New(s.repo, nil)
	s.Error(err)
}

func (s *StoreSuite) TestSessionGuard() {
	s.seed("S-001")
	s.auth.authenticated = false
	counting := &countingRepo{Repository: s.repo}
	st := s.newStore(counting)

	s.Run("load is a no-op", func() {
		s.NoError(st.LoadAll(s.ctx))
		s.Empty(st.Participants())
		s.Nil(st.Metrics())
		s.False(st.IsLoading())
	})

	s.Run("reads return zero values", func() {
		s.Nil(st.GetOne(s.ctx, 1))
	})

	s.Run("mutations never reach the repository", func() {
		s.Nil(st.Create(s.ctx, s.newDraft("S-002")))
		s.Nil(st.Update(s.ctx, 1, s.newDraft("S-001")))
		s.False(st.Delete(s.ctx, 1))
		s.Zero(counting.calls)
	})
}

func (s *StoreSuite) TestLoadAll() {
	s.Run("replaces cache and metrics together", func() {
		s.seed("S-001", "S-002")
		st := s.newStore(s.repo)

		s.Require().NoError(st.LoadAll(s.ctx))
		s.Len(st.Participants(), 2)
		s.Require().NotNil(st.Metrics())
		s.Equal(2, st.Metrics().Total)
		s.False(st.IsLoading())
		s.Empty(st.Error())
	})

	s.Run("failure clears both and records the error", func() {
		s.seed("S-003")
		failing := &failingRepo{
			Repository: s.repo,
			failList:   dErrors.New(dErrors.CodeTransport, "connection refused"),
		}
		st := s.newStore(failing)

		err := st.LoadAll(s.ctx)
		s.Require().Error(err)
		s.Empty(st.Participants())
		s.Nil(st.Metrics())
		s.Equal("connection refused", st.Error())
		s.False(st.IsLoading())
	})

	s.Run("metrics failure alone also clears the list", func() {
		st := s.newStore(&failingRepo{
			Repository:  s.repo,
			failMetrics: dErrors.New(dErrors.CodeTransport, "metrics unavailable"),
		})

		s.Error(st.LoadAll(s.ctx))
		s.Empty(st.Participants())
		s.Nil(st.Metrics())
	})
}

func (s *StoreSuite) TestGetOne() {
	seeded := s.seed("S-001", "S-002", "S-003")
	st := s.newStore(s.repo)
	s.Require().NoError(st.LoadAll(s.ctx))

	s.Run("replaces an existing entry in place", func() {
		_, err := s.repo.Update(s.ctx, seeded[1].ID, models.Draft{
			SubjectID:      "S-002",
			StudyGroup:     models.StudyGroupControl,
			EnrollmentDate: "2024-03-01",
			Status:         models.StatusCompleted,
			Age:            46,
			Gender:         models.GenderFemale,
		})
		s.Require().NoError(err)

		got := st.GetOne(s.ctx, seeded[1].ID)
		s.Require().NotNil(got)
		s.Equal(models.StatusCompleted, got.Status)

		cached := st.Participants()
		s.Require().Len(cached, 3)
		s.Equal(seeded[0].ID, cached[0].ID, "ordering preserved")
		s.Equal(seeded[1].ID, cached[1].ID)
		s.Equal(models.StatusCompleted, cached[1].Status)
		s.Equal(seeded[2].ID, cached[2].ID)
	})

	s.Run("appends an entry the cache has not seen", func() {
		extra, err := s.repo.Create(s.ctx, s.newDraft("S-004"))
		s.Require().NoError(err)

		got := st.GetOne(s.ctx, extra.ID)
		s.Require().NotNil(got)
		cached := st.Participants()
		s.Len(cached, 4)
		s.Equal(extra.ID, cached[3].ID)
	})

	s.Run("failure records the error and leaves the cache alone", func() {
		before := st.Participants()
		s.Nil(st.GetOne(s.ctx, 999))
		s.NotEmpty(st.Error())
		s.Equal(before, st.Participants())
	})
}

func (s *StoreSuite) TestCreate() {
	s.Run("appends and refreshes metrics", func() {
		st := s.newStore(s.repo)
		s.Require().NoError(st.LoadAll(s.ctx))
		before := st.Metrics().Total

		created := st.Create(s.ctx, s.newDraft("S-010"))
		s.Require().NotNil(created)
		s.NotZero(created.ID)

		cached := st.Participants()
		s.Equal(created.ID, cached[len(cached)-1].ID)
		s.Require().NotNil(st.Metrics())
		s.Equal(before+1, st.Metrics().Total, "metrics.total grows by exactly one")
	})

	s.Run("local validation failure never calls the repository", func() {
		counting := &countingRepo{Repository: s.repo}
		st := s.newStore(counting)

		draft := s.newDraft("S-011")
		draft.Age = 200
		s.Nil(st.Create(s.ctx, draft))
		s.Equal("Age must be between 1 and 150", st.Error())
		s.Zero(counting.calls)
	})

	s.Run("remote failure leaves the cache unchanged", func() {
		st := s.newStore(&failingRepo{
			Repository: s.repo,
			failCreate: dErrors.New(dErrors.CodeConflict, "Subject ID already exists"),
		})
		s.Require().NoError(st.LoadAll(s.ctx))
		before := st.Participants()

		s.Nil(st.Create(s.ctx, s.newDraft("S-012")))
		s.Equal("Subject ID already exists", st.Error())
		s.Equal(before, st.Participants())
	})
}

func (s *StoreSuite) TestUpdate() {
	seeded := s.seed("S-001")

	s.Run("replaces the cache entry in place", func() {
		st := s.newStore(s.repo)
		s.Require().NoError(st.LoadAll(s.ctx))

		draft := s.newDraft("S-001")
		draft.Age = 46
		updated := st.Update(s.ctx, seeded[0].ID, draft)
		s.Require().NotNil(updated)
		s.Equal(46, updated.Age)
		s.Equal(46, st.Participants()[0].Age)
		s.Empty(st.Error())
	})

	s.Run("failure leaves the cached entity byte-for-byte unchanged", func() {
		st := s.newStore(&failingRepo{
			Repository: s.repo,
			failUpdate: dErrors.New(dErrors.CodeTransport, "connection reset"),
		})
		s.Require().NoError(st.LoadAll(s.ctx))
		before := st.Participants()[0]

		draft := s.newDraft("S-001")
		draft.Age = 99
		s.Nil(st.Update(s.ctx, seeded[0].ID, draft))
		s.Equal(before, st.Participants()[0])
		s.Equal("connection reset", st.Error())
	})
}

func (s *StoreSuite) TestDelete() {
	s.Run("removes the entry and refreshes metrics", func() {
		seeded := s.seed("S-001", "S-002")
		st := s.newStore(s.repo)
		s.Require().NoError(st.LoadAll(s.ctx))

		s.True(st.Delete(s.ctx, seeded[0].ID))
		cached := st.Participants()
		s.Require().Len(cached, 1)
		s.Equal(seeded[1].ID, cached[0].ID)
		s.Require().NotNil(st.Metrics())
		s.Equal(1, st.Metrics().Total)
	})

	s.Run("id absent from the cache still calls the repository", func() {
		orphan, err := s.repo.Create(s.ctx, s.newDraft("S-020"))
		s.Require().NoError(err)

		counting := &countingRepo{Repository: s.repo}
		st := s.newStore(counting)
		// Cache deliberately never loaded: empty.

		s.True(st.Delete(s.ctx, orphan.ID))
		s.Equal(1, counting.calls)
		s.Empty(st.Participants())
		s.NotNil(st.Metrics(), "metrics still refreshed")
	})

	s.Run("failure leaves the cache unchanged", func() {
		seeded := s.seed("S-030")
		st := s.newStore(&failingRepo{
			Repository: s.repo,
			failDelete: dErrors.New(dErrors.CodeTransport, "connection refused"),
		})
		s.Require().NoError(st.LoadAll(s.ctx))
		before := st.Participants()

		s.False(st.Delete(s.ctx, seeded[0].ID))
		s.Equal(before, st.Participants())
		s.Equal("connection refused", st.Error())
	})
}

func (s *StoreSuite) TestErrorSlot() {
	st := s.newStore(s.repo)

	s.Nil(st.GetOne(s.ctx, 999))
	s.NotEmpty(st.Error())

	st.ClearError()
	s.Empty(st.Error())

	s.Run("mutations clear the previous error before running", func() {
		s.Nil(st.GetOne(s.ctx, 999))
		s.NotEmpty(st.Error())

		created := st.Create(s.ctx, s.newDraft("S-040"))
		s.NotNil(created)
		s.Empty(st.Error())
	})
}

func (s *StoreSuite) TestMetricsRefreshFailureAfterMutation() {
	failing := &failingRepo{Repository: s.repo}
	st := s.newStore(failing)
	s.Require().NoError(st.LoadAll(s.ctx))

	failing.failMetrics = dErrors.New(dErrors.CodeTransport, "metrics unavailable")

	created := st.Create(s.ctx, s.newDraft("S-050"))
	s.Require().NotNil(created, "the confirmed create stands")
	s.Equal(created.ID, st.Participants()[0].ID)
	s.Nil(st.Metrics(), "stale aggregate dropped")
	s.Equal("metrics unavailable", st.Error())
}

func (s *StoreSuite) TestOnSessionChanged() {
	s.seed("S-001")
	st := s.newStore(s.repo)

	s.Require().NoError(st.OnSessionChanged(s.ctx))
	s.Len(st.Participants(), 1)

	s.auth.authenticated = false
	s.Require().NoError(st.OnSessionChanged(s.ctx))
	s.Empty(st.Participants())
	s.Nil(st.Metrics())
	s.Empty(st.Error())
}
