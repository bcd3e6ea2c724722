package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairFixture struct {
	dancerRepo *fakeDancerRepo
	pairRepo   *fakePairRepo
	feed       *fakePairFeed
	cache      *fakeRecommendationCache
	writes     *writeLog
	service    services.PairService
}

func newPairFixture() *pairFixture {
	f := &pairFixture{
		dancerRepo: newFakeDancerRepo(),
		pairRepo:   newFakePairRepo(),
		feed:       &fakePairFeed{},
		cache:      newFakeRecommendationCache(),
		writes:     &writeLog{},
	}
	f.dancerRepo.log = f.writes
	f.pairRepo.log = f.writes
	f.service = services.NewPairService(
		f.pairRepo, f.dancerRepo, fakeTxRunner{}, f.feed, f.cache, testLogger(),
	)
	return f
}

func (f *pairFixture) addPairedDancers() (*models.Dancer, *models.Dancer, *models.Pair) {
	d1 := f.dancerRepo.add(models.Dancer{Name: "a", SecretName: "a", Sex: models.SexMale, Status: models.StatusInPair})
	d2 := f.dancerRepo.add(models.Dancer{Name: "b", SecretName: "b", Sex: models.SexFemale, Status: models.StatusInPair})
	pair := f.pairRepo.add(models.Pair{Dancer1ID: d1.ID, Dancer2ID: d2.ID})
	return d1, d2, pair
}

func TestPairGetByID(t *testing.T) {
	f := newPairFixture()
	d1, d2, pair := f.addPairedDancers()

	response, err := f.service.GetByID(context.Background(), pair.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.ID, response.ID)
	assert.Equal(t, d1.ID, response.Dancer1.ID)
	assert.Equal(t, d2.ID, response.Dancer2.ID)

	_, err = f.service.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, services.ErrPairNotFound)
}

func TestPairDelete(t *testing.T) {
	t.Run("both dancers return to search", func(t *testing.T) {
		f := newPairFixture()
		d1, d2, pair := f.addPairedDancers()

		require.NoError(t, f.service.Delete(context.Background(), adminCaller(), pair.ID))

		for _, id := range []int{d1.ID, d2.ID} {
			dancer, err := f.dancerRepo.GetByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, models.StatusInSearch, dancer.Status)
		}
		require.Len(t, f.feed.dissolved, 1)
		assert.ElementsMatch(t, []int{d1.ID, d2.ID}, f.cache.invalidated)

		// Удаление пары и возврат статусов идут одной транзакцией.
		assert.Equal(t, []string{
			fmt.Sprintf("pair.Delete(%d)/tx", pair.ID),
			fmt.Sprintf("dancer.UpdateStatus(%d)/tx", d1.ID),
			fmt.Sprintf("dancer.UpdateStatus(%d)/tx", d2.ID),
		}, f.writes.entries)
	})

	t.Run("dancer with another pair keeps IN_PAIR", func(t *testing.T) {
		f := newPairFixture()
		d1, d2, pair := f.addPairedDancers()
		d3 := f.dancerRepo.add(models.Dancer{Name: "c", SecretName: "c", Sex: models.SexFemale, Status: models.StatusInPair})
		f.pairRepo.add(models.Pair{Dancer1ID: d1.ID, Dancer2ID: d3.ID})

		require.NoError(t, f.service.Delete(context.Background(), adminCaller(), pair.ID))

		dancer1, _ := f.dancerRepo.GetByID(context.Background(), d1.ID)
		assert.Equal(t, models.StatusInPair, dancer1.Status)
		dancer2, _ := f.dancerRepo.GetByID(context.Background(), d2.ID)
		assert.Equal(t, models.StatusInSearch, dancer2.Status)
	})

	t.Run("member of the pair can dissolve it", func(t *testing.T) {
		f := newPairFixture()
		d1, _, pair := f.addPairedDancers()

		assert.NoError(t, f.service.Delete(context.Background(), dancerCaller(d1.ID), pair.ID))
	})

	t.Run("outsider cannot dissolve", func(t *testing.T) {
		f := newPairFixture()
		_, _, pair := f.addPairedDancers()
		outsider := f.dancerRepo.add(models.Dancer{Name: "x", SecretName: "x", Sex: models.SexMale, Status: models.StatusInSearch})

		err := f.service.Delete(context.Background(), dancerCaller(outsider.ID), pair.ID)
		assert.ErrorIs(t, err, services.ErrForbiddenOperation)
	})

	t.Run("unknown pair", func(t *testing.T) {
		f := newPairFixture()
		err := f.service.Delete(context.Background(), adminCaller(), 404)
		assert.ErrorIs(t, err, services.ErrPairNotFound)
	})
}
