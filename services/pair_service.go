package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/repositories"
)

type PairService interface {
	GetByID(ctx context.Context, id int) (*models.PairResponse, error)
	List(ctx context.Context) ([]models.PairResponse, error)
	Delete(ctx context.Context, caller Caller, pairID int) error
}

type pairService struct {
	pairRepo   repositories.PairRepository
	dancerRepo repositories.DancerRepository
	txRunner   repositories.TxRunner
	feed       PairFeed
	cache      RecommendationCache
	logger     *slog.Logger
}

func NewPairService(
	pairRepo repositories.PairRepository,
	dancerRepo repositories.DancerRepository,
	txRunner repositories.TxRunner,
	feed PairFeed,
	cache RecommendationCache,
	logger *slog.Logger,
) PairService {
	return &pairService{
		pairRepo:   pairRepo,
		dancerRepo: dancerRepo,
		txRunner:   txRunner,
		feed:       feed,
		cache:      cache,
		logger:     logger,
	}
}

func (s *pairService) GetByID(ctx context.Context, id int) (*models.PairResponse, error) {
	pair, err := s.pairRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPairNotFound) {
			return nil, ErrPairNotFound
		}
		return nil, err
	}
	return s.buildResponse(ctx, pair)
}

func (s *pairService) List(ctx context.Context) ([]models.PairResponse, error) {
	pairs, err := s.pairRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]models.PairResponse, 0, len(pairs))
	for i := range pairs {
		response, err := s.buildResponse(ctx, &pairs[i])
		if err != nil {
			return nil, err
		}
		responses = append(responses, *response)
	}
	return responses, nil
}

// Delete расторгает пару. Каждый из танцоров независимо возвращается
// в IN_SEARCH, если после удаления он не состоит ни в одной другой паре.
func (s *pairService) Delete(ctx context.Context, caller Caller, pairID int) error {
	pair, err := s.pairRepo.GetByID(ctx, pairID)
	if err != nil {
		if errors.Is(err, repositories.ErrPairNotFound) {
			return ErrPairNotFound
		}
		return err
	}

	allowed := caller.IsAdmin() ||
		(caller.DancerID != nil && pair.ContainsDancer(*caller.DancerID))
	if !allowed {
		return ErrForbiddenOperation
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		// Блокировка обоих танцоров в порядке возрастания id сериализует
		// расторжение с конкурирующими принятиями заявок.
		firstID, secondID := pair.Dancer1ID, pair.Dancer2ID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		for _, dancerID := range []int{firstID, secondID} {
			if _, err := s.dancerRepo.GetForUpdate(ctx, exec, dancerID); err != nil {
				if errors.Is(err, repositories.ErrDancerNotFound) {
					return ErrDancerNotFound
				}
				return err
			}
		}

		if err := s.pairRepo.Delete(ctx, exec, pairID); err != nil {
			if errors.Is(err, repositories.ErrPairNotFound) {
				return ErrPairNotFound
			}
			return err
		}

		for _, dancerID := range []int{pair.Dancer1ID, pair.Dancer2ID} {
			if err := s.recomputeStatus(ctx, exec, dancerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.feed != nil {
		s.feed.PairDissolved(*pair)
	}
	if s.cache != nil {
		if invErr := s.cache.InvalidateDancers(ctx, pair.Dancer1ID, pair.Dancer2ID); invErr != nil {
			s.logger.Warn("failed to invalidate recommendation cache",
				slog.Int("pair_id", pairID), slog.Any("error", invErr))
		}
	}
	return nil
}

// recomputeStatus возвращает танцора в IN_SEARCH, только если он был IN_PAIR
// и больше не упоминается ни в одной паре. Повторный вызов — no-op.
func (s *pairService) recomputeStatus(ctx context.Context, exec repositories.SQLExecutor, dancerID int) error {
	remaining, err := s.pairRepo.ListByDancer(ctx, exec, dancerID)
	if err != nil {
		return fmt.Errorf("failed to list remaining pairs of dancer %d: %w", dancerID, err)
	}
	if len(remaining) > 0 {
		return nil
	}

	dancer, err := s.dancerRepo.GetForUpdate(ctx, exec, dancerID)
	if err != nil {
		return fmt.Errorf("failed to load dancer %d: %w", dancerID, err)
	}
	if dancer.Status != models.StatusInPair {
		return nil
	}
	return s.dancerRepo.UpdateStatus(ctx, exec, dancerID, models.StatusInSearch)
}

func (s *pairService) buildResponse(ctx context.Context, pair *models.Pair) (*models.PairResponse, error) {
	dancer1, err := s.dancerRepo.GetByID(ctx, pair.Dancer1ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dancer %d of pair %d: %w", pair.Dancer1ID, pair.ID, err)
	}
	dancer2, err := s.dancerRepo.GetByID(ctx, pair.Dancer2ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dancer %d of pair %d: %w", pair.Dancer2ID, pair.ID, err)
	}

	return &models.PairResponse{
		ID:        pair.ID,
		Dancer1:   *dancer1,
		Dancer2:   *dancer2,
		CreatedAt: pair.CreatedAt,
	}, nil
}
