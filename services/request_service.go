package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/repositories"
)

// PairFeed получает уведомления о создании и расторжении пар (live-лента).
type PairFeed interface {
	PairFormed(pair models.Pair)
	PairDissolved(pair models.Pair)
}

// RecommendationCache инвалидируется при каждом событии пары, так как статус
// танцора влияет на наборы кандидатов.
type RecommendationCache interface {
	GetKNN(ctx context.Context, dancerID, k int) ([]models.Dancer, bool, error)
	SetKNN(ctx context.Context, dancerID, k int, dancers []models.Dancer) error
	InvalidateDancers(ctx context.Context, dancerIDs ...int) error
}

type RequestService interface {
	Create(ctx context.Context, caller Caller, input CreateRequestInput) (*models.Request, error)
	GetByID(ctx context.Context, id int) (*models.Request, error)
	List(ctx context.Context) ([]models.Request, error)
	UpdateStatus(ctx context.Context, caller Caller, requestID int, status models.RequestStatus) (*models.Request, error)
	Delete(ctx context.Context, caller Caller, requestID int) error
}

type CreateRequestInput struct {
	SenderID   int `json:"sender_id"`
	ReceiverID int `json:"receiver_id"`
}

type requestService struct {
	requestRepo repositories.RequestRepository
	dancerRepo  repositories.DancerRepository
	pairRepo    repositories.PairRepository
	txRunner    repositories.TxRunner
	feed        PairFeed
	cache       RecommendationCache
	logger      *slog.Logger
}

func NewRequestService(
	requestRepo repositories.RequestRepository,
	dancerRepo repositories.DancerRepository,
	pairRepo repositories.PairRepository,
	txRunner repositories.TxRunner,
	feed PairFeed,
	cache RecommendationCache,
	logger *slog.Logger,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		dancerRepo:  dancerRepo,
		pairRepo:    pairRepo,
		txRunner:    txRunner,
		feed:        feed,
		cache:       cache,
		logger:      logger,
	}
}

func (s *requestService) Create(ctx context.Context, caller Caller, input CreateRequestInput) (*models.Request, error) {
	sender, err := s.dancerRepo.GetByID(ctx, input.SenderID)
	if err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, err
	}

	if !caller.CanActFor(sender.ID) {
		return nil, ErrForbiddenOperation
	}

	if _, err := s.dancerRepo.GetByID(ctx, input.ReceiverID); err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}

	request := &models.Request{
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		Status:     models.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		if errors.Is(err, repositories.ErrRequestDancerInvalid) {
			// Танцор удален между проверкой и вставкой.
			return nil, ErrDancerNotFound
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return request, nil
}

func (s *requestService) GetByID(ctx context.Context, id int) (*models.Request, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

func (s *requestService) List(ctx context.Context) ([]models.Request, error) {
	return s.requestRepo.List(ctx)
}

func (s *requestService) UpdateStatus(ctx context.Context, caller Caller, requestID int, status models.RequestStatus) (*models.Request, error) {
	switch status {
	case models.RequestStatusPending, models.RequestStatusAccepted, models.RequestStatusRejected:
	default:
		return nil, ErrInvalidRequestStatus
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if status != models.RequestStatusAccepted {
		if err := s.requestRepo.UpdateStatus(ctx, nil, requestID, status); err != nil {
			return nil, fmt.Errorf("failed to update request %d: %w", requestID, err)
		}
		request.Status = status
		return request, nil
	}

	pair, err := s.accept(ctx, request)
	if err != nil {
		return nil, err
	}
	request.Status = models.RequestStatusAccepted

	if s.feed != nil {
		s.feed.PairFormed(*pair)
	}
	if s.cache != nil {
		if invErr := s.cache.InvalidateDancers(ctx, pair.Dancer1ID, pair.Dancer2ID); invErr != nil {
			s.logger.Warn("failed to invalidate recommendation cache",
				slog.Int("pair_id", pair.ID), slog.Any("error", invErr))
		}
	}
	return request, nil
}

// accept атомарно создает пару и переводит обоих танцоров в IN_PAIR.
// Танцоры блокируются FOR UPDATE в порядке возрастания id, поэтому два
// конкурирующих принятия с общим танцором сериализуются и проигравший
// срезается на предусловии.
func (s *requestService) accept(ctx context.Context, request *models.Request) (*models.Pair, error) {
	var pair *models.Pair

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		sender, receiver, err := s.lockDancers(ctx, exec, request.SenderID, request.ReceiverID)
		if err != nil {
			return err
		}

		// Предусловия проверяются по порядку: каждое дает свою ошибку.
		if sender.Status != models.StatusInSearch || receiver.Status != models.StatusInSearch {
			return ErrDancersNotInSearch
		}
		if sender.ID == receiver.ID {
			return ErrSelfPair
		}
		if sender.Sex == receiver.Sex {
			return ErrSameSexPair
		}
		inPair, err := s.pairRepo.ExistsForEither(ctx, exec, sender.ID, receiver.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing pairs: %w", err)
		}
		if inPair {
			return ErrAlreadyInPair
		}

		pair = &models.Pair{Dancer1ID: sender.ID, Dancer2ID: receiver.ID}
		if err := s.pairRepo.Create(ctx, exec, pair); err != nil {
			return fmt.Errorf("failed to create pair: %w", err)
		}
		if err := s.dancerRepo.UpdateStatus(ctx, exec, sender.ID, models.StatusInPair); err != nil {
			return fmt.Errorf("failed to update sender status: %w", err)
		}
		if err := s.dancerRepo.UpdateStatus(ctx, exec, receiver.ID, models.StatusInPair); err != nil {
			return fmt.Errorf("failed to update receiver status: %w", err)
		}
		if err := s.requestRepo.UpdateStatus(ctx, exec, request.ID, models.RequestStatusAccepted); err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *requestService) lockDancers(ctx context.Context, exec repositories.SQLExecutor, senderID, receiverID int) (*models.Dancer, *models.Dancer, error) {
	lock := func(id int, notFound error) (*models.Dancer, error) {
		dancer, err := s.dancerRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrDancerNotFound) {
				return nil, notFound
			}
			return nil, err
		}
		return dancer, nil
	}

	if senderID == receiverID {
		dancer, err := lock(senderID, ErrSenderNotFound)
		if err != nil {
			return nil, nil, err
		}
		return dancer, dancer, nil
	}

	// Фиксированный порядок блокировки исключает взаимную блокировку
	// пересекающихся принятий.
	if senderID < receiverID {
		sender, err := lock(senderID, ErrSenderNotFound)
		if err != nil {
			return nil, nil, err
		}
		receiver, err := lock(receiverID, ErrReceiverNotFound)
		if err != nil {
			return nil, nil, err
		}
		return sender, receiver, nil
	}

	receiver, err := lock(receiverID, ErrReceiverNotFound)
	if err != nil {
		return nil, nil, err
	}
	sender, err := lock(senderID, ErrSenderNotFound)
	if err != nil {
		return nil, nil, err
	}
	return sender, receiver, nil
}

// Delete: администратор удаляет любую заявку, танцор — только те, где его
// анкета является отправителем или получателем.
func (s *requestService) Delete(ctx context.Context, caller Caller, requestID int) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return ErrRequestNotFound
		}
		return err
	}

	if !caller.CanActFor(request.SenderID) && !caller.CanActFor(request.ReceiverID) {
		return ErrForbiddenOperation
	}

	if err := s.requestRepo.Delete(ctx, requestID); err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("failed to delete request %d: %w", requestID, err)
	}
	return nil
}
