package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/repositories"
	"github.com/Pandnak/dancers-matcher/storage"
	"github.com/go-playground/validator/v10"
)

type DancerService interface {
	Create(ctx context.Context, input CreateDancerInput) (*models.Dancer, error)
	GetByID(ctx context.Context, id int) (*models.Dancer, error)
	List(ctx context.Context) ([]models.Dancer, error)
	UpdateProfile(ctx context.Context, caller Caller, dancerID int, input UpdateDancerInput) (*models.Dancer, error)
	Delete(ctx context.Context, caller Caller, dancerID int) error
	UploadPhoto(ctx context.Context, caller Caller, dancerID int, contentType string, photo io.Reader) (*models.Dancer, error)
	DeletePhoto(ctx context.Context, caller Caller, dancerID int) error
}

type CreateDancerInput struct {
	Name       string     `json:"name" validate:"required"`
	SecretName string     `json:"secret_name" validate:"required"`
	Sex        models.Sex `json:"sex" validate:"required,oneof=MALE FEMALE"`
	Age        *int       `json:"age" validate:"omitempty,gt=0"`
	Height     *float64   `json:"height" validate:"omitempty,gt=0"`
	Style      *string    `json:"style"`
	Level      *string    `json:"level"`
}

// UpdateDancerInput намеренно не содержит статуса: статус — производное
// состояние, им управляет только жизненный цикл пар.
type UpdateDancerInput struct {
	Name       *string     `json:"name" validate:"omitempty,min=1"`
	SecretName *string     `json:"secret_name" validate:"omitempty,min=1"`
	Sex        *models.Sex `json:"sex" validate:"omitempty,oneof=MALE FEMALE"`
	Age        *int        `json:"age" validate:"omitempty,gt=0"`
	Height     *float64    `json:"height" validate:"omitempty,gt=0"`
	Style      *string     `json:"style"`
	Level      *string     `json:"level"`
}

type dancerService struct {
	dancerRepo  repositories.DancerRepository
	requestRepo repositories.RequestRepository
	pairRepo    repositories.PairRepository
	txRunner    repositories.TxRunner
	uploader    storage.FileUploader
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewDancerService(
	dancerRepo repositories.DancerRepository,
	requestRepo repositories.RequestRepository,
	pairRepo repositories.PairRepository,
	txRunner repositories.TxRunner,
	uploader storage.FileUploader,
	logger *slog.Logger,
) DancerService {
	return &dancerService{
		dancerRepo:  dancerRepo,
		requestRepo: requestRepo,
		pairRepo:    pairRepo,
		txRunner:    txRunner,
		uploader:    uploader,
		validate:    validator.New(),
		logger:      logger,
	}
}

func (s *dancerService) Create(ctx context.Context, input CreateDancerInput) (*models.Dancer, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	dancer := &models.Dancer{
		Name:       input.Name,
		SecretName: input.SecretName,
		Sex:        input.Sex,
		Age:        input.Age,
		Height:     input.Height,
		Style:      input.Style,
		Level:      input.Level,
		Status:     models.StatusInSearch,
	}

	if err := s.dancerRepo.Create(ctx, dancer); err != nil {
		return nil, fmt.Errorf("failed to create dancer: %w", err)
	}
	return dancer, nil
}

func (s *dancerService) GetByID(ctx context.Context, id int) (*models.Dancer, error) {
	dancer, err := s.dancerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return nil, ErrDancerNotFound
		}
		return nil, err
	}
	s.attachPhotoURL(dancer)
	return dancer, nil
}

func (s *dancerService) List(ctx context.Context) ([]models.Dancer, error) {
	dancers, err := s.dancerRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range dancers {
		s.attachPhotoURL(&dancers[i])
	}
	return dancers, nil
}

func (s *dancerService) UpdateProfile(ctx context.Context, caller Caller, dancerID int, input UpdateDancerInput) (*models.Dancer, error) {
	if !caller.CanActFor(dancerID) {
		return nil, ErrForbiddenOperation
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	dancer, err := s.dancerRepo.GetByID(ctx, dancerID)
	if err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return nil, ErrDancerNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		dancer.Name = *input.Name
	}
	if input.SecretName != nil {
		dancer.SecretName = *input.SecretName
	}
	if input.Sex != nil {
		dancer.Sex = *input.Sex
	}
	if input.Age != nil {
		dancer.Age = input.Age
	}
	if input.Height != nil {
		dancer.Height = input.Height
	}
	if input.Style != nil {
		dancer.Style = input.Style
	}
	if input.Level != nil {
		dancer.Level = input.Level
	}

	if err := s.dancerRepo.Update(ctx, dancer); err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return nil, ErrDancerNotFound
		}
		return nil, fmt.Errorf("failed to update dancer %d: %w", dancerID, err)
	}

	s.attachPhotoURL(dancer)
	return dancer, nil
}

// Delete удаляет анкету вместе с её заявками. Пока танцор состоит хотя бы
// в одной паре, удаление отклоняется: сначала пара должна быть расторгнута.
func (s *dancerService) Delete(ctx context.Context, caller Caller, dancerID int) error {
	if !caller.CanActFor(dancerID) {
		return ErrForbiddenOperation
	}

	dancer, err := s.dancerRepo.GetByID(ctx, dancerID)
	if err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return ErrDancerNotFound
		}
		return err
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		pairs, err := s.pairRepo.ListByDancer(ctx, exec, dancerID)
		if err != nil {
			return fmt.Errorf("failed to list pairs of dancer %d: %w", dancerID, err)
		}
		if len(pairs) > 0 {
			return ErrDancerInPair
		}
		if err := s.requestRepo.DeleteByDancer(ctx, exec, dancerID); err != nil {
			return fmt.Errorf("failed to delete requests of dancer %d: %w", dancerID, err)
		}
		if err := s.dancerRepo.Delete(ctx, exec, dancerID); err != nil {
			if errors.Is(err, repositories.ErrDancerNotFound) {
				return ErrDancerNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if dancer.PhotoKey != nil && s.uploader != nil {
		if delErr := s.uploader.Delete(ctx, *dancer.PhotoKey); delErr != nil {
			s.logger.Warn("failed to delete dancer photo from storage",
				slog.Int("dancer_id", dancerID), slog.Any("error", delErr))
		}
	}
	return nil
}

func (s *dancerService) UploadPhoto(ctx context.Context, caller Caller, dancerID int, contentType string, photo io.Reader) (*models.Dancer, error) {
	if !caller.CanActFor(dancerID) {
		return nil, ErrForbiddenOperation
	}
	if s.uploader == nil {
		return nil, ErrPhotoStorageDisabled
	}

	dancer, err := s.dancerRepo.GetByID(ctx, dancerID)
	if err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return nil, ErrDancerNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("dancers/%d/photo", dancerID)
	result, err := s.uploader.Upload(ctx, key, contentType, photo)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo for dancer %d: %w", dancerID, err)
	}

	if err := s.dancerRepo.UpdatePhotoKey(ctx, dancerID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store photo key for dancer %d: %w", dancerID, err)
	}

	dancer.PhotoKey = &result.Key
	s.attachPhotoURL(dancer)
	return dancer, nil
}

func (s *dancerService) DeletePhoto(ctx context.Context, caller Caller, dancerID int) error {
	if !caller.CanActFor(dancerID) {
		return ErrForbiddenOperation
	}
	if s.uploader == nil {
		return ErrPhotoStorageDisabled
	}

	dancer, err := s.dancerRepo.GetByID(ctx, dancerID)
	if err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return ErrDancerNotFound
		}
		return err
	}
	if dancer.PhotoKey == nil {
		return nil
	}

	if err := s.uploader.Delete(ctx, *dancer.PhotoKey); err != nil {
		return fmt.Errorf("failed to delete photo of dancer %d: %w", dancerID, err)
	}
	return s.dancerRepo.UpdatePhotoKey(ctx, dancerID, nil)
}

func (s *dancerService) attachPhotoURL(dancer *models.Dancer) {
	if dancer.PhotoKey != nil && s.uploader != nil {
		dancer.PhotoURL = s.uploader.GetPublicURL(*dancer.PhotoKey)
	}
}
