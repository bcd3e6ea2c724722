package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/repositories"
	"golang.org/x/sync/singleflight"
)

const (
	// KNNDefaultK применяется, когда клиент не передал k.
	KNNDefaultK = 5
	KNNMaxK     = 20

	// Защита от нулевой дисперсии при нормализации признаков.
	knnEpsilon = 1e-8
)

// levelOrder — порядковая шкала танцевальных разрядов от новичка (N) до
// высшего (S). Неизвестный или пустой разряд дает 0.
var levelOrder = map[string]int{
	"S": 8,
	"M": 7,
	"A": 6,
	"B": 5,
	"C": 4,
	"D": 3,
	"E": 2,
	"N": 1,
}

func levelValue(level *string) int {
	if level == nil || *level == "" {
		return 0
	}
	return levelOrder[strings.ToUpper(*level)]
}

type RecommendationService interface {
	Basic(ctx context.Context, dancerID int) ([]models.Dancer, error)
	KNN(ctx context.Context, dancerID, k int) ([]models.Dancer, error)
}

type recommendationService struct {
	dancerRepo repositories.DancerRepository
	cache      RecommendationCache
	group      singleflight.Group
	logger     *slog.Logger
}

func NewRecommendationService(
	dancerRepo repositories.DancerRepository,
	cache RecommendationCache,
	logger *slog.Logger,
) RecommendationService {
	return &recommendationService{
		dancerRepo: dancerRepo,
		cache:      cache,
		logger:     logger,
	}
}

// Basic отбирает кандидатов по правилам: противоположный пол, статус
// IN_SEARCH, совпадающий стиль (отсутствие стиля совпадает с отсутствием)
// и разница разрядов не больше одной ступени. Порядок — порядок вставки.
func (s *recommendationService) Basic(ctx context.Context, dancerID int) ([]models.Dancer, error) {
	dancer, err := s.getDancer(ctx, dancerID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.dancerRepo.ListCompatible(ctx, dancer.ID, dancer.Sex, dancer.Style)
	if err != nil {
		return nil, fmt.Errorf("failed to list compatible dancers: %w", err)
	}

	currentLevel := levelValue(dancer.Level)
	recommended := make([]models.Dancer, 0, len(candidates))
	for _, candidate := range candidates {
		diff := levelValue(candidate.Level) - currentLevel
		if diff < 0 {
			diff = -diff
		}
		if diff <= 1 {
			recommended = append(recommended, candidate)
		}
	}
	return recommended, nil
}

// KNN уточняет базовый набор методом k ближайших соседей по вектору
// [разряд, возраст, рост] с z-нормализацией по популяции кандидатов.
func (s *recommendationService) KNN(ctx context.Context, dancerID, k int) ([]models.Dancer, error) {
	if k < 1 || k > KNNMaxK {
		return nil, ErrInvalidKNNLimit
	}

	dancer, err := s.getDancer(ctx, dancerID)
	if err != nil {
		return nil, err
	}
	if dancer.Age == nil || dancer.Height == nil {
		return nil, ErrAgeHeightRequired
	}

	if s.cache != nil {
		cached, ok, cacheErr := s.cache.GetKNN(ctx, dancerID, k)
		if cacheErr != nil {
			s.logger.Warn("recommendation cache read failed",
				slog.Int("dancer_id", dancerID), slog.Any("error", cacheErr))
		} else if ok {
			return cached, nil
		}
	}

	// singleflight схлопывает конкурирующие пересчеты для одного танцора.
	key := fmt.Sprintf("knn:%d:%d", dancerID, k)
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		recommended, err := s.computeKNN(ctx, dancer, k)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if cacheErr := s.cache.SetKNN(ctx, dancerID, k, recommended); cacheErr != nil {
				s.logger.Warn("recommendation cache write failed",
					slog.Int("dancer_id", dancerID), slog.Any("error", cacheErr))
			}
		}
		return recommended, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Dancer), nil
}

func (s *recommendationService) computeKNN(ctx context.Context, dancer *models.Dancer, k int) ([]models.Dancer, error) {
	base, err := s.Basic(ctx, dancer.ID)
	if err != nil {
		return nil, err
	}

	valid := make([]models.Dancer, 0, len(base))
	features := make([][3]float64, 0, len(base))
	for _, candidate := range base {
		if candidate.Age == nil || candidate.Height == nil || candidate.Level == nil {
			continue
		}
		valid = append(valid, candidate)
		features = append(features, [3]float64{
			float64(levelValue(candidate.Level)),
			float64(*candidate.Age),
			*candidate.Height,
		})
	}
	if len(valid) == 0 {
		return []models.Dancer{}, nil
	}

	query := [3]float64{
		float64(levelValue(dancer.Level)),
		float64(*dancer.Age),
		*dancer.Height,
	}

	var mean, std [3]float64
	for dim := 0; dim < 3; dim++ {
		for _, f := range features {
			mean[dim] += f[dim]
		}
		mean[dim] /= float64(len(features))
		for _, f := range features {
			d := f[dim] - mean[dim]
			std[dim] += d * d
		}
		std[dim] = math.Sqrt(std[dim] / float64(len(features)))
	}

	normalize := func(v [3]float64) [3]float64 {
		var out [3]float64
		for dim := 0; dim < 3; dim++ {
			out[dim] = (v[dim] - mean[dim]) / (std[dim] + knnEpsilon)
		}
		return out
	}

	queryNorm := normalize(query)
	distances := make([]float64, len(features))
	for i, f := range features {
		norm := normalize(f)
		var sum float64
		for dim := 0; dim < 3; dim++ {
			d := norm[dim] - queryNorm[dim]
			sum += d * d
		}
		distances[i] = math.Sqrt(sum)
	}

	order := make([]int, len(valid))
	for i := range order {
		order[i] = i
	}
	// Стабильная сортировка: при равных дистанциях сохраняется исходный
	// порядок кандидатов.
	sort.SliceStable(order, func(i, j int) bool {
		return distances[order[i]] < distances[order[j]]
	})

	if k > len(order) {
		k = len(order)
	}
	recommended := make([]models.Dancer, 0, k)
	for _, idx := range order[:k] {
		recommended = append(recommended, valid[idx])
	}
	return recommended, nil
}

func (s *recommendationService) getDancer(ctx context.Context, dancerID int) (*models.Dancer, error) {
	dancer, err := s.dancerRepo.GetByID(ctx, dancerID)
	if err != nil {
		if errors.Is(err, repositories.ErrDancerNotFound) {
			return nil, ErrDancerNotFound
		}
		return nil, err
	}
	return dancer, nil
}
