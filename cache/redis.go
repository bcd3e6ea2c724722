package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/redis/go-redis/v9"
)

const knnTTL = time.Minute

// RecommendationCache хранит KNN-выдачи в Redis. Инвалидация выполняется
// через счетчик версии танцора: событие пары инкрементирует версию, и все
// закэшированные выдачи этого танцора перестают находиться по ключу.
type RecommendationCache struct {
	client *redis.Client
}

// NewRecommendationCache создает клиента Redis. Обязателен только адрес.
func NewRecommendationCache(addr, password string, db int) *RecommendationCache {
	opts := &redis.Options{Addr: addr}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	return &RecommendationCache{client: redis.NewClient(opts)}
}

func (c *RecommendationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RecommendationCache) Close() error {
	return c.client.Close()
}

func (c *RecommendationCache) GetKNN(ctx context.Context, dancerID, k int) ([]models.Dancer, bool, error) {
	version, err := c.version(ctx, dancerID)
	if err != nil {
		return nil, false, err
	}

	raw, err := c.client.Get(ctx, knnKey(dancerID, k, version)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var dancers []models.Dancer
	if err := json.Unmarshal([]byte(raw), &dancers); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry for dancer %d: %w", dancerID, err)
	}
	return dancers, true, nil
}

func (c *RecommendationCache) SetKNN(ctx context.Context, dancerID, k int, dancers []models.Dancer) error {
	version, err := c.version(ctx, dancerID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(dancers)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, knnKey(dancerID, k, version), raw, knnTTL).Err()
}

func (c *RecommendationCache) InvalidateDancers(ctx context.Context, dancerIDs ...int) error {
	for _, dancerID := range dancerIDs {
		if err := c.client.Incr(ctx, versionKey(dancerID)).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *RecommendationCache) version(ctx context.Context, dancerID int) (int64, error) {
	raw, err := c.client.Get(ctx, versionKey(dancerID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func versionKey(dancerID int) string {
	return fmt.Sprintf("recs:ver:%d", dancerID)
}

func knnKey(dancerID, k int, version int64) string {
	return fmt.Sprintf("recs:knn:%d:%d:v%d", dancerID, k, version)
}
