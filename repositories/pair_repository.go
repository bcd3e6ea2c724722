package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/lib/pq"
)

var (
	ErrPairNotFound      = errors.New("pair not found")
	ErrPairDancerInvalid = errors.New("pair references unknown dancer")
)

type PairRepository interface {
	// Create вставляет пару внутри переданной транзакции — пара создается
	// только вместе с обновлением статусов обоих танцоров.
	Create(ctx context.Context, exec SQLExecutor, pair *models.Pair) error
	GetByID(ctx context.Context, id int) (*models.Pair, error)
	List(ctx context.Context) ([]models.Pair, error)
	// ListByDancer возвращает все пары, где танцор занимает любой из слотов.
	ListByDancer(ctx context.Context, exec SQLExecutor, dancerID int) ([]models.Pair, error)
	// ExistsForEither проверяет, состоит ли хотя бы один из двух танцоров
	// в какой-либо паре.
	ExistsForEither(ctx context.Context, exec SQLExecutor, dancer1ID, dancer2ID int) (bool, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresPairRepository struct {
	db *sql.DB
}

func NewPostgresPairRepository(db *sql.DB) PairRepository {
	return &postgresPairRepository{db: db}
}

func (r *postgresPairRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPairRepository) Create(ctx context.Context, exec SQLExecutor, pair *models.Pair) error {
	query := `
		INSERT INTO pairs (dancer1_id, dancer2_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		pair.Dancer1ID,
		pair.Dancer2ID,
	).Scan(&pair.ID, &pair.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrPairDancerInvalid
		}
		return err
	}
	return nil
}

func (r *postgresPairRepository) GetByID(ctx context.Context, id int) (*models.Pair, error) {
	query := `
		SELECT id, dancer1_id, dancer2_id, created_at
		FROM pairs
		WHERE id = $1`

	pair := &models.Pair{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pair.ID,
		&pair.Dancer1ID,
		&pair.Dancer2ID,
		&pair.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPairNotFound
		}
		return nil, err
	}
	return pair, nil
}

func (r *postgresPairRepository) List(ctx context.Context) ([]models.Pair, error) {
	query := `
		SELECT id, dancer1_id, dancer2_id, created_at
		FROM pairs
		ORDER BY id ASC`
	return r.queryPairs(ctx, r.db, query)
}

func (r *postgresPairRepository) ListByDancer(ctx context.Context, exec SQLExecutor, dancerID int) ([]models.Pair, error) {
	query := `
		SELECT id, dancer1_id, dancer2_id, created_at
		FROM pairs
		WHERE dancer1_id = $1 OR dancer2_id = $1
		ORDER BY id ASC`
	return r.queryPairs(ctx, r.getExecutor(exec), query, dancerID)
}

func (r *postgresPairRepository) ExistsForEither(ctx context.Context, exec SQLExecutor, dancer1ID, dancer2ID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM pairs
			WHERE dancer1_id = ANY($1::int[]) OR dancer2_id = ANY($1::int[])
		)`

	var exists bool
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		pq.Array([]int{dancer1ID, dancer2ID}),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresPairRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM pairs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPairNotFound)
}

func (r *postgresPairRepository) queryPairs(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Pair, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make([]models.Pair, 0)
	for rows.Next() {
		var pair models.Pair
		if scanErr := rows.Scan(
			&pair.ID,
			&pair.Dancer1ID,
			&pair.Dancer2ID,
			&pair.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		pairs = append(pairs, pair)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return pairs, nil
}
