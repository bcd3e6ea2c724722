package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Pandnak/dancers-matcher/models"
)

var ErrDancerNotFound = errors.New("dancer not found")

type DancerRepository interface {
	Create(ctx context.Context, dancer *models.Dancer) error
	GetByID(ctx context.Context, id int) (*models.Dancer, error)
	// GetForUpdate читает танцора с блокировкой строки (SELECT ... FOR UPDATE).
	// Вызывается только внутри транзакции.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dancer, error)
	List(ctx context.Context) ([]models.Dancer, error)
	// ListCompatible возвращает танцоров противоположного пола в поиске с тем же
	// стилем (NULL-стиль совпадает с NULL-стилем), исключая самого танцора.
	ListCompatible(ctx context.Context, dancerID int, sex models.Sex, style *string) ([]models.Dancer, error)
	// Update пишет только профильные поля. Статус им не меняется.
	Update(ctx context.Context, dancer *models.Dancer) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.DancerStatus) error
	UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresDancerRepository struct {
	db *sql.DB
}

func NewPostgresDancerRepository(db *sql.DB) DancerRepository {
	return &postgresDancerRepository{db: db}
}

const dancerColumns = `id, name, secret_name, sex, age, height, style, level, status, photo_key`

func (r *postgresDancerRepository) Create(ctx context.Context, dancer *models.Dancer) error {
	query := `
		INSERT INTO dancers (name, secret_name, sex, age, height, style, level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		dancer.Name,
		dancer.SecretName,
		dancer.Sex,
		dancer.Age,
		dancer.Height,
		dancer.Style,
		dancer.Level,
		dancer.Status,
	).Scan(&dancer.ID)
}

func (r *postgresDancerRepository) GetByID(ctx context.Context, id int) (*models.Dancer, error) {
	query := `SELECT ` + dancerColumns + ` FROM dancers WHERE id = $1`
	return r.scanDancer(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresDancerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresDancerRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dancer, error) {
	query := `SELECT ` + dancerColumns + ` FROM dancers WHERE id = $1 FOR UPDATE`
	return r.scanDancer(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresDancerRepository) List(ctx context.Context) ([]models.Dancer, error) {
	query := `SELECT ` + dancerColumns + ` FROM dancers ORDER BY id ASC`
	return r.queryDancers(ctx, r.db, query)
}

func (r *postgresDancerRepository) ListCompatible(ctx context.Context, dancerID int, sex models.Sex, style *string) ([]models.Dancer, error) {
	query := `
		SELECT ` + dancerColumns + `
		FROM dancers
		WHERE id != $1
		  AND sex != $2
		  AND status = $3
		  AND style IS NOT DISTINCT FROM $4
		ORDER BY id ASC`
	return r.queryDancers(ctx, r.db, query, dancerID, sex, models.StatusInSearch, style)
}

func (r *postgresDancerRepository) Update(ctx context.Context, dancer *models.Dancer) error {
	query := `
		UPDATE dancers SET
			name = $1,
			secret_name = $2,
			sex = $3,
			age = $4,
			height = $5,
			style = $6,
			level = $7
		WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		dancer.Name,
		dancer.SecretName,
		dancer.Sex,
		dancer.Age,
		dancer.Height,
		dancer.Style,
		dancer.Level,
		dancer.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDancerNotFound)
}

func (r *postgresDancerRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.DancerStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE dancers SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDancerNotFound)
}

func (r *postgresDancerRepository) UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE dancers SET photo_key = $1 WHERE id = $2`, photoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDancerNotFound)
}

func (r *postgresDancerRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM dancers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDancerNotFound)
}

func (r *postgresDancerRepository) scanDancer(row *sql.Row) (*models.Dancer, error) {
	dancer := &models.Dancer{}
	err := row.Scan(
		&dancer.ID,
		&dancer.Name,
		&dancer.SecretName,
		&dancer.Sex,
		&dancer.Age,
		&dancer.Height,
		&dancer.Style,
		&dancer.Level,
		&dancer.Status,
		&dancer.PhotoKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDancerNotFound
		}
		return nil, err
	}
	return dancer, nil
}

func (r *postgresDancerRepository) queryDancers(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Dancer, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dancers := make([]models.Dancer, 0)
	for rows.Next() {
		var dancer models.Dancer
		if scanErr := rows.Scan(
			&dancer.ID,
			&dancer.Name,
			&dancer.SecretName,
			&dancer.Sex,
			&dancer.Age,
			&dancer.Height,
			&dancer.Style,
			&dancer.Level,
			&dancer.Status,
			&dancer.PhotoKey,
		); scanErr != nil {
			return nil, scanErr
		}
		dancers = append(dancers, dancer)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return dancers, nil
}
