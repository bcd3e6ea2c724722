package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/lib/pq"
)

var (
	ErrRequestNotFound      = errors.New("request not found")
	ErrRequestDancerInvalid = errors.New("request references unknown dancer")
)

type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id int) (*models.Request, error)
	List(ctx context.Context) ([]models.Request, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RequestStatus) error
	Delete(ctx context.Context, id int) error
	// DeleteByDancer удаляет все заявки, где танцор является отправителем или
	// получателем. Используется каскадом при удалении анкеты.
	DeleteByDancer(ctx context.Context, exec SQLExecutor, dancerID int) error
}

type postgresRequestRepository struct {
	db *sql.DB
}

func NewPostgresRequestRepository(db *sql.DB) RequestRepository {
	return &postgresRequestRepository{db: db}
}

func (r *postgresRequestRepository) Create(ctx context.Context, request *models.Request) error {
	query := `
		INSERT INTO requests (sender_id, receiver_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		request.SenderID,
		request.ReceiverID,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			// requests_sender_id_fkey / requests_receiver_id_fkey
			return ErrRequestDancerInvalid
		}
		return err
	}
	return nil
}

func (r *postgresRequestRepository) GetByID(ctx context.Context, id int) (*models.Request, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM requests
		WHERE id = $1`

	request := &models.Request{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&request.ID,
		&request.SenderID,
		&request.ReceiverID,
		&request.Status,
		&request.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

func (r *postgresRequestRepository) List(ctx context.Context) ([]models.Request, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM requests
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.Request, 0)
	for rows.Next() {
		var request models.Request
		if scanErr := rows.Scan(
			&request.ID,
			&request.SenderID,
			&request.ReceiverID,
			&request.Status,
			&request.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		requests = append(requests, request)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *postgresRequestRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRequestRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RequestStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE requests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRequestNotFound)
}

func (r *postgresRequestRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRequestNotFound)
}

func (r *postgresRequestRepository) DeleteByDancer(ctx context.Context, exec SQLExecutor, dancerID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx,
		`DELETE FROM requests WHERE sender_id = $1 OR receiver_id = $1`, dancerID)
	return err
}
