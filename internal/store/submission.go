package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cybercards/apiserver/types"
)

// SubmissionRepository handles Postgres persistence for submissions.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `
	id, user_id, username, email, card_type, card_code, card_value,
	expiry_date, description, image_url, status, submitted_at,
	reviewed_at, admin_notes`

func (r *SubmissionRepository) Get(ctx context.Context, id string) (types.Submission, error) {
	const query = `
		SELECT` + submissionColumns + `
		FROM submissions
		WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	submission, err := scanSubmission(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Submission{}, ErrNotFound
		}
		return types.Submission{}, err
	}
	return submission, nil
}

func (r *SubmissionRepository) Create(ctx context.Context, submission types.Submission) (types.Submission, error) {
	submission.SubmittedAt = time.Now()

	const query = `
		INSERT INTO submissions (
			id, user_id, username, email, card_type, card_code, card_value,
			expiry_date, description, image_url, status, submitted_at,
			reviewed_at, admin_notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		submission.ID,
		submission.UserID,
		submission.Username,
		submission.Email,
		submission.CardType,
		submission.CardCode,
		submission.CardValue,
		submission.ExpiryDate,
		submission.Description,
		submission.ImageURL,
		submission.Status,
		submission.SubmittedAt,
		submission.ReviewedAt,
		submission.AdminNotes,
	)
	if err != nil {
		return types.Submission{}, err
	}
	return submission, nil
}

func (r *SubmissionRepository) ListAll(ctx context.Context) ([]types.Submission, error) {
	const query = `
		SELECT` + submissionColumns + `
		FROM submissions
		ORDER BY submitted_at, id`
	return r.list(ctx, query)
}

func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]types.Submission, error) {
	const query = `
		SELECT` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1
		ORDER BY submitted_at, id`
	return r.list(ctx, query, userID)
}

// MarkReviewed applies the review decision with a compare-and-swap on the
// pending status, so concurrent reviews of the same submission cannot both
// succeed. Status, notes and reviewed_at change in one statement.
func (r *SubmissionRepository) MarkReviewed(ctx context.Context, id string, status types.Status, notes *string, reviewedAt time.Time) (types.Submission, error) {
	const query = `
		UPDATE submissions
		SET status = $1,
			admin_notes = $2,
			reviewed_at = $3
		WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, status, notes, reviewedAt, id, types.StatusPending)
	if err != nil {
		return types.Submission{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Submission{}, err
	}
	if affected == 0 {
		// Distinguish a missing submission from one already reviewed.
		if _, err := r.Get(ctx, id); err != nil {
			return types.Submission{}, err
		}
		return types.Submission{}, ErrAlreadyReviewed
	}
	return r.Get(ctx, id)
}

func (r *SubmissionRepository) list(ctx context.Context, query string, args ...any) ([]types.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]types.Submission, 0)
	for rows.Next() {
		submission, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

func scanSubmission(scan func(dest ...any) error) (types.Submission, error) {
	var submission types.Submission
	err := scan(
		&submission.ID,
		&submission.UserID,
		&submission.Username,
		&submission.Email,
		&submission.CardType,
		&submission.CardCode,
		&submission.CardValue,
		&submission.ExpiryDate,
		&submission.Description,
		&submission.ImageURL,
		&submission.Status,
		&submission.SubmittedAt,
		&submission.ReviewedAt,
		&submission.AdminNotes,
	)
	if err != nil {
		return types.Submission{}, err
	}
	return submission, nil
}
