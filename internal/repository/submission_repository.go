package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"vendzz/internal/models"
)

type submissionRepository struct {
	db *sql.DB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// GetQuiz retrieves a quiz by ID
func (r *submissionRepository) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	query := `SELECT id, owner_id, title, created_at FROM quizzes WHERE id = $1`

	quiz := &models.Quiz{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&quiz.ID,
		&quiz.OwnerID,
		&quiz.Title,
		&quiz.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	return quiz, nil
}

// CreateSubmission stores a new lead captured by a quiz
func (r *submissionRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	variables, err := json.Marshal(submission.Variables)
	if err != nil {
		return fmt.Errorf("failed to encode submission variables: %w", err)
	}

	query := `
		INSERT INTO quiz_submissions (quiz_id, identity, variables, is_complete, submitted_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, CURRENT_TIMESTAMP))
		RETURNING id, submitted_at
	`

	var submittedAt *time.Time
	if !submission.SubmittedAt.IsZero() {
		submittedAt = &submission.SubmittedAt
	}

	err = r.db.QueryRowContext(
		ctx,
		query,
		submission.QuizID,
		submission.Identity,
		variables,
		submission.IsComplete,
		submittedAt,
	).Scan(&submission.ID, &submission.SubmittedAt)

	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetSubmissions retrieves a quiz's submissions ascending by submission time
func (r *submissionRepository) GetSubmissions(ctx context.Context, quizID string, minDate *time.Time) ([]*models.Submission, error) {
	query := `
		SELECT id, quiz_id, identity, variables, is_complete, submitted_at
		FROM quiz_submissions
		WHERE quiz_id = $1 AND ($2::timestamptz IS NULL OR submitted_at >= $2)
		ORDER BY submitted_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, quizID, minDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	defer rows.Close()

	submissions := []*models.Submission{}
	for rows.Next() {
		submission := &models.Submission{}
		var variables []byte
		err := rows.Scan(
			&submission.ID,
			&submission.QuizID,
			&submission.Identity,
			&variables,
			&submission.IsComplete,
			&submission.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if len(variables) > 0 {
			if err := json.Unmarshal(variables, &submission.Variables); err != nil {
				return nil, fmt.Errorf("failed to decode submission variables: %w", err)
			}
		}
		submissions = append(submissions, submission)
	}

	return submissions, nil
}
