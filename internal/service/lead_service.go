package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vendzz/internal/models"
	"vendzz/internal/repository"
)

// SubmissionInput is the payload for ingesting one lead.
type SubmissionInput struct {
	Identity   string            `json:"identity"`
	Variables  map[string]string `json:"variables"`
	IsComplete bool              `json:"is_complete"`
}

// LeadService handles quiz submission ingestion. New submissions become
// dispatch targets on the next cycle of any campaign over the same quiz.
type LeadService struct {
	submissions repository.SubmissionRepository
}

// NewLeadService creates a new lead service
func NewLeadService(submissions repository.SubmissionRepository) *LeadService {
	return &LeadService{submissions: submissions}
}

// Ingest records a submission against the owner's quiz.
func (s *LeadService) Ingest(ctx context.Context, ownerID, quizID string, input SubmissionInput) (*models.Submission, error) {
	identity := strings.TrimSpace(input.Identity)
	if identity == "" {
		return nil, &ValidationError{Message: "identity is required"}
	}

	quiz, err := s.submissions.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "quiz", ID: quizID}
		}
		return nil, fmt.Errorf("failed to look up quiz: %w", err)
	}
	if quiz.OwnerID != ownerID {
		return nil, &NotFoundError{Resource: "quiz", ID: quizID}
	}

	submission := &models.Submission{
		QuizID:     quizID,
		Identity:   identity,
		Variables:  input.Variables,
		IsComplete: input.IsComplete,
	}
	if submission.Variables == nil {
		submission.Variables = map[string]string{}
	}

	if err := s.submissions.CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	return submission, nil
}
