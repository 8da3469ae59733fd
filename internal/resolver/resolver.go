package resolver

import (
	"context"
	"errors"
	"fmt"

	"vendzz/internal/models"
	"vendzz/internal/repository"
	"vendzz/internal/service"
)

// TargetResolver turns an audience selector into the concrete recipient list
// at dispatch time. Resolution is read-only and recomputed on every cycle, so
// leads that arrive after campaign creation are picked up automatically.
type TargetResolver struct {
	submissions repository.SubmissionRepository
}

// NewTargetResolver creates a new target resolver
func NewTargetResolver(submissions repository.SubmissionRepository) *TargetResolver {
	return &TargetResolver{submissions: submissions}
}

// Resolve produces the recipients selected by the audience filter, ascending
// by submission time, de-duplicated by identity (first submission wins).
// An unknown source quiz is a NotFoundError; an empty audience is not an
// error, just an empty slice.
func (r *TargetResolver) Resolve(ctx context.Context, selector models.AudienceSelector) ([]models.Recipient, error) {
	if _, err := r.submissions.GetQuiz(ctx, selector.SourceQuizID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &service.NotFoundError{Resource: "quiz", ID: selector.SourceQuizID}
		}
		return nil, fmt.Errorf("failed to resolve audience source: %w", err)
	}

	submissions, err := r.submissions.GetSubmissions(ctx, selector.SourceQuizID, selector.MinDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	seen := map[string]bool{}
	recipients := []models.Recipient{}
	for _, submission := range submissions {
		if !matchesScope(selector.Scope, submission.IsComplete) {
			continue
		}
		if submission.Identity == "" || seen[submission.Identity] {
			continue
		}
		seen[submission.Identity] = true
		recipients = append(recipients, submission.Recipient())
	}

	return recipients, nil
}

func matchesScope(scope models.AudienceScope, isComplete bool) bool {
	switch scope {
	case models.ScopeCompleted:
		return isComplete
	case models.ScopeAbandoned:
		return !isComplete
	default:
		return true
	}
}
