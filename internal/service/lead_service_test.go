package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendzz/internal/models"
)

func newLeadService() (*LeadService, *memSubmissionRepo) {
	repo := &memSubmissionRepo{quizzes: map[string]*models.Quiz{
		"quiz-1": {ID: "quiz-1", OwnerID: "owner-1"},
	}}
	return NewLeadService(repo), repo
}

func TestIngest_CreatesSubmission(t *testing.T) {
	svc, repo := newLeadService()

	submission, err := svc.Ingest(context.Background(), "owner-1", "quiz-1", SubmissionInput{
		Identity:   "  +5511900000001  ",
		Variables:  map[string]string{"nome": "Ana"},
		IsComplete: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "+5511900000001", submission.Identity, "identity is trimmed")
	assert.True(t, submission.IsComplete)
	assert.Len(t, repo.submissions, 1)
}

func TestIngest_NilVariablesBecomeEmptyMap(t *testing.T) {
	svc, _ := newLeadService()

	submission, err := svc.Ingest(context.Background(), "owner-1", "quiz-1", SubmissionInput{
		Identity: "+5511900000001",
	})
	require.NoError(t, err)
	assert.NotNil(t, submission.Variables)
}

func TestIngest_MissingIdentity(t *testing.T) {
	svc, _ := newLeadService()

	_, err := svc.Ingest(context.Background(), "owner-1", "quiz-1", SubmissionInput{Identity: "   "})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestIngest_ForeignQuizHidden(t *testing.T) {
	svc, _ := newLeadService()

	_, err := svc.Ingest(context.Background(), "owner-2", "quiz-1", SubmissionInput{Identity: "+5511900000001"})
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
}
