package models

import "time"

// Quiz is a lead source. Submissions against a quiz are the raw material the
// target resolver turns into recipients.
type Quiz struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Submission is one lead captured by a quiz: a channel address plus the
// personalization variables collected along the way.
type Submission struct {
	ID          int64             `json:"id" db:"id"`
	QuizID      string            `json:"quiz_id" db:"quiz_id"`
	Identity    string            `json:"identity" db:"identity"`
	Variables   map[string]string `json:"variables" db:"variables"`
	IsComplete  bool              `json:"is_complete" db:"is_complete"`
	SubmittedAt time.Time         `json:"submitted_at" db:"submitted_at"`
}

// Recipient is a resolved target address plus personalization variables.
// Recipients are recomputed on every dispatch cycle and never persisted.
type Recipient struct {
	Identity    string            `json:"identity"`
	Variables   map[string]string `json:"variables"`
	IsComplete  bool              `json:"is_complete"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// Recipient converts a submission into a dispatchable recipient.
func (s *Submission) Recipient() Recipient {
	return Recipient{
		Identity:    s.Identity,
		Variables:   s.Variables,
		IsComplete:  s.IsComplete,
		SubmittedAt: s.SubmittedAt,
	}
}
