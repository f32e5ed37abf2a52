package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cybercards/apiserver/internal/events"
	"github.com/cybercards/apiserver/types"
	"github.com/google/uuid"
)

// ErrInvalidDecision is returned when a review decision is neither
// approved nor rejected.
var ErrInvalidDecision = errors.New("invalid review decision")

// SubmissionRepository defines persistence operations for submissions.
type SubmissionRepository interface {
	Get(ctx context.Context, id string) (types.Submission, error)
	Create(ctx context.Context, submission types.Submission) (types.Submission, error)
	ListAll(ctx context.Context) ([]types.Submission, error)
	ListByUser(ctx context.Context, userID string) ([]types.Submission, error)
	MarkReviewed(ctx context.Context, id string, status types.Status, notes *string, reviewedAt time.Time) (types.Submission, error)
}

// SubmitInput carries the validated payload of a new submission.
type SubmitInput struct {
	CardType    string
	CardCode    string
	CardValue   string
	ExpiryDate  *string
	Description *string
	ImageURL    *string
}

// SubmissionService encapsulates the submission review workflow.
type SubmissionService struct {
	repo      SubmissionRepository
	users     UserRepository
	publisher events.Publisher
}

func NewSubmissionService(repo SubmissionRepository, users UserRepository, publisher events.Publisher) *SubmissionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &SubmissionService{
		repo:      repo,
		users:     users,
		publisher: publisher,
	}
}

// Submit creates a pending submission owned by the given user. The owner's
// username and email are captured as a snapshot.
func (s *SubmissionService) Submit(ctx context.Context, owner types.User, input SubmitInput) (types.Submission, error) {
	submission := types.Submission{
		ID:          uuid.NewString(),
		UserID:      owner.ID,
		Username:    owner.Username,
		Email:       owner.Email,
		CardType:    input.CardType,
		CardCode:    input.CardCode,
		CardValue:   input.CardValue,
		ExpiryDate:  input.ExpiryDate,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Status:      types.StatusPending,
	}

	created, err := s.repo.Create(ctx, submission)
	if err != nil {
		return types.Submission{}, err
	}

	s.publish(ctx, events.TopicSubmissionCreated, created)
	return created, nil
}

// ListMine returns the owner's submissions in the redacted projection.
// The redemption code is never part of the result.
func (s *SubmissionService) ListMine(ctx context.Context, userID string) ([]types.OwnerSubmission, error) {
	submissions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]types.OwnerSubmission, 0, len(submissions))
	for _, submission := range submissions {
		views = append(views, submission.OwnerView())
	}
	return views, nil
}

// ListAll returns every submission at full fidelity, including the
// redemption code. Callers must gate this behind the reviewer role.
func (s *SubmissionService) ListAll(ctx context.Context) ([]types.Submission, error) {
	return s.repo.ListAll(ctx)
}

// Review applies a terminal decision to a pending submission. The store
// enforces the pending-only transition; a repeat review surfaces
// store.ErrAlreadyReviewed.
func (s *SubmissionService) Review(ctx context.Context, id string, decision types.Status, notes *string) (types.Submission, error) {
	if !decision.Terminal() {
		return types.Submission{}, ErrInvalidDecision
	}

	reviewed, err := s.repo.MarkReviewed(ctx, id, decision, notes, time.Now())
	if err != nil {
		return types.Submission{}, err
	}

	s.publish(ctx, events.TopicSubmissionReviewed, reviewed)
	return reviewed, nil
}

// Stats recomputes the aggregate counts by scanning current store state.
func (s *SubmissionService) Stats(ctx context.Context) (types.Stats, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return types.Stats{}, err
	}

	submissions, err := s.repo.ListAll(ctx)
	if err != nil {
		return types.Stats{}, err
	}

	stats := types.Stats{
		TotalUsers:       totalUsers,
		TotalSubmissions: len(submissions),
	}
	for _, submission := range submissions {
		switch submission.Status {
		case types.StatusPending:
			stats.PendingSubmissions++
		case types.StatusApproved:
			stats.ApprovedSubmissions++
		case types.StatusRejected:
			stats.RejectedSubmissions++
		}
	}
	return stats, nil
}

// publish is best effort: a broker outage must not fail the request.
func (s *SubmissionService) publish(ctx context.Context, topic string, submission types.Submission) {
	event := events.SubmissionEvent{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		Username:     submission.Username,
		CardType:     submission.CardType,
		Status:       submission.Status,
		OccurredAt:   time.Now(),
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		log.Printf("events: publish %s for submission %s: %v", topic, submission.ID, err)
	}
}
