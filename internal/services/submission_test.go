package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cybercards/apiserver/internal/events"
	"github.com/cybercards/apiserver/internal/store"
	"github.com/cybercards/apiserver/types"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []events.SubmissionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event events.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestService(t *testing.T) (*SubmissionService, *UserService, *recordingPublisher) {
	t.Helper()

	users := store.NewMemoryUserRepository()
	submissions := store.NewMemorySubmissionRepository()
	publisher := &recordingPublisher{}

	return NewSubmissionService(submissions, users, publisher), NewUserService(users), publisher
}

func registerTestUser(t *testing.T, users *UserService, username string) types.User {
	t.Helper()

	user, err := users.Register(context.Background(), username, username+"@example.com", "secret1")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func TestSubmitCreatesPending(t *testing.T) {
	service, users, publisher := newTestService(t)
	ctx := context.Background()
	alice := registerTestUser(t, users, "alice")

	submission, err := service.Submit(ctx, alice, SubmitInput{
		CardType:  "Amazon Pay",
		CardCode:  "AMZ-123",
		CardValue: "₹500",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if submission.Status != types.StatusPending {
		t.Fatalf("expected pending, got %s", submission.Status)
	}
	if submission.ReviewedAt != nil {
		t.Fatalf("expected nil ReviewedAt on a new submission")
	}
	if submission.Username != "alice" || submission.Email != "alice@example.com" {
		t.Fatalf("owner snapshot not captured: %s %s", submission.Username, submission.Email)
	}
	if submission.ID == "" {
		t.Fatalf("expected generated id")
	}

	if len(publisher.topics) != 1 || publisher.topics[0] != events.TopicSubmissionCreated {
		t.Fatalf("expected one %s event, got %v", events.TopicSubmissionCreated, publisher.topics)
	}
}

func TestListMineRedactsAndIsolatesOwners(t *testing.T) {
	service, users, _ := newTestService(t)
	ctx := context.Background()
	alice := registerTestUser(t, users, "alice")
	bob := registerTestUser(t, users, "bob")

	submitted, err := service.Submit(ctx, alice, SubmitInput{
		CardType:  "Amazon Pay",
		CardCode:  "AMZ-123",
		CardValue: "₹500",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	mine, err := service.ListMine(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(mine))
	}
	if mine[0].ID != submitted.ID {
		t.Fatalf("unexpected submission id: %s", mine[0].ID)
	}
	if mine[0].Status != types.StatusPending || mine[0].ReviewedAt != nil {
		t.Fatalf("expected pending with nil ReviewedAt")
	}

	others, err := service.ListMine(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list mine for bob: %v", err)
	}
	if len(others) != 0 {
		t.Fatalf("bob must not see alice's submissions, got %d", len(others))
	}
}

func TestReviewTransitions(t *testing.T) {
	service, users, publisher := newTestService(t)
	ctx := context.Background()
	alice := registerTestUser(t, users, "alice")

	submitted, err := service.Submit(ctx, alice, SubmitInput{
		CardType:  "Amazon Pay",
		CardCode:  "AMZ-123",
		CardValue: "₹500",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	notes := "verified manually"
	reviewed, err := service.Review(ctx, submitted.ID, types.StatusApproved, &notes)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != types.StatusApproved {
		t.Fatalf("unexpected status: %s", reviewed.Status)
	}
	if reviewed.ReviewedAt == nil {
		t.Fatalf("expected ReviewedAt to be set")
	}

	mine, err := service.ListMine(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if mine[0].Status != types.StatusApproved {
		t.Fatalf("owner view not updated: %s", mine[0].Status)
	}
	if mine[0].AdminNotes == nil || *mine[0].AdminNotes != notes {
		t.Fatalf("owner view missing notes: %v", mine[0].AdminNotes)
	}

	// Terminal states accept no further transitions.
	if _, err := service.Review(ctx, submitted.ID, types.StatusRejected, nil); !errors.Is(err, store.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	if _, err := service.Review(ctx, "missing", types.StatusApproved, nil); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := service.Review(ctx, submitted.ID, types.StatusPending, nil); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision for pending, got %v", err)
	}
	if _, err := service.Review(ctx, submitted.ID, types.Status("bogus"), nil); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision for bogus status, got %v", err)
	}

	if len(publisher.topics) != 2 || publisher.topics[1] != events.TopicSubmissionReviewed {
		t.Fatalf("expected created+reviewed events, got %v", publisher.topics)
	}
}

func TestStatsRecomputed(t *testing.T) {
	service, users, _ := newTestService(t)
	ctx := context.Background()
	alice := registerTestUser(t, users, "alice")
	registerTestUser(t, users, "bob")

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		submission, err := service.Submit(ctx, alice, SubmitInput{
			CardType:  "Steam",
			CardCode:  "STM-1",
			CardValue: "$25",
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, submission.ID)
	}

	if _, err := service.Review(ctx, ids[0], types.StatusApproved, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := service.Review(ctx, ids[1], types.StatusRejected, nil); err != nil {
		t.Fatalf("reject: %v", err)
	}

	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	want := types.Stats{
		TotalUsers:          2,
		TotalSubmissions:    4,
		PendingSubmissions:  2,
		ApprovedSubmissions: 1,
		RejectedSubmissions: 1,
	}
	if stats != want {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAuthenticateDoesNotLeakWhichCheckFailed(t *testing.T) {
	_, users, _ := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, users, "alice")

	_, unknownErr := users.Authenticate(ctx, "ghost", "secret1")
	_, wrongPassErr := users.Authenticate(ctx, "alice", "wrong")

	if !errors.Is(unknownErr, store.ErrNotFound) || !errors.Is(wrongPassErr, store.ErrNotFound) {
		t.Fatalf("expected identical ErrNotFound for both failures, got %v / %v", unknownErr, wrongPassErr)
	}

	if _, err := users.Authenticate(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("valid login failed: %v", err)
	}
}
