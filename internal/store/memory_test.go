package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cybercards/apiserver/types"
)

func TestMemoryUserRepositoryDuplicates(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, types.User{ID: "u1", Username: "alice", Email: "alice@x.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err = repo.Create(ctx, types.User{ID: "u2", Username: "alice", Email: "other@x.com"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for username, got %v", err)
	}

	_, err = repo.Create(ctx, types.User{ID: "u3", Username: "bob", Email: "alice@x.com"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for email, got %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestMemoryUserRepositoryLookup(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	if _, err := repo.GetByUsername(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, err := repo.Create(ctx, types.User{ID: "u1", Username: "alice", Email: "alice@x.com", Role: types.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}

	byName, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != "u1" {
		t.Fatalf("unexpected user id: %s", byName.ID)
	}

	byID, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("unexpected username: %s", byID.Username)
	}
}

func TestMemorySubmissionRepositoryOrderAndOwnership(t *testing.T) {
	repo := NewMemorySubmissionRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		owner := "u1"
		if i == 1 {
			owner = "u2"
		}
		_, err := repo.Create(ctx, types.Submission{
			ID:     fmt.Sprintf("s%d", i),
			UserID: owner,
			Status: types.StatusPending,
		})
		if err != nil {
			t.Fatalf("create submission %d: %v", i, err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(all))
	}
	for i, submission := range all {
		if submission.ID != fmt.Sprintf("s%d", i) {
			t.Fatalf("expected insertion order, got %s at %d", submission.ID, i)
		}
	}

	mine, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 submissions for u1, got %d", len(mine))
	}
	for _, submission := range mine {
		if submission.UserID != "u1" {
			t.Fatalf("unexpected owner: %s", submission.UserID)
		}
	}
}

func TestMemorySubmissionRepositoryMarkReviewed(t *testing.T) {
	repo := NewMemorySubmissionRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, types.Submission{ID: "s1", UserID: "u1", Status: types.StatusPending})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}

	notes := "verified manually"
	reviewed, err := repo.MarkReviewed(ctx, "s1", types.StatusApproved, &notes, time.Now())
	if err != nil {
		t.Fatalf("mark reviewed: %v", err)
	}
	if reviewed.Status != types.StatusApproved {
		t.Fatalf("unexpected status: %s", reviewed.Status)
	}
	if reviewed.ReviewedAt == nil {
		t.Fatalf("expected ReviewedAt to be set")
	}
	if reviewed.AdminNotes == nil || *reviewed.AdminNotes != notes {
		t.Fatalf("unexpected notes: %v", reviewed.AdminNotes)
	}

	_, err = repo.MarkReviewed(ctx, "s1", types.StatusRejected, nil, time.Now())
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	_, err = repo.MarkReviewed(ctx, "missing", types.StatusApproved, nil, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The failed re-review must not have touched the record.
	current, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if current.Status != types.StatusApproved {
		t.Fatalf("status changed after failed re-review: %s", current.Status)
	}
}

func TestMemorySubmissionRepositoryConcurrentReview(t *testing.T) {
	repo := NewMemorySubmissionRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, types.Submission{ID: "s1", UserID: "u1", Status: types.StatusPending})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}

	const reviewers = 8
	var wg sync.WaitGroup
	results := make(chan error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MarkReviewed(ctx, "s1", types.StatusApproved, nil, time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, ErrAlreadyReviewed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful review, got %d", succeeded)
	}
}
