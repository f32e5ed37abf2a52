package store

import (
	"context"
	"sync"
	"time"

	"github.com/cybercards/apiserver/types"
)

// MemoryUserRepository keeps user records in process memory. It is the
// default backend; all data is lost on restart.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]types.User
	byUsername map[string]string
	byEmail    map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[string]types.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return types.User{}, ErrDuplicate
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return types.User{}, ErrDuplicate
	}

	user.CreatedAt = time.Now()
	r.byID[user.ID] = user
	r.byUsername[user.Username] = user.ID
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryUserRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

// MemorySubmissionRepository keeps submissions in process memory,
// preserving insertion order for listings.
type MemorySubmissionRepository struct {
	mu    sync.RWMutex
	byID  map[string]*types.Submission
	order []string
}

func NewMemorySubmissionRepository() *MemorySubmissionRepository {
	return &MemorySubmissionRepository{
		byID: make(map[string]*types.Submission),
	}
}

func (r *MemorySubmissionRepository) Get(ctx context.Context, id string) (types.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	submission, ok := r.byID[id]
	if !ok {
		return types.Submission{}, ErrNotFound
	}
	return *submission, nil
}

func (r *MemorySubmissionRepository) Create(ctx context.Context, submission types.Submission) (types.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission.SubmittedAt = time.Now()
	copied := submission
	r.byID[submission.ID] = &copied
	r.order = append(r.order, submission.ID)
	return submission, nil
}

func (r *MemorySubmissionRepository) ListAll(ctx context.Context) ([]types.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	submissions := make([]types.Submission, 0, len(r.order))
	for _, id := range r.order {
		submissions = append(submissions, *r.byID[id])
	}
	return submissions, nil
}

func (r *MemorySubmissionRepository) ListByUser(ctx context.Context, userID string) ([]types.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	submissions := make([]types.Submission, 0)
	for _, id := range r.order {
		if r.byID[id].UserID == userID {
			submissions = append(submissions, *r.byID[id])
		}
	}
	return submissions, nil
}

// MarkReviewed transitions a pending submission to the given terminal
// status. Status, notes and reviewedAt change under a single lock, so a
// concurrent reader never observes a half-applied review and a second
// concurrent review of the same submission fails with ErrAlreadyReviewed.
func (r *MemorySubmissionRepository) MarkReviewed(ctx context.Context, id string, status types.Status, notes *string, reviewedAt time.Time) (types.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.byID[id]
	if !ok {
		return types.Submission{}, ErrNotFound
	}
	if submission.Status != types.StatusPending {
		return types.Submission{}, ErrAlreadyReviewed
	}

	submission.Status = status
	submission.AdminNotes = notes
	submission.ReviewedAt = &reviewedAt
	return *submission, nil
}
