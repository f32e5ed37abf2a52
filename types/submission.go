package types

import "time"

// Status represents the moderation state of a gift-card submission.
// Submissions start at StatusPending and transition exactly once to
// StatusApproved or StatusRejected. Both outcomes are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the recognized status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s is a review outcome (approved or rejected).
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submission represents a user's claim describing a gift card offered for
// resale, pending moderation. Owner identity is denormalized at creation
// time (a snapshot, not a live reference).
type Submission struct {
	// ID is the opaque unique identifier of the submission (UUID).
	ID string `json:"id" db:"id"`

	// UserID identifies the owning user.
	UserID string `json:"userId" db:"user_id"`

	// Username is the owner's username, captured at submission time.
	Username string `json:"username" db:"username"`

	// Email is the owner's email address, captured at submission time.
	Email string `json:"email" db:"email"`

	// CardType is the gift card brand (e.g. "Amazon Pay").
	CardType string `json:"cardType" db:"card_type"`

	// CardCode is the redemption code printed on the card. Sensitive:
	// returned only to reviewers, never to the owner after submission.
	CardCode string `json:"cardCode" db:"card_code"`

	// CardValue is the declared face value as a formatted currency
	// string (e.g. "₹500"). No arithmetic is ever performed on it.
	CardValue string `json:"cardValue" db:"card_value"`

	// ExpiryDate is the card's expiry date, if declared.
	ExpiryDate *string `json:"expiryDate" db:"expiry_date"`

	// Description is optional free text supplied by the owner.
	Description *string `json:"description" db:"description"`

	// ImageURL references the uploaded card image, if any.
	ImageURL *string `json:"imageUrl" db:"image_url"`

	// Status is the current moderation state.
	Status Status `json:"status" db:"status"`

	// SubmittedAt is the timestamp when the submission was created.
	SubmittedAt time.Time `json:"submittedAt" db:"submitted_at"`

	// ReviewedAt is the timestamp of the review decision. It is nil
	// exactly as long as Status is StatusPending; it changes together
	// with Status as a single atomic update.
	ReviewedAt *time.Time `json:"reviewedAt" db:"reviewed_at"`

	// AdminNotes holds the reviewer's optional free-text notes.
	AdminNotes *string `json:"adminNotes" db:"admin_notes"`
}

// OwnerSubmission is the reduced projection returned to the submitting
// user. It carries every payload field except the redemption code, which
// is never returned to the owner after submission.
type OwnerSubmission struct {
	ID          string     `json:"id"`
	CardType    string     `json:"cardType"`
	CardValue   string     `json:"cardValue"`
	ExpiryDate  *string    `json:"expiryDate"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"imageUrl"`
	Status      Status     `json:"status"`
	SubmittedAt time.Time  `json:"submittedAt"`
	ReviewedAt  *time.Time `json:"reviewedAt"`
	AdminNotes  *string    `json:"adminNotes"`
}

// OwnerView returns the redacted projection of s.
func (s Submission) OwnerView() OwnerSubmission {
	return OwnerSubmission{
		ID:          s.ID,
		CardType:    s.CardType,
		CardValue:   s.CardValue,
		ExpiryDate:  s.ExpiryDate,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		Status:      s.Status,
		SubmittedAt: s.SubmittedAt,
		ReviewedAt:  s.ReviewedAt,
		AdminNotes:  s.AdminNotes,
	}
}

// Stats is the aggregate snapshot returned to reviewers. Counts are
// recomputed from current store state on every call.
type Stats struct {
	TotalUsers          int `json:"totalUsers"`
	TotalSubmissions    int `json:"totalSubmissions"`
	PendingSubmissions  int `json:"pendingSubmissions"`
	ApprovedSubmissions int `json:"approvedSubmissions"`
	RejectedSubmissions int `json:"rejectedSubmissions"`
}
