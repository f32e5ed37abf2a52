package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cybercards/apiserver/internal/services"
	"github.com/cybercards/apiserver/internal/storage"
	"github.com/cybercards/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxMultipartMemory = 8 << 20
	maxImageBytes      = 5 << 20

	formFieldCardType    = "cardType"
	formFieldCardCode    = "cardCode"
	formFieldCardValue   = "cardValue"
	formFieldExpiryDate  = "expiryDate"
	formFieldDescription = "description"
	formFieldCardImage   = "cardImage"
)

// imageExtensions maps the allow-listed MIME types to stored file
// extensions. Anything else is rejected before a submission is created.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// CardHandler provides the submitter-facing gift-card endpoints.
type CardHandler struct {
	submissionService *services.SubmissionService
	userService       *services.UserService
	images            storage.ObjectStorage
	imageBaseURL      string
}

// NewCardHandler constructs a handler with the provided dependencies.
func NewCardHandler(
	submissionService *services.SubmissionService,
	userService *services.UserService,
	images storage.ObjectStorage,
	imageBaseURL string,
) *CardHandler {
	return &CardHandler{
		submissionService: submissionService,
		userService:       userService,
		images:            images,
		imageBaseURL:      strings.TrimRight(imageBaseURL, "/"),
	}
}

// CardRouter registers gift-card routes on the given router. All routes
// require authentication.
func CardRouter(
	r chi.Router,
	submissionService *services.SubmissionService,
	userService *services.UserService,
	images storage.ObjectStorage,
	imageBaseURL string,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCardHandler(submissionService, userService, images, imageBaseURL)

	r.Use(authMiddleware)
	r.Post("/submit", handler.Submit)
	r.Get("/user-submissions", handler.ListMine)
}

// Submit accepts a multipart gift-card submission and creates it in the
// pending state.
func (h *CardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "access token required")
		return
	}

	// The owner snapshot needs the email, which the token does not carry.
	owner, err := h.userService.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	input, err := parseSubmitForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var imageKey string
	if input.image.data != nil {
		key, imageURL, err := h.storeImage(r, input.image)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store card image")
			return
		}
		imageKey = key
		input.submit.ImageURL = &imageURL
	}

	submission, err := h.submissionService.Submit(r.Context(), owner, input.submit)
	if err != nil {
		// Do not leave an orphaned image behind a failed submission.
		if imageKey != "" {
			_ = h.images.Remove(r.Context(), imageKey)
		}
		writeError(w, http.StatusInternalServerError, "failed to submit gift card")
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		Message:      "gift card submitted successfully",
		SubmissionID: submission.ID,
	})
}

// ListMine returns the caller's submissions in the redacted owner view.
func (h *CardHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "access token required")
		return
	}

	submissions, err := h.submissionService.ListMine(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}

	writeJSON(w, http.StatusOK, submissions)
}

// SubmitResponse is the payload returned after a successful submission.
type SubmitResponse struct {
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId"`
}

type imageUpload struct {
	data        []byte
	contentType string
}

type submitForm struct {
	submit services.SubmitInput
	image  imageUpload
}

func parseSubmitForm(r *http.Request) (submitForm, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return submitForm{}, errors.New("invalid multipart form")
	}

	cardType := strings.TrimSpace(r.FormValue(formFieldCardType))
	cardCode := strings.TrimSpace(r.FormValue(formFieldCardCode))
	cardValue := strings.TrimSpace(r.FormValue(formFieldCardValue))
	if cardType == "" || cardCode == "" || cardValue == "" {
		return submitForm{}, errors.New("cardType, cardCode and cardValue are required")
	}

	form := submitForm{
		submit: services.SubmitInput{
			CardType:    cardType,
			CardCode:    cardCode,
			CardValue:   cardValue,
			ExpiryDate:  optionalFormValue(r, formFieldExpiryDate),
			Description: optionalFormValue(r, formFieldDescription),
		},
	}

	image, err := parseCardImage(r.MultipartForm)
	if err != nil {
		return submitForm{}, err
	}
	form.image = image

	return form, nil
}

func parseCardImage(form *multipart.Form) (imageUpload, error) {
	if form == nil || len(form.File[formFieldCardImage]) == 0 {
		return imageUpload{}, nil
	}
	if len(form.File[formFieldCardImage]) > 1 {
		return imageUpload{}, errors.New("only one card image is allowed")
	}

	fileHeader := form.File[formFieldCardImage][0]
	file, err := fileHeader.Open()
	if err != nil {
		return imageUpload{}, fmt.Errorf("failed to read card image: %w", err)
	}

	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return imageUpload{}, err
	}

	// Sniff the content type rather than trusting the part header.
	contentType := http.DetectContentType(data)
	if _, ok := imageExtensions[contentType]; !ok {
		return imageUpload{}, errors.New("only JPEG, PNG and GIF images are allowed")
	}

	return imageUpload{data: data, contentType: contentType}, nil
}

func (h *CardHandler) storeImage(r *http.Request, image imageUpload) (string, string, error) {
	key := "card-" + uuid.NewString() + imageExtensions[image.contentType]
	err := h.images.Save(r.Context(), key, bytes.NewReader(image.data), int64(len(image.data)), image.contentType)
	if err != nil {
		return "", "", err
	}
	return key, h.imageBaseURL + "/" + key, nil
}

func optionalFormValue(r *http.Request, field string) *string {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		return nil
	}
	return &value
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
