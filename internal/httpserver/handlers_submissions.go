package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/formgate/server/internal/antispam"
	"github.com/formgate/server/internal/clientip"
	apierrors "github.com/formgate/server/internal/errors"
	"github.com/formgate/server/internal/logger"
	"github.com/formgate/server/internal/storage"
)

// maxSubmissionBytes bounds the request body. Contact form payloads are
// small; anything larger is either a mistake or an attack.
const maxSubmissionBytes = 64 << 10

// submissionRequest is the JSON body posted by the frontend form handler.
type submissionRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Message         string `json:"message"`
	Token           string `json:"token"`
	CaptchaResponse string `json:"captchaResponse"`
}

// createSubmission handles POST /v1/forms/{form}/submissions.
//
// Rejections all surface as the same generic response regardless of which
// check tripped. The detailed reason goes to logs and metrics only.
func (h *handlers) createSubmission(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "form")
	if !h.formKnown(formID) {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeFormNotFound, "Unknown form")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)

	var req submissionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.WriteSimpleError(w, apierrors.ErrCodePayloadTooLarge, "Request body too large")
			return
		}
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "Request body is not valid JSON")
		return
	}

	remoteIP := clientip.FromRequest(r)

	verdict := h.checker.Check(r.Context(), antispam.Request{
		FormID:          formID,
		Name:            req.Name,
		Email:           req.Email,
		Message:         req.Message,
		Token:           req.Token,
		CaptchaResponse: req.CaptchaResponse,
		ClientIP:        remoteIP,
	})
	if !verdict.Accepted {
		apierrors.WriteRejection(w)
		return
	}

	sub := storage.Submission{
		ID:        uuid.NewString(),
		FormID:    formID,
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		ClientIP:  remoteIP,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.SaveSubmission(r.Context(), sub); err != nil {
		h.metrics.ObserveStoreWrite(h.cfg.Storage.Backend, "error")
		h.logger.Error().
			Err(err).
			Str("form", formID).
			Str("submission_id", sub.ID).
			Msg("failed to persist submission")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeDatabaseError, "Submission could not be saved")
		return
	}
	h.metrics.ObserveStoreWrite(h.cfg.Storage.Backend, "success")

	h.notifier.SubmissionAccepted(r.Context(), sub)

	h.logger.Info().
		Str("form", formID).
		Str("submission_id", sub.ID).
		Str("email", logger.RedactEmail(sub.Email)).
		Msg("submission accepted")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"submissionId": sub.ID,
	})
}

// listSubmissions handles GET /v1/forms/{form}/submissions (admin only).
func (h *handlers) listSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "form")
	if !h.formKnown(formID) {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeFormNotFound, "Unknown form")
		return
	}

	limit := storage.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	subs, err := h.store.ListSubmissions(r.Context(), formID, limit)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("form", formID).
			Msg("failed to list submissions")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeDatabaseError, "Could not list submissions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"form":        formID,
		"count":       len(subs),
		"submissions": subs,
	})
}

// getSubmission handles GET /v1/forms/{form}/submissions/{id} (admin only).
func (h *handlers) getSubmission(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "form")
	if !h.formKnown(formID) {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeFormNotFound, "Unknown form")
		return
	}

	id := chi.URLParam(r, "id")
	sub, err := h.store.GetSubmission(r.Context(), formID, id)
	if errors.Is(err, storage.ErrNotFound) {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeSubmissionNotFound, "Unknown submission")
		return
	}
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("form", formID).
			Str("submission_id", id).
			Msg("failed to load submission")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeDatabaseError, "Could not load submission")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}
