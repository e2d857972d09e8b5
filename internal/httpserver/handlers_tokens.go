package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/formgate/server/internal/errors"
)

// tokenResponse is handed to the static site before it renders the form.
// When signing is not enforced the token field is absent and the frontend
// omits it from the submission. SiteKey is included so the frontend does
// not need separate configuration to render the CAPTCHA widget.
type tokenResponse struct {
	Token            string `json:"token,omitempty"`
	SiteKey          string `json:"siteKey,omitempty"`
	ExpiresInSeconds int    `json:"expiresInSeconds,omitempty"`
}

// mintToken handles GET /v1/forms/{form}/token.
func (h *handlers) mintToken(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "form")
	if !h.formKnown(formID) {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeFormNotFound, "Unknown form")
		return
	}

	tok := h.signer.Mint()

	resp := tokenResponse{
		Token:   tok,
		SiteKey: h.cfg.Captcha.SiteKey,
	}
	if tok != "" {
		resp.ExpiresInSeconds = int(h.cfg.Security.TokenMaxAge.Duration.Seconds())
	}

	h.metrics.ObserveTokenMinted(formID)

	// Tokens are single-use; a cached copy is a guaranteed rejection.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// formKnown reports whether the form ID is accepted. An empty forms map
// accepts any ID, which keeps single-site deployments configuration-free.
func (h *handlers) formKnown(formID string) bool {
	if formID == "" {
		return false
	}
	if len(h.cfg.Forms) == 0 {
		return true
	}
	_, ok := h.cfg.Forms[formID]
	return ok
}
