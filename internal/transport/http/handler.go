package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"esign/internal/auth"
	"esign/internal/domain"
	"esign/internal/dto"
	obsmw "esign/internal/observability/middleware"
	"esign/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type handlers struct {
	docs    service.DocumentService
	signing service.SigningService
}

type ownerKey struct{}

func requireOwner(validator *auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			ownerID, err := validator.OwnerID(strings.TrimSpace(raw[len("Bearer "):]))
			if err != nil {
				slog.Warn("owner auth failed", "error", err,
					"request_id", obsmw.RequestIDFromContext(r.Context()))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ownerKey{}, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ownerFrom(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(ownerKey{}).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func capture(r *http.Request) dto.Capture {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return dto.Capture{IP: ip, UserAgent: r.UserAgent()}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps business error kinds onto HTTP statuses. Permission errors
// surface as 404 so the owner API never confirms a foreign document exists.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch domain.KindOf(err) {
	case domain.KindValidation:
		status, msg = http.StatusBadRequest, err.Error()
	case domain.KindNotFound:
		status, msg = http.StatusNotFound, err.Error()
	case domain.KindStateConflict:
		status, msg = http.StatusConflict, err.Error()
	case domain.KindExpiredToken:
		status, msg = http.StatusGone, err.Error()
	case domain.KindVerification:
		status, msg = http.StatusForbidden, err.Error()
	case domain.KindPermission:
		status, msg = http.StatusNotFound, "not found"
	case domain.KindIntegrity:
		status, msg = http.StatusInternalServerError, err.Error()
	}

	if status >= 500 {
		slog.Error("request failed", "error", err,
			"path", r.URL.Path,
			"request_id", obsmw.RequestIDFromContext(r.Context()),
			"trace_id", obsmw.TraceIDFromContext(r.Context()))
	}
	http.Error(w, msg, status)
}

// --- owner handlers ---

func (h *handlers) createDocument(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	doc, err := h.docs.Create(r.Context(), ownerFrom(r.Context()), req, capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *handlers) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	doc, err := h.docs.Get(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *handlers) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	var patch dto.DocumentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	doc, err := h.docs.Update(r.Context(), ownerFrom(r.Context()), id, patch, capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *handlers) sendDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	var req dto.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	resp, err := h.docs.SendForSignature(r.Context(), ownerFrom(r.Context()), id, req, capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) cancelDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	if err := h.docs.Cancel(r.Context(), ownerFrom(r.Context()), id, capture(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	resp, err := h.docs.Delete(r.Context(), ownerFrom(r.Context()), id, capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) duplicateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	doc, err := h.docs.Duplicate(r.Context(), ownerFrom(r.Context()), id, capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *handlers) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	dl, err := h.docs.Download(r.Context(), ownerFrom(r.Context()), id, capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.FileName+`"`)
	w.Header().Set("X-Artifact-Hash", dl.Hash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}

func (h *handlers) auditTrail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	trail, err := h.docs.AuditTrail(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if trail == nil {
		trail = []domain.AuditLog{}
	}
	writeJSON(w, http.StatusOK, trail)
}

func (h *handlers) listSigners(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	signers, err := h.docs.Signers(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if signers == nil {
		signers = []domain.Signer{}
	}
	writeJSON(w, http.StatusOK, signers)
}

// --- public signing handlers ---

func (h *handlers) accessPage(w http.ResponseWriter, r *http.Request) {
	state, err := h.signing.AccessPage(r.Context(), chi.URLParam(r, "token"), capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) signerStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.signing.Status(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) requestCode(w http.ResponseWriter, r *http.Request) {
	if err := h.signing.RequestCode(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := h.signing.VerifyCode(r.Context(), chi.URLParam(r, "token"), req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	resp, err := h.signing.Submit(r.Context(), chi.URLParam(r, "token"), req, capture(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
