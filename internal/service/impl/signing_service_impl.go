package impl

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"esign/internal/domain"
	"esign/internal/dto"
	"esign/internal/observability/metrics"
	"esign/internal/service"
	"esign/internal/store"
	"esign/internal/token"

	"github.com/google/uuid"
)

// Finalizer kicks off final-artifact composition once a document completes.
// DocumentServiceImpl satisfies it.
type Finalizer interface {
	Finalize(ctx context.Context, documentID uuid.UUID)
}

type SigningConfig struct {
	// AcceptTokenPrefix enables resolving legacy shortened links by unique
	// token prefix. Off by default.
	AcceptTokenPrefix bool
	// MinPrefixLength guards the prefix shim against overly broad lookups.
	MinPrefixLength int
}

type SigningServiceImpl struct {
	Store  dataStore
	Notify service.Notifier
	Final  Finalizer

	cfg SigningConfig
	log *slog.Logger
	now func() time.Time
}

func NewSigningService(st *store.Store, notify service.Notifier, final Finalizer, cfg SigningConfig, log *slog.Logger) *SigningServiceImpl {
	return newSigningService(gormStoreAdapter{store: st}, notify, final, cfg, log)
}

func newSigningService(st dataStore, notify service.Notifier, final Finalizer, cfg SigningConfig, log *slog.Logger) *SigningServiceImpl {
	if cfg.MinPrefixLength <= 0 {
		cfg.MinPrefixLength = 16
	}
	return &SigningServiceImpl{
		Store:  st,
		Notify: notify,
		Final:  final,
		cfg:    cfg,
		log:    log.With("component", "signing_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *SigningServiceImpl) AccessPage(ctx context.Context, rawToken string, cap dto.Capture) (*dto.SigningPageState, error) {
	now := s.now()
	var state *dto.SigningPageState

	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		sg, doc, err := s.resolveLive(ctx, tx, rawToken, now, false)
		if err != nil {
			return err
		}

		// Every page open is part of the trail, repeat visits included.
		if err := tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			Action:     domain.ActionViewed,
			Details:    sg.Email,
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		state = &dto.SigningPageState{
			DocumentID:    doc.ID.String(),
			Title:         doc.Title,
			Status:        string(doc.Status),
			Content:       doc.Content,
			SignerName:    sg.Name,
			SignerEmail:   sg.Email,
			Role:          string(sg.Role),
			Verified:      sg.Verified,
			AlreadySigned: sg.Signed(),
			ExpiresAt:     sg.TokenExpiresAt,
		}
		if sg.Position.Present() {
			pos := sg.Position
			state.Position = &pos
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *SigningServiceImpl) RequestCode(ctx context.Context, rawToken string) error {
	now := s.now()
	var sg *domain.Signer
	var doc *domain.Document

	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		sg, doc, err = s.resolveLive(ctx, tx, rawToken, now, false)
		if err != nil {
			return err
		}
		if sg.Signed() {
			return errAlreadySigned
		}

		code, err := token.NewCode()
		if err != nil {
			return err
		}
		exp := now.Add(token.CodeTTL)

		// A fresh code always starts a clean attempt budget.
		sg.VerifyCode = code
		sg.VerifyCodeExpiresAt = &exp
		sg.VerifyAttempts = 0
		sg.Verified = false
		sg.UpdatedAt = now
		return tx.Signers().Save(ctx, sg)
	})
	if err != nil {
		return err
	}

	go s.deliverCode(doc, sg)
	return nil
}

func (s *SigningServiceImpl) VerifyCode(ctx context.Context, rawToken, code string) error {
	now := s.now()
	// The mismatch verdict is returned outside the closure: a failed attempt
	// must still commit its incremented counter.
	var verdict error
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		sg, _, err := s.resolveLive(ctx, tx, rawToken, now, false)
		if err != nil {
			return err
		}
		if sg.VerifyCode == "" || sg.VerifyCodeExpiresAt == nil {
			return errCodeNotIssued
		}
		// Exhaustion is checked before comparison, so a correct code on the
		// sixth attempt is still refused.
		if sg.VerifyAttempts >= token.MaxCodeAttempts {
			return errCodeExhausted
		}
		if now.After(*sg.VerifyCodeExpiresAt) {
			return errCodeExpired
		}
		if strings.TrimSpace(code) != sg.VerifyCode {
			sg.VerifyAttempts++
			sg.UpdatedAt = now
			verdict = errCodeMismatch
			return tx.Signers().Save(ctx, sg)
		}

		sg.Verified = true
		sg.VerifyCode = ""
		sg.VerifyCodeExpiresAt = nil
		sg.UpdatedAt = now
		return tx.Signers().Save(ctx, sg)
	})
	if err != nil {
		return err
	}
	return verdict
}

func (s *SigningServiceImpl) Submit(ctx context.Context, rawToken string, req dto.SubmitRequest, cap dto.Capture) (*dto.SubmitResponse, error) {
	result := "success"
	defer func() { metrics.SignaturesSubmittedTotal.WithLabelValues(result).Inc() }()

	sigType, err := validateSubmission(req)
	if err != nil {
		result = "failure"
		return nil, err
	}

	now := s.now()
	resp := &dto.SubmitResponse{SignedAt: now}
	var doc *domain.Document
	completed := false

	var signer *domain.Signer
	err = s.Store.WithTx(ctx, func(tx storeTx) error {
		var sg *domain.Signer
		sg, doc, err = s.resolveLive(ctx, tx, rawToken, now, true)
		if err != nil {
			return err
		}
		signer = sg
		if doc.Status != domain.StatusSent {
			return domain.StateConflict("document is %s; signatures are only accepted while sent", doc.Status)
		}
		// Pending verification must be completed before the mark is accepted.
		if sg.VerifyCode != "" && !sg.Verified {
			return errUnverified
		}

		ok, err := tx.Signers().MarkSigned(ctx, sg.ID, now, cap.IP, cap.UserAgent)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadySigned
		}

		sig := domain.Signature{
			ID:         uuid.New(),
			SignerID:   sg.ID,
			DocumentID: doc.ID,
			Type:       sigType,
			Payload:    req.Payload,
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			SignedAt:   now,
			CreatedAt:  now,
		}
		if req.Position != nil {
			sig.Position = *req.Position
		} else {
			sig.Position = sg.Position
		}
		if err := tx.Signatures().Create(ctx, &sig); err != nil {
			return err
		}
		resp.SignatureID = sig.ID.String()

		if err := tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			Action:     domain.ActionSigned,
			Details:    sg.Email,
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		all, err := tx.Signers().ListByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		remaining := 0
		for i := range all {
			if all[i].ID != sg.ID && !all[i].Signed() {
				remaining++
			}
		}
		if remaining > 0 {
			resp.DocumentStatus = string(domain.StatusSent)
			return nil
		}

		// The guarded update keeps completion exactly-once. With the document
		// row locked above the guard cannot lose a race, so a miss means the
		// status changed under us and the submission must not stand.
		moved, err := tx.Documents().SetStatus(ctx, doc.ID, domain.StatusSent, domain.StatusCompleted)
		if err != nil {
			return err
		}
		if !moved {
			return domain.StateConflict("document is no longer accepting signatures")
		}
		doc.Status = domain.StatusCompleted
		doc.CompletedAt = &now
		doc.UpdatedAt = now
		if err := tx.Documents().Save(ctx, doc); err != nil {
			return err
		}
		if err := tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			Action:     domain.ActionFinalized,
			Details:    fmt.Sprintf("%d signature(s)", len(all)),
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		completed = true
		resp.DocumentStatus = string(domain.StatusCompleted)
		resp.DocumentCompleted = true
		return nil
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	go s.confirmSignature(doc, signer, completed)

	if completed {
		s.log.Info("document completed", "document_id", doc.ID)
		if s.Final != nil {
			go s.Final.Finalize(context.Background(), doc.ID)
		}
	}
	return resp, nil
}

func (s *SigningServiceImpl) confirmSignature(doc *domain.Document, sg *domain.Signer, completed bool) {
	subject := fmt.Sprintf("Signature recorded: %s", doc.Title)
	body := fmt.Sprintf("<p>Hello %s,</p><p>Your signature on <b>%s</b> has been recorded.</p>", sg.Name, doc.Title)
	if completed {
		body += "<p>All parties have now signed; the finished document is being prepared.</p>"
	}
	if err := s.Notify.Send(context.Background(), sg.Email, subject, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failure").Inc()
		s.log.Warn("signature confirmation failed", "email", sg.Email, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("success").Inc()
}

func (s *SigningServiceImpl) Status(ctx context.Context, rawToken string) (*dto.SignerStatus, error) {
	var out *dto.SignerStatus
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		// Status stays readable after expiry and after signing.
		sg, err := s.resolve(ctx, tx, rawToken)
		if err != nil {
			return err
		}
		doc, err := tx.Documents().GetByID(ctx, sg.DocumentID)
		if err != nil {
			return err
		}
		out = &dto.SignerStatus{
			DocumentID:     doc.ID.String(),
			DocumentStatus: string(doc.Status),
			SignedAt:       sg.SignedAt,
			Verified:       sg.Verified,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// resolve finds the signer for a token, falling back to the prefix shim when
// enabled.
func (s *SigningServiceImpl) resolve(ctx context.Context, tx storeTx, rawToken string) (*domain.Signer, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, errEmptyToken
	}
	sg, err := tx.Signers().GetByToken(ctx, rawToken)
	if err == nil {
		return sg, nil
	}
	if s.cfg.AcceptTokenPrefix &&
		domain.IsKind(err, domain.KindNotFound) &&
		len(rawToken) >= s.cfg.MinPrefixLength && len(rawToken) < token.Length {
		return tx.Signers().GetByTokenPrefix(ctx, rawToken)
	}
	return nil, err
}

// resolveLive additionally enforces the token window and loads the document.
// Submit passes lock so the document row is read FOR UPDATE: concurrent
// submissions for the same document then queue on that row, and each one sees
// the signer rows committed by the one before it. Without the lock the two
// final signers can both re-read the other's mark as pending and neither
// completes the document.
func (s *SigningServiceImpl) resolveLive(ctx context.Context, tx storeTx, rawToken string, now time.Time, lock bool) (*domain.Signer, *domain.Document, error) {
	sg, err := s.resolve(ctx, tx, rawToken)
	if err != nil {
		return nil, nil, err
	}
	if now.After(sg.TokenExpiresAt) {
		return nil, nil, errTokenExpired
	}
	var doc *domain.Document
	if lock {
		doc, err = tx.Documents().GetByIDForUpdate(ctx, sg.DocumentID)
	} else {
		doc, err = tx.Documents().GetByID(ctx, sg.DocumentID)
	}
	if err != nil {
		return nil, nil, err
	}
	return sg, doc, nil
}

func (s *SigningServiceImpl) deliverCode(doc *domain.Document, sg *domain.Signer) {
	subject := fmt.Sprintf("Your verification code for %s", doc.Title)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your verification code is <b>%s</b>. It expires in %d minutes.</p>",
		sg.Name, sg.VerifyCode, int(token.CodeTTL.Minutes()))
	if err := s.Notify.Send(context.Background(), sg.Email, subject, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failure").Inc()
		s.log.Warn("verification code delivery failed", "email", sg.Email, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("success").Inc()
}

func validateSubmission(req dto.SubmitRequest) (domain.SignatureType, error) {
	payload := strings.TrimSpace(req.Payload)
	if payload == "" {
		return "", domain.Validation("signature payload is required")
	}
	switch t := domain.SignatureType(req.Type); t {
	case domain.SignatureTyped:
		if len(payload) < 2 {
			return "", domain.Validation("typed signature must be at least 2 characters")
		}
		return t, nil
	case domain.SignatureCanvas, domain.SignatureUpload:
		// Uploads may reference an already-stored asset by URL.
		if t == domain.SignatureUpload &&
			(strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://")) {
			return t, nil
		}
		trimmed := payload
		if idx := strings.Index(trimmed, ";base64,"); idx >= 0 {
			trimmed = trimmed[idx+len(";base64,"):]
		}
		if _, err := base64.StdEncoding.DecodeString(trimmed); err != nil {
			if _, err := base64.RawStdEncoding.DecodeString(trimmed); err != nil {
				return "", domain.Validation("%s signature payload must be base64 image data", t)
			}
		}
		return t, nil
	default:
		return "", domain.Validation("unknown signature type %q", req.Type)
	}
}

var _ service.SigningService = (*SigningServiceImpl)(nil)
