package impl

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"esign/internal/domain"
	"esign/internal/dto"
	"esign/internal/integrity"
	"esign/internal/observability/metrics"
	"esign/internal/render"
	"esign/internal/service"
	"esign/internal/store"
	"esign/internal/token"

	"github.com/google/uuid"
)

type DocumentConfig struct {
	// TokenTTL is the signing window granted at send time.
	TokenTTL time.Duration
	// SigningBaseURL prefixes the per-signer links sent by email.
	SigningBaseURL string
}

type DocumentServiceImpl struct {
	Store    dataStore
	Notify   service.Notifier
	Composer service.Composer
	Blobs    service.BlobStore

	cfg DocumentConfig
	log *slog.Logger
	now func() time.Time
}

func NewDocumentService(st *store.Store, notify service.Notifier, composer service.Composer, blobs service.BlobStore, cfg DocumentConfig, log *slog.Logger) *DocumentServiceImpl {
	s := newDocumentService(gormStoreAdapter{store: st}, notify, composer, blobs, cfg, log)
	return s
}

func newDocumentService(st dataStore, notify service.Notifier, composer service.Composer, blobs service.BlobStore, cfg DocumentConfig, log *slog.Logger) *DocumentServiceImpl {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = token.DefaultTokenTTL
	}
	return &DocumentServiceImpl{
		Store:    st,
		Notify:   notify,
		Composer: composer,
		Blobs:    blobs,
		cfg:      cfg,
		log:      log.With("component", "document_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *DocumentServiceImpl) Create(ctx context.Context, ownerID uuid.UUID, req dto.CreateDocumentRequest, cap dto.Capture) (*domain.Document, error) {
	result := "success"
	defer func() { metrics.DocumentsCreatedTotal.WithLabelValues(result).Inc() }()

	title := strings.TrimSpace(req.Title)
	if len(title) < 3 {
		result = "failure"
		return nil, errTitleTooShort
	}

	now := s.now()
	doc := &domain.Document{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Status:    domain.StatusDraft,
		Variables: req.Variables,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch domain.DocumentSource(req.Source) {
	case domain.SourceTemplate:
		doc.Source = domain.SourceTemplate
		doc.Content = render.Materialize(req.Content, req.Variables)
	case domain.SourceImported:
		doc.Source = domain.SourceImported
		doc.Content = req.Content
		original, err := decodeOriginal(req.OriginalPDF)
		if err != nil {
			result = "failure"
			return nil, err
		}
		location, err := s.Blobs.Write(ctx, original)
		if err != nil {
			result = "failure"
			return nil, fmt.Errorf("store original: %w", err)
		}
		// Computed once at import, never recomputed.
		doc.OriginalHash = integrity.Sum(original)
		doc.OriginalLocation = location
	default:
		result = "failure"
		return nil, domain.Validation("source must be template or imported")
	}

	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		if err := tx.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			ActorID:    &ownerID,
			Action:     domain.ActionCreated,
			Details:    doc.Title,
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		})
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	s.log.Info("document created", "document_id", doc.ID, "owner_id", ownerID, "source", doc.Source)
	return doc, nil
}

func (s *DocumentServiceImpl) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Document, error) {
	var doc *domain.Document
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		doc, err = s.getOwned(ctx, tx, ownerID, id)
		return err
	})
	return doc, err
}

func (s *DocumentServiceImpl) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		docs, err = tx.Documents().ListByOwner(ctx, ownerID)
		return err
	})
	return docs, err
}

func (s *DocumentServiceImpl) Update(ctx context.Context, ownerID, id uuid.UUID, patch dto.DocumentPatch, cap dto.Capture) (*domain.Document, error) {
	var doc *domain.Document
	now := s.now()

	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		doc, err = s.getOwned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if doc.Status != domain.StatusDraft {
			return domain.StateConflict("document is %s; only draft documents can be edited", doc.Status)
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if len(title) < 3 {
				return errTitleTooShort
			}
			doc.Title = title
		}
		if patch.Variables != nil {
			doc.Variables = *patch.Variables
		}
		if patch.Content != nil {
			doc.Content = *patch.Content
			if doc.Source == domain.SourceTemplate {
				doc.Content = render.Materialize(doc.Content, doc.Variables)
			}
		}
		if patch.ExpiresAt != nil {
			doc.ExpiresAt = patch.ExpiresAt
		}
		doc.UpdatedAt = now

		if err := tx.Documents().Save(ctx, doc); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			ActorID:    &ownerID,
			Action:     domain.ActionEdited,
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentServiceImpl) SendForSignature(ctx context.Context, ownerID, id uuid.UUID, req dto.SendRequest, cap dto.Capture) (*dto.SendResponse, error) {
	result := "success"
	defer func() { metrics.DocumentsSentTotal.WithLabelValues(result).Inc() }()

	if len(req.Signers) == 0 {
		result = "failure"
		return nil, errNoSigners
	}
	for _, in := range req.Signers {
		if err := validateSignerInput(in); err != nil {
			result = "failure"
			return nil, err
		}
	}

	now := s.now()
	resp := &dto.SendResponse{DocumentID: id.String(), Status: string(domain.StatusSent)}
	var created []domain.Signer
	var doc *domain.Document

	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		doc, err = s.getOwned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if doc.Status != domain.StatusDraft {
			return domain.TransitionDenied(doc.Status, domain.StatusSent)
		}

		created = created[:0]
		resp.Signers = resp.Signers[:0]
		for _, in := range req.Signers {
			tok, err := token.New()
			if err != nil {
				return err
			}
			role := domain.SignerRole(in.Role)
			if role == "" {
				role = domain.RoleSigner
			}
			sg := domain.Signer{
				ID:             uuid.New(),
				DocumentID:     doc.ID,
				Name:           strings.TrimSpace(in.Name),
				Email:          strings.TrimSpace(in.Email),
				Role:           role,
				SignOrder:      in.SignOrder,
				Token:          tok,
				TokenExpiresAt: now.Add(s.cfg.TokenTTL),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if in.Position != nil {
				sg.Position = *in.Position
			}
			if err := tx.Signers().Create(ctx, &sg); err != nil {
				return err
			}
			created = append(created, sg)
			resp.Signers = append(resp.Signers, dto.SentOut{
				SignerID:       sg.ID.String(),
				Email:          sg.Email,
				TokenExpiresAt: sg.TokenExpiresAt,
			})
		}

		doc.Status = domain.StatusSent
		doc.UpdatedAt = now
		if err := tx.Documents().Save(ctx, doc); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			ActorID:    &ownerID,
			Action:     domain.ActionSent,
			Details:    fmt.Sprintf("%d signer(s)", len(created)),
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		})
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	// Delivery happens after the transaction commits; failures are logged
	// and never reach the caller.
	go s.notifySigners(doc, created)

	s.log.Info("document sent for signature", "document_id", doc.ID, "signers", len(created))
	return resp, nil
}

func (s *DocumentServiceImpl) Cancel(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) error {
	now := s.now()
	return s.Store.WithTx(ctx, func(tx storeTx) error {
		doc, err := s.getOwned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if !doc.Status.CanTransitionTo(domain.StatusCancelled) {
			return domain.TransitionDenied(doc.Status, domain.StatusCancelled)
		}
		ok, err := tx.Documents().SetStatus(ctx, doc.ID, doc.Status, domain.StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return domain.TransitionDenied(doc.Status, domain.StatusCancelled)
		}
		return tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			ActorID:    &ownerID,
			Action:     domain.ActionCancelled,
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		})
	})
}

func (s *DocumentServiceImpl) Delete(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) (*dto.DeleteResponse, error) {
	var counts map[string]int64
	var doc *domain.Document

	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		doc, err = s.getOwned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		// Signed artifacts must be preserved.
		if doc.Status == domain.StatusCompleted {
			return domain.StateConflict("completed documents cannot be deleted")
		}
		counts, err = tx.DeleteDocument(ctx, doc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, location := range []string{doc.OriginalLocation, doc.FinalLocation} {
		if location == "" {
			continue
		}
		if err := s.Blobs.Delete(ctx, location); err != nil {
			s.log.Warn("orphaned blob after delete", "location", location, "error", err)
		}
	}

	s.log.Info("document deleted", "document_id", id, "owner_id", ownerID,
		"ip", cap.IP, "counts", counts)
	return &dto.DeleteResponse{Deleted: counts}, nil
}

func (s *DocumentServiceImpl) Duplicate(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) (*domain.Document, error) {
	now := s.now()
	var dup *domain.Document

	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		src, err := s.getOwned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		dup = &domain.Document{
			ID:               uuid.New(),
			OwnerID:          ownerID,
			Title:            src.Title + " (copy)",
			Status:           domain.StatusDraft,
			Source:           src.Source,
			Content:          src.Content,
			Variables:        src.Variables,
			OriginalHash:     src.OriginalHash,
			OriginalLocation: src.OriginalLocation,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Documents().Create(ctx, dup); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: dup.ID,
			ActorID:    &ownerID,
			Action:     domain.ActionDuplicated,
			Details:    "copied from " + src.ID.String(),
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	return dup, nil
}

func (s *DocumentServiceImpl) Download(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) (*dto.DownloadResponse, error) {
	var doc *domain.Document
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		doc, err = s.getOwned(ctx, tx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusCompleted {
		return nil, domain.StateConflict("document is %s; only completed documents can be downloaded", doc.Status)
	}

	data, err := s.finalArtifact(ctx, doc)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.Store.WithTx(ctx, func(tx storeTx) error {
		return tx.Audit().Append(ctx, &domain.AuditLog{
			DocumentID: doc.ID,
			ActorID:    &ownerID,
			Action:     domain.ActionDownloaded,
			IP:         cap.IP,
			UserAgent:  cap.UserAgent,
			CreatedAt:  now,
		})
	})
	if err != nil {
		s.log.Warn("download audit append failed", "document_id", doc.ID, "error", err)
	}

	return &dto.DownloadResponse{
		FileName: safeFileName(doc.Title) + ".pdf",
		Hash:     doc.FinalHash,
		Data:     data,
	}, nil
}

func (s *DocumentServiceImpl) AuditTrail(ctx context.Context, ownerID, id uuid.UUID) ([]domain.AuditLog, error) {
	var trail []domain.AuditLog
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		if _, err := s.getOwned(ctx, tx, ownerID, id); err != nil {
			return err
		}
		var err error
		trail, err = tx.Audit().ListByDocument(ctx, id)
		return err
	})
	return trail, err
}

func (s *DocumentServiceImpl) Signers(ctx context.Context, ownerID, id uuid.UUID) ([]domain.Signer, error) {
	var signers []domain.Signer
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		if _, err := s.getOwned(ctx, tx, ownerID, id); err != nil {
			return err
		}
		var err error
		signers, err = tx.Signers().ListByDocument(ctx, id)
		return err
	})
	return signers, err
}

// Finalize composes and stores the final artifact for a completed document.
// It is invoked after the completing submission commits, and again lazily on
// download whenever the stored artifact is missing or stale.
func (s *DocumentServiceImpl) Finalize(ctx context.Context, documentID uuid.UUID) {
	if _, err := s.Compose(ctx, documentID); err != nil {
		s.log.Error("finalize: composition failed, will retry on download",
			"document_id", documentID, "error", err)
	}
}

// Compose recomposes the final artifact and returns its hash. Besides backing
// Finalize, it lets esignctl repair a missing or stale artifact out of band.
func (s *DocumentServiceImpl) Compose(ctx context.Context, documentID uuid.UUID) (string, error) {
	var doc *domain.Document
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		doc, err = tx.Documents().GetByID(ctx, documentID)
		return err
	})
	if err != nil {
		return "", err
	}
	if doc.Status != domain.StatusCompleted {
		return "", domain.StateConflict("document is %s; only completed documents are composed", doc.Status)
	}
	if _, err := s.composeAndStore(ctx, doc); err != nil {
		return "", err
	}
	return doc.FinalHash, nil
}

// finalArtifact returns the stored final bytes, recomposing when the blob is
// absent or no longer matches the recorded hash.
func (s *DocumentServiceImpl) finalArtifact(ctx context.Context, doc *domain.Document) ([]byte, error) {
	if doc.FinalLocation != "" && doc.FinalHash != "" {
		data, err := s.Blobs.Read(ctx, doc.FinalLocation)
		if err == nil && integrity.Verify(data, doc.FinalHash) {
			return data, nil
		}
		s.log.Warn("stored final artifact missing or stale, recomposing",
			"document_id", doc.ID, "error", err)
	}
	return s.composeAndStore(ctx, doc)
}

func (s *DocumentServiceImpl) composeAndStore(ctx context.Context, doc *domain.Document) ([]byte, error) {
	result := "success"
	defer func() { metrics.CompositionsTotal.WithLabelValues(result).Inc() }()

	in := service.ComposeInput{Document: doc}
	err := s.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		if in.Signers, err = tx.Signers().ListByDocument(ctx, doc.ID); err != nil {
			return err
		}
		if in.Signatures, err = tx.Signatures().ListByDocument(ctx, doc.ID); err != nil {
			return err
		}
		in.Trail, err = tx.Audit().ListByDocument(ctx, doc.ID)
		return err
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	if doc.Source == domain.SourceImported && doc.OriginalLocation != "" {
		original, err := s.Blobs.Read(ctx, doc.OriginalLocation)
		if err != nil {
			// Composition degrades to the textual content when the original
			// cannot be read.
			s.log.Error("original blob unreadable", "document_id", doc.ID, "error", err)
		} else {
			in.Original = original
		}
	}

	data, err := s.Composer.Compose(ctx, in)
	if err != nil {
		result = "failure"
		return nil, err
	}

	location, err := s.Blobs.Write(ctx, data)
	if err != nil {
		result = "failure"
		return nil, domain.Integrity("store final artifact: %v", err)
	}
	hash := integrity.Sum(data)

	var stale string
	err = s.Store.WithTx(ctx, func(tx storeTx) error {
		fresh, err := tx.Documents().GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		stale = fresh.FinalLocation
		fresh.FinalHash = hash
		fresh.FinalLocation = location
		fresh.UpdatedAt = s.now()
		if err := tx.Documents().Save(ctx, fresh); err != nil {
			return err
		}
		doc.FinalHash = hash
		doc.FinalLocation = location
		return nil
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	// The repointed artifact supersedes the previous one.
	if stale != "" && stale != location {
		if err := s.Blobs.Delete(ctx, stale); err != nil {
			s.log.Warn("superseded final artifact not removed", "location", stale, "error", err)
		}
	}

	s.log.Info("final artifact composed", "document_id", doc.ID, "hash", hash, "bytes", len(data))
	return data, nil
}

func (s *DocumentServiceImpl) getOwned(ctx context.Context, tx storeTx, ownerID, id uuid.UUID) (*domain.Document, error) {
	doc, err := tx.Documents().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, errNotOwner
	}
	return doc, nil
}

func (s *DocumentServiceImpl) notifySigners(doc *domain.Document, signers []domain.Signer) {
	ctx := context.Background()
	for _, sg := range signers {
		link := strings.TrimRight(s.cfg.SigningBaseURL, "/") + "/sign/" + sg.Token
		subject := fmt.Sprintf("Signature requested: %s", doc.Title)
		body := fmt.Sprintf(
			"<p>Hello %s,</p><p>You have been asked to sign <b>%s</b>.</p><p><a href=%q>Review and sign</a> before %s.</p>",
			sg.Name, doc.Title, link, sg.TokenExpiresAt.Format(time.RFC1123))
		if err := s.Notify.Send(ctx, sg.Email, subject, body); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failure").Inc()
			s.log.Warn("signer notification failed", "document_id", doc.ID, "email", sg.Email, "error", err)
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("success").Inc()
	}
}

func validateSignerInput(in dto.SignerInput) error {
	if len(strings.TrimSpace(in.Name)) < 2 {
		return domain.Validation("signer name must be at least 2 characters")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return domain.Validation("invalid signer email %q", in.Email)
	}
	switch domain.SignerRole(in.Role) {
	case "", domain.RoleSigner, domain.RoleWitness, domain.RoleOwner:
		return nil
	default:
		return domain.Validation("unknown signer role %q", in.Role)
	}
}

func decodeOriginal(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, errNoOriginalFile
	}
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.Validation("original file is not valid base64")
	}
	return data, nil
}

func safeFileName(title string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, title)
	if mapped == "" {
		return "document"
	}
	return mapped
}

var _ service.DocumentService = (*DocumentServiceImpl)(nil)
