package impl

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"esign/internal/domain"

	"github.com/google/uuid"
)

// memoryStore backs the service tests. A global mutex serializes WithTx and a
// deep snapshot taken at entry is restored when the closure errors, which
// mirrors the commit/rollback behavior the services rely on.
type memoryStore struct {
	mu         sync.Mutex
	documents  map[uuid.UUID]domain.Document
	signers    map[uuid.UUID]domain.Signer
	signatures map[uuid.UUID]domain.Signature
	audit      []domain.AuditLog

	// lockReads counts document loads taken under the row lock, so tests can
	// assert which operations serialize on the document.
	lockReads int
}

func (m *memoryStore) lockReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lockReads
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		documents:  make(map[uuid.UUID]domain.Document),
		signers:    make(map[uuid.UUID]domain.Signer),
		signatures: make(map[uuid.UUID]domain.Signature),
	}
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(memoryTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	documents  map[uuid.UUID]domain.Document
	signers    map[uuid.UUID]domain.Signer
	signatures map[uuid.UUID]domain.Signature
	audit      []domain.AuditLog
}

func (m *memoryStore) snapshot() memorySnapshot {
	s := memorySnapshot{
		documents:  make(map[uuid.UUID]domain.Document, len(m.documents)),
		signers:    make(map[uuid.UUID]domain.Signer, len(m.signers)),
		signatures: make(map[uuid.UUID]domain.Signature, len(m.signatures)),
		audit:      append([]domain.AuditLog(nil), m.audit...),
	}
	for k, v := range m.documents {
		s.documents[k] = v
	}
	for k, v := range m.signers {
		s.signers[k] = v
	}
	for k, v := range m.signatures {
		s.signatures[k] = v
	}
	return s
}

func (m *memoryStore) restore(s memorySnapshot) {
	m.documents = s.documents
	m.signers = s.signers
	m.signatures = s.signatures
	m.audit = s.audit
}

type memoryTx struct{ m *memoryStore }

func (t memoryTx) Documents() documentStore   { return memoryDocuments{t.m} }
func (t memoryTx) Signers() signerStore       { return memorySigners{t.m} }
func (t memoryTx) Signatures() signatureStore { return memorySignatures{t.m} }
func (t memoryTx) Audit() auditStore          { return memoryAudit{t.m} }

func (t memoryTx) DeleteDocument(ctx context.Context, documentID uuid.UUID) (map[string]int64, error) {
	counts := map[string]int64{}
	for id, sig := range t.m.signatures {
		if sig.DocumentID == documentID {
			delete(t.m.signatures, id)
			counts["signatures"]++
		}
	}
	for id, sg := range t.m.signers {
		if sg.DocumentID == documentID {
			delete(t.m.signers, id)
			counts["signers"]++
		}
	}
	kept := t.m.audit[:0:0]
	for _, entry := range t.m.audit {
		if entry.DocumentID == documentID {
			counts["audit_logs"]++
			continue
		}
		kept = append(kept, entry)
	}
	t.m.audit = kept
	if _, ok := t.m.documents[documentID]; ok {
		delete(t.m.documents, documentID)
		counts["documents"]++
	}
	return counts, nil
}

type memoryDocuments struct{ m *memoryStore }

func (d memoryDocuments) Create(ctx context.Context, doc *domain.Document) error {
	d.m.documents[doc.ID] = *doc
	return nil
}

func (d memoryDocuments) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, ok := d.m.documents[id]
	if !ok {
		return nil, domain.NotFound("document %s not found", id)
	}
	return &doc, nil
}

func (d memoryDocuments) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	d.m.lockReads++
	return d.GetByID(ctx, id)
}

func (d memoryDocuments) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range d.m.documents {
		if doc.OwnerID == ownerID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (d memoryDocuments) Save(ctx context.Context, doc *domain.Document) error {
	if _, ok := d.m.documents[doc.ID]; !ok {
		return domain.NotFound("document %s not found", doc.ID)
	}
	d.m.documents[doc.ID] = *doc
	return nil
}

func (d memoryDocuments) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.DocumentStatus) (bool, error) {
	doc, ok := d.m.documents[id]
	if !ok || doc.Status != from {
		return false, nil
	}
	doc.Status = to
	d.m.documents[id] = doc
	return true, nil
}

type memorySigners struct{ m *memoryStore }

func (s memorySigners) Create(ctx context.Context, sg *domain.Signer) error {
	for _, existing := range s.m.signers {
		if existing.Token == sg.Token {
			return domain.Validation("duplicate token")
		}
	}
	s.m.signers[sg.ID] = *sg
	return nil
}

func (s memorySigners) GetByToken(ctx context.Context, token string) (*domain.Signer, error) {
	for _, sg := range s.m.signers {
		if sg.Token == token {
			out := sg
			return &out, nil
		}
	}
	return nil, domain.NotFound("unknown signing token")
}

func (s memorySigners) GetByTokenPrefix(ctx context.Context, prefix string) (*domain.Signer, error) {
	var found []domain.Signer
	for _, sg := range s.m.signers {
		if strings.HasPrefix(sg.Token, prefix) {
			found = append(found, sg)
		}
	}
	if len(found) != 1 {
		return nil, domain.NotFound("ambiguous signing token")
	}
	out := found[0]
	return &out, nil
}

func (s memorySigners) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Signer, error) {
	var out []domain.Signer
	for _, sg := range s.m.signers {
		if sg.DocumentID == documentID {
			out = append(out, sg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignOrder < out[j].SignOrder })
	return out, nil
}

func (s memorySigners) Save(ctx context.Context, sg *domain.Signer) error {
	if _, ok := s.m.signers[sg.ID]; !ok {
		return domain.NotFound("signer %s not found", sg.ID)
	}
	s.m.signers[sg.ID] = *sg
	return nil
}

func (s memorySigners) MarkSigned(ctx context.Context, id uuid.UUID, at time.Time, ip, ua string) (bool, error) {
	sg, ok := s.m.signers[id]
	if !ok || sg.SignedAt != nil {
		return false, nil
	}
	sg.SignedAt = &at
	sg.IP = ip
	sg.UserAgent = ua
	sg.UpdatedAt = at
	s.m.signers[id] = sg
	return true, nil
}

type memorySignatures struct{ m *memoryStore }

func (s memorySignatures) Create(ctx context.Context, sig *domain.Signature) error {
	for _, existing := range s.m.signatures {
		if existing.SignerID == sig.SignerID {
			return domain.Validation("duplicate signature for signer")
		}
	}
	s.m.signatures[sig.ID] = *sig
	return nil
}

func (s memorySignatures) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Signature, error) {
	var out []domain.Signature
	for _, sig := range s.m.signatures {
		if sig.DocumentID == documentID {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignedAt.Before(out[j].SignedAt) })
	return out, nil
}

type memoryAudit struct{ m *memoryStore }

func (a memoryAudit) Append(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	a.m.audit = append(a.m.audit, *entry)
	return nil
}

func (a memoryAudit) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	for _, entry := range a.m.audit {
		if entry.DocumentID == documentID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (a memoryAudit) CountByAction(ctx context.Context, documentID uuid.UUID, action domain.AuditAction) (int64, error) {
	var n int64
	for _, entry := range a.m.audit {
		if entry.DocumentID == documentID && entry.Action == action {
			n++
		}
	}
	return n, nil
}
