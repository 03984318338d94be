package store

import (
	"context"

	"esign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeleteDocumentData removes the document and everything hanging off it in
// one transaction, returning per-table counts captured before deletion.
// Callers enforce the completed-documents-are-preserved rule.
func (s *Store) DeleteDocumentData(ctx context.Context, documentID uuid.UUID) (map[string]int64, error) {
	deleted := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		db := tx.DB.WithContext(ctx)

		count := func(label string, query *gorm.DB) error {
			var total int64
			if err := query.Count(&total).Error; err != nil {
				return err
			}
			deleted[label] = total
			return nil
		}

		if err := count("documents", db.Model(&domain.Document{}).Where("id = ?", documentID)); err != nil {
			return err
		}
		if err := count("signers", db.Model(&domain.Signer{}).Where("document_id = ?", documentID)); err != nil {
			return err
		}
		if err := count("signatures", db.Model(&domain.Signature{}).Where("document_id = ?", documentID)); err != nil {
			return err
		}
		if err := count("auditLogs", db.Model(&domain.AuditLog{}).Where("document_id = ?", documentID)); err != nil {
			return err
		}

		if err := db.Where("document_id = ?", documentID).Delete(&domain.Signature{}).Error; err != nil {
			return err
		}
		if err := db.Where("document_id = ?", documentID).Delete(&domain.Signer{}).Error; err != nil {
			return err
		}
		if err := db.Where("document_id = ?", documentID).Delete(&domain.AuditLog{}).Error; err != nil {
			return err
		}
		return db.Where("id = ?", documentID).Delete(&domain.Document{}).Error
	})

	return deleted, err
}
