package repository

import (
	"fmt"

	"github.com/skipperr254/passai-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaterialRepository interface {
	BaseRepository[models.Material]
	GetByUserIDWithPagination(userID uuid.UUID, page, pageSize int32) ([]*models.Material, int64, error)
	CountByStatus(status models.ProcessingStatus) (int64, error)

	// Status tracker writes. Each is a single row-level update and safe to
	// retry: repeating the same call produces the same final row state.
	SetProcessing(id uuid.UUID) error
	SetReady(id uuid.UUID, text string) error
	SetError(id uuid.UUID, message string) error
}

type MaterialRepositoryImpl struct {
	*BaseRepositoryImpl[models.Material]
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &MaterialRepositoryImpl{
		BaseRepositoryImpl: NewBaseRepository[models.Material](db),
	}
}

func (r *MaterialRepositoryImpl) GetByUserIDWithPagination(userID uuid.UUID, page, pageSize int32) ([]*models.Material, int64, error) {
	var materials []*models.Material
	var total int64

	offset := (page - 1) * pageSize

	err := r.db.Model(&models.Material{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.Where("user_id = ?", userID).
		Limit(int(pageSize)).
		Offset(int(offset)).
		Order("created_at DESC").
		Find(&materials).Error
	if err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

func (r *MaterialRepositoryImpl) CountByStatus(status models.ProcessingStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.Material{}).Where("processing_status = ?", status).Count(&count).Error
	return count, err
}

func (r *MaterialRepositoryImpl) SetProcessing(id uuid.UUID) error {
	err := r.db.Model(&models.Material{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processing_status": models.StatusProcessing,
		"error_message":     nil,
	}).Error
	if err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	return nil
}

func (r *MaterialRepositoryImpl) SetReady(id uuid.UUID, text string) error {
	err := r.db.Model(&models.Material{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processing_status": models.StatusReady,
		"text_content":      text,
		"error_message":     nil,
	}).Error
	if err != nil {
		return fmt.Errorf("set ready: %w", err)
	}
	return nil
}

// SetError records the failure message without touching text_content, so a
// failed reprocessing run cannot wipe text stored by an earlier success.
func (r *MaterialRepositoryImpl) SetError(id uuid.UUID, message string) error {
	err := r.db.Model(&models.Material{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processing_status": models.StatusError,
		"error_message":     message,
	}).Error
	if err != nil {
		return fmt.Errorf("set error: %w", err)
	}
	return nil
}
