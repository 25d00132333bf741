package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/skipperr254/passai-backend/events"
	"github.com/skipperr254/passai-backend/extractor"
	"github.com/skipperr254/passai-backend/models"
	"github.com/skipperr254/passai-backend/pkg/metrics"
	"github.com/skipperr254/passai-backend/repository"
	"github.com/skipperr254/passai-backend/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const serviceName = "material-service"

var (
	// ErrMaterialNotFound and ErrNotOwner are distinct so ownership handling
	// can change without touching the guard; the HTTP layer currently maps
	// both to 404 to avoid leaking record existence.
	ErrMaterialNotFound = errors.New("material not found")
	ErrNotOwner         = errors.New("material does not belong to user")

	ErrUnsupportedUpload = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file size exceeds the maximum limit")
)

const (
	MaxImageSize    = 5 * 1024 * 1024
	MaxDocumentSize = 10 * 1024 * 1024
)

// allowedContentTypes maps upload MIME types onto declared file-type tags.
var allowedContentTypes = map[string]string{
	"application/pdf": "pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"image/jpeg": "image",
	"image/jpg":  "image",
	"image/png":  "image",
	"text/plain": "text",
}

// ProcessingRequest is the per-run input: which material, and where its raw
// bytes live in the object store.
type ProcessingRequest struct {
	MaterialID  uuid.UUID
	StoragePath string
}

// ProcessingResult is returned to the caller and never persisted.
type ProcessingResult struct {
	Success          bool      `json:"success"`
	MaterialID       uuid.UUID `json:"material_id"`
	TextLength       int       `json:"text_length"`
	FileType         string    `json:"file_type"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Message          string    `json:"message"`
}

type MaterialService interface {
	ProcessMaterial(ctx context.Context, userID uuid.UUID, req ProcessingRequest) (*ProcessingResult, error)
	UploadFile(ctx context.Context, userID uuid.UUID, title, originalFilename, contentType string, data []byte) (*models.Material, error)
	GetMaterial(userID, materialID uuid.UUID) (*models.Material, error)
	ListMaterials(userID uuid.UUID, page, pageSize int32) ([]*models.Material, int64, error)
}

type MaterialServiceImpl struct {
	repo       repository.MaterialRepository
	store      storage.ObjectStore
	extractors *extractor.Set
	publisher  events.Publisher
	logger     *logrus.Logger
}

func NewMaterialService(repo repository.MaterialRepository, store storage.ObjectStore, extractors *extractor.Set, publisher events.Publisher, logger *logrus.Logger) MaterialService {
	return &MaterialServiceImpl{
		repo:       repo,
		store:      store,
		extractors: extractors,
		publisher:  publisher,
		logger:     logger,
	}
}

// ownedMaterial fetches the record and confirms ownership. No side effects:
// the record's status is never touched here.
func (s *MaterialServiceImpl) ownedMaterial(materialID, userID uuid.UUID) (*models.Material, error) {
	material, err := s.repo.GetByID(materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("fetch material: %w", err)
	}
	if material.UserID != userID {
		return nil, ErrNotOwner
	}
	return material, nil
}

// ProcessMaterial runs one end-to-end extraction:
// guard -> mark processing -> download -> dispatch -> extract -> mark ready.
// Every failure after the processing mark lands the record in the error state
// with a message; failures before it leave the record untouched.
func (s *MaterialServiceImpl) ProcessMaterial(ctx context.Context, userID uuid.UUID, req ProcessingRequest) (result *ProcessingResult, err error) {
	start := time.Now()

	material, err := s.ownedMaterial(req.MaterialID, userID)
	if err != nil {
		return nil, err
	}

	if perr := s.repo.SetProcessing(material.ID); perr != nil {
		return nil, perr
	}

	// Parser internals may panic on hostile input; convert that into the
	// same terminal error state as any classified failure.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = s.failRun(material, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	storagePath := req.StoragePath
	if storagePath == "" {
		storagePath = material.StoragePath
	}

	data, derr := s.store.Download(ctx, storagePath)
	if derr != nil {
		return nil, s.failRun(material, fmt.Sprintf("failed to download file from storage: %v", derr))
	}

	format, rerr := extractor.Resolve(material.FileType, material.OriginalFilename)
	if rerr != nil {
		return nil, s.failRun(material, rerr.Error())
	}

	ex, eerr := s.extractors.ForFormat(format)
	if eerr != nil {
		return nil, s.failRun(material, eerr.Error())
	}

	text, xerr := ex.Extract(data)
	if xerr != nil {
		return nil, s.failRun(material, fmt.Sprintf("failed to extract text: %v", xerr))
	}

	if perr := s.repo.SetReady(material.ID, text); perr != nil {
		return nil, s.failRun(material, fmt.Sprintf("failed to save extracted text: %v", perr))
	}

	elapsed := time.Since(start)
	s.recordOutcome(format, "ready")
	metrics.ExtractionDuration.WithLabelValues(serviceName, string(format)).Observe(elapsed.Seconds())
	s.publishTextExtracted(material, format, len(text))

	s.logger.WithFields(logrus.Fields{
		"material_id": material.ID,
		"file_type":   format,
		"text_length": len(text),
		"elapsed_ms":  elapsed.Milliseconds(),
	}).Info("material processed")

	return &ProcessingResult{
		Success:          true,
		MaterialID:       material.ID,
		TextLength:       len(text),
		FileType:         string(format),
		ProcessingTimeMs: elapsed.Milliseconds(),
		Message:          "Material processed successfully. Text extracted and saved.",
	}, nil
}

// failRun records the terminal error state and returns the message as the
// run's error. A failed status write is reported alongside the original
// failure instead of replacing it.
func (s *MaterialServiceImpl) failRun(material *models.Material, msg string) error {
	s.recordOutcome(extractor.Format(material.FileType), "error")
	if perr := s.repo.SetError(material.ID, msg); perr != nil {
		s.logger.WithError(perr).WithField("material_id", material.ID).Error("failed to record error status")
		return fmt.Errorf("%s (status write failed: %v)", msg, perr)
	}
	return errors.New(msg)
}

func (s *MaterialServiceImpl) recordOutcome(format extractor.Format, status string) {
	metrics.MaterialsProcessed.WithLabelValues(serviceName, string(format), status).Inc()
}

// publishTextExtracted is best-effort: a broker failure never fails the run.
func (s *MaterialServiceImpl) publishTextExtracted(material *models.Material, format extractor.Format, textLength int) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.publisher.PublishTextExtracted(ctx, events.TextExtracted{
		MaterialID: material.ID.String(),
		UserID:     material.UserID.String(),
		TextLength: textLength,
		FileType:   string(format),
	})
	if err != nil {
		s.logger.WithError(err).WithField("material_id", material.ID).Warn("failed to publish text.extracted event")
		metrics.KafkaMessagesTotal.WithLabelValues(serviceName, "text.extracted", "error").Inc()
		return
	}
	metrics.KafkaMessagesTotal.WithLabelValues(serviceName, "text.extracted", "ok").Inc()
}

func (s *MaterialServiceImpl) UploadFile(ctx context.Context, userID uuid.UUID, title, originalFilename, contentType string, data []byte) (*models.Material, error) {
	fileType, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedUpload, contentType)
	}
	limit := int64(MaxDocumentSize)
	if fileType == "image" {
		limit = MaxImageSize
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", ErrFileTooLarge, limit)
	}

	ext := filepath.Ext(originalFilename)
	objectName := fmt.Sprintf("%s/%s%s", userID.String(), uuid.New().String(), ext)

	material := &models.Material{
		UserID:           userID,
		Title:            title,
		OriginalFilename: originalFilename,
		FileType:         fileType,
		SizeBytes:        int64(len(data)),
		StoragePath:      objectName,
		ProcessingStatus: models.StatusPending,
	}
	if err := s.repo.Create(material); err != nil {
		return nil, fmt.Errorf("failed to save material record: %w", err)
	}

	if err := s.store.Upload(ctx, objectName, data, contentType); err != nil {
		if perr := s.repo.SetError(material.ID, fmt.Sprintf("failed to store file: %v", err)); perr != nil {
			s.logger.WithError(perr).WithField("material_id", material.ID).Error("failed to record error status")
		}
		return nil, fmt.Errorf("failed to upload file to storage: %w", err)
	}

	return material, nil
}

func (s *MaterialServiceImpl) GetMaterial(userID, materialID uuid.UUID) (*models.Material, error) {
	return s.ownedMaterial(materialID, userID)
}

func (s *MaterialServiceImpl) ListMaterials(userID uuid.UUID, page, pageSize int32) ([]*models.Material, int64, error) {
	return s.repo.GetByUserIDWithPagination(userID, page, pageSize)
}
