package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skipperr254/passai-backend/config"
	"github.com/skipperr254/passai-backend/events"
	"github.com/skipperr254/passai-backend/extractor"
	"github.com/skipperr254/passai-backend/models"
	"github.com/skipperr254/passai-backend/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeStore struct {
	objects       map[string][]byte
	err           error
	downloadedKey string
}

func (s *fakeStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	s.downloadedKey = objectName
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.objects[objectName]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (s *fakeStore) Upload(ctx context.Context, objectName string, data []byte, contentType string) error {
	if s.err != nil {
		return s.err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[objectName] = data
	return nil
}

func (s *fakeStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return "http://minio.local/" + objectName, nil
}

type fakePublisher struct {
	published []events.TextExtracted
	err       error
}

func (p *fakePublisher) PublishTextExtracted(ctx context.Context, event events.TextExtracted) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fixture struct {
	svc   MaterialService
	repo  repository.MaterialRepository
	store *fakeStore
	pub   *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Material{}))

	repo := repository.NewMaterialRepository(db)
	store := &fakeStore{objects: map[string][]byte{}}
	pub := &fakePublisher{}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	extractors := extractor.NewSet(extractor.NewOCRClient(config.OCRConfig{}))
	svc := NewMaterialService(repo, store, extractors, pub, log)
	return &fixture{svc: svc, repo: repo, store: store, pub: pub}
}

func (f *fixture) createMaterial(t *testing.T, userID uuid.UUID, fileType, storagePath string) *models.Material {
	t.Helper()
	m := &models.Material{
		UserID:           userID,
		Title:            "notes",
		OriginalFilename: "notes." + fileType,
		FileType:         fileType,
		SizeBytes:        64,
		StoragePath:      storagePath,
		ProcessingStatus: models.StatusPending,
	}
	require.NoError(t, f.repo.Create(m))
	return m
}

func TestProcessMaterialSuccess(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")
	f.store.objects["u/notes.txt"] = []byte("hello world")

	result, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, m.ID, result.MaterialID)
	assert.Equal(t, 11, result.TextLength)
	assert.Equal(t, "text", result.FileType)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))
	assert.NotEmpty(t, result.Message)

	got, err := f.repo.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.ProcessingStatus)
	require.NotNil(t, got.TextContent)
	assert.Equal(t, "hello world", *got.TextContent)
	assert.Nil(t, got.ErrorMessage)
}

func TestProcessMaterialPublishesEvent(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")
	f.store.objects["u/notes.txt"] = []byte("hello")

	_, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.NoError(t, err)

	require.Len(t, f.pub.published, 1)
	assert.Equal(t, m.ID.String(), f.pub.published[0].MaterialID)
	assert.Equal(t, userID.String(), f.pub.published[0].UserID)
	assert.Equal(t, 5, f.pub.published[0].TextLength)
	assert.Equal(t, "text", f.pub.published[0].FileType)
}

func TestProcessMaterialPublisherFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")
	f.store.objects["u/notes.txt"] = []byte("hello")

	result, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestProcessMaterialRequestStoragePathWins(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/old-path.txt")
	f.store.objects["u/new-path.txt"] = []byte("from request path")

	_, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{
		MaterialID:  m.ID,
		StoragePath: "u/new-path.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "u/new-path.txt", f.store.downloadedKey)
}

func TestProcessMaterialFallsBackToRecordStoragePath(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/record-path.txt")
	f.store.objects["u/record-path.txt"] = []byte("from record path")

	_, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.NoError(t, err)
	assert.Equal(t, "u/record-path.txt", f.store.downloadedKey)
}

func TestProcessMaterialNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessMaterial(context.Background(), uuid.New(), ProcessingRequest{MaterialID: uuid.New()})
	assert.ErrorIs(t, err, ErrMaterialNotFound)
}

func TestProcessMaterialOwnershipMismatchLeavesStatusUntouched(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	intruder := uuid.New()
	m := f.createMaterial(t, owner, "text", "u/notes.txt")

	_, err := f.svc.ProcessMaterial(context.Background(), intruder, ProcessingRequest{MaterialID: m.ID})
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := f.repo.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.ProcessingStatus)
	assert.Nil(t, got.ErrorMessage)
	assert.Empty(t, f.store.downloadedKey)
}

func TestProcessMaterialDownloadFailure(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("connection refused")
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")

	_, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download")

	got, gerr := f.repo.GetByID(m.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusError, got.ProcessingStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.NotEmpty(t, *got.ErrorMessage)
}

func TestProcessMaterialUnsupportedFileType(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "xyz", "u/notes.xyz")
	f.store.objects["u/notes.xyz"] = []byte("whatever")

	_, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")

	got, gerr := f.repo.GetByID(m.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusError, got.ProcessingStatus)
}

func TestProcessMaterialInvalidUTF8Text(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")
	f.store.objects["u/notes.txt"] = []byte{0xff, 0xfe, 0xfd}

	_, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.Error(t, err)

	got, gerr := f.repo.GetByID(m.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusError, got.ProcessingStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.NotEmpty(t, *got.ErrorMessage)
	assert.Empty(t, f.pub.published)
}

func TestProcessMaterialFailedRerunKeepsEarlierText(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")
	f.store.objects["u/notes.txt"] = []byte("first run text")

	_, err := f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.NoError(t, err)

	// Second run fails at download; the earlier text must survive.
	f.store.err = errors.New("bucket gone")
	_, err = f.svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.Error(t, err)

	got, gerr := f.repo.GetByID(m.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusError, got.ProcessingStatus)
	require.NotNil(t, got.TextContent)
	assert.Equal(t, "first run text", *got.TextContent)
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(data []byte) (string, error) {
	panic("slice bounds out of range")
}

func TestProcessMaterialExtractorPanicLandsInErrorState(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")
	f.store.objects["u/notes.txt"] = []byte("hello")

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	extractors := extractor.NewSetWithExtractors(map[extractor.Format]extractor.Extractor{
		extractor.FormatText: panickingExtractor{},
	})
	svc := NewMaterialService(f.repo, f.store, extractors, f.pub, log)

	result, err := svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "unexpected error:")

	got, gerr := f.repo.GetByID(m.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusError, got.ProcessingStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.True(t, strings.HasPrefix(*got.ErrorMessage, "unexpected error:"))
	assert.Empty(t, f.pub.published)
}

type failingReadyRepo struct {
	repository.MaterialRepository
}

func (r *failingReadyRepo) SetReady(id uuid.UUID, text string) error {
	return errors.New("connection reset by peer")
}

func TestProcessMaterialSetReadyFailureRecordsErrorState(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	m := f.createMaterial(t, userID, "text", "u/notes.txt")
	f.store.objects["u/notes.txt"] = []byte("hello")

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	extractors := extractor.NewSet(extractor.NewOCRClient(config.OCRConfig{}))
	svc := NewMaterialService(&failingReadyRepo{f.repo}, f.store, extractors, f.pub, log)

	_, err := svc.ProcessMaterial(context.Background(), userID, ProcessingRequest{MaterialID: m.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save extracted text")

	got, gerr := f.repo.GetByID(m.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusError, got.ProcessingStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.Empty(t, f.pub.published)
}

func TestUploadFileCreatesPendingRecord(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	m, err := f.svc.UploadFile(context.Background(), userID, "Chapter 1", "chapter1.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)

	assert.Equal(t, "pdf", m.FileType)
	assert.Equal(t, models.StatusPending, m.ProcessingStatus)
	assert.NotEmpty(t, m.StoragePath)
	assert.Contains(t, m.StoragePath, userID.String())

	stored, ok := f.store.objects[m.StoragePath]
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-1.4 fake"), stored)
}

func TestUploadFileUnsupportedContentType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UploadFile(context.Background(), uuid.New(), "t", "a.bin", "application/octet-stream", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedUpload)
}

func TestUploadFileTooLarge(t *testing.T) {
	f := newFixture(t)

	big := make([]byte, MaxImageSize+1)
	_, err := f.svc.UploadFile(context.Background(), uuid.New(), "t", "a.png", "image/png", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestGetMaterialOwnership(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	m := f.createMaterial(t, owner, "text", "u/notes.txt")

	got, err := f.svc.GetMaterial(owner, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = f.svc.GetMaterial(uuid.New(), m.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestListMaterials(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.createMaterial(t, userID, "text", "a")
	f.createMaterial(t, userID, "pdf", "b")

	materials, total, err := f.svc.ListMaterials(userID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, materials, 2)
}
