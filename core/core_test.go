package core

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"astor/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Page{}, &models.ContentPage{}, &models.IndexPage{},
		&models.UploadPage{}, &models.Tag{}, &models.PageTag{}, &models.Comment{},
		&models.PageVisit{}, &models.Activity{})
	return db
}

func newTestService(db *gorm.DB) *Service {
	reg := NewRegistry()
	RegisterDefaultTypes(reg)
	return NewService(db, reg, zerolog.Nop())
}

func createTestContentPage(t *testing.T, s *Service, title, body string) *models.ContentPage {
	t.Helper()

	ownerID := 1
	page, err := s.CreatePage(models.TypeContent, &ownerID)
	require.NoError(t, err)

	contentPage := page.(*models.ContentPage)
	contentPage.Title = title
	contentPage.Body = body
	require.NoError(t, s.SaveDraft(contentPage))
	return contentPage
}

func TestCreatePage_SetsDefaults(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	ownerID := 7
	page, err := s.CreatePage(models.TypeContent, &ownerID)
	require.NoError(t, err)

	base := page.Base()
	assert.Equal(t, models.TypeContent, base.Type)
	assert.Equal(t, 7, *base.OwnerID)
	assert.True(t, base.Editable)
	assert.True(t, base.CommentsEnabled)
	assert.False(t, base.Live)
	assert.Nil(t, base.FirstPublishedAt)
	assert.Nil(t, base.PublishedPageID)

	contentPage := page.(*models.ContentPage)
	assert.Equal(t, "entry_content.html", contentPage.Template)
	assert.Equal(t, base.ID, contentPage.PageID)
}

func TestCreatePage_UnknownType(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	_, err := s.CreatePage("mystery", nil)
	assert.ErrorIs(t, err, ErrUnknownPageType)
}

func TestSaveDraft_MarksUnpublishedChanges(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	page := createTestContentPage(t, s, "First", "body")

	var stored models.Page
	require.NoError(t, db.First(&stored, page.Page.ID).Error)
	assert.True(t, stored.HasUnpublishedChanges)
	assert.NotNil(t, stored.LatestChangesAt)
}

func TestSaveDraft_SnapshotRejected(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	page := createTestContentPage(t, s, "First", "body")
	snapshot, err := s.Publish(page)
	require.NoError(t, err)

	err = s.SaveDraft(snapshot)
	assert.ErrorIs(t, err, ErrPageNotEditable)
}

func TestPagesForOwner_EditableOnly(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	page := createTestContentPage(t, s, "First", "body")
	_, err := s.Publish(page)
	require.NoError(t, err)

	all, err := s.PagesForOwner(1, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	drafts, err := s.PagesForOwner(1, true)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
	assert.Equal(t, page.Page.ID, drafts[0].ID)
}
