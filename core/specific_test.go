package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astor/models"
)

func TestSpecific_ResolvesContentPage(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	created := createTestContentPage(t, s, "Resolved", "the body")

	var base models.Page
	require.NoError(t, db.First(&base, created.Page.ID).Error)

	typed, err := s.Specific(&base)
	require.NoError(t, err)

	contentPage, ok := typed.(*models.ContentPage)
	require.True(t, ok)
	assert.Equal(t, "Resolved", contentPage.Title)
	assert.Equal(t, "the body", contentPage.Body)
	// base fields travel with the typed instance
	assert.Equal(t, base.ID, contentPage.Page.ID)
	assert.Equal(t, base.Type, contentPage.Page.Type)
}

func TestSpecific_UnknownTagDegradesToGeneric(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	base := models.Page{Type: "mystery", Editable: true}
	require.NoError(t, db.Create(&base).Error)

	typed, err := s.Specific(&base)
	require.NoError(t, err)

	generic, ok := typed.(*GenericPage)
	require.True(t, ok)
	assert.Equal(t, base.ID, generic.Page.ID)
	assert.Equal(t, "mystery", generic.TypeTag())
	assert.Equal(t, "", generic.PageTitle())
}

func TestSpecific_MissingExtensionRow(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	base := models.Page{Type: models.TypeContent, Editable: true}
	require.NoError(t, db.Create(&base).Error)

	_, err := s.Specific(&base)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpecificByID_NotFound(t *testing.T) {
	db := setupTestDB()
	s := newTestService(db)

	_, err := s.SpecificByID(999)
	assert.ErrorIs(t, err, ErrNotFound)
}
