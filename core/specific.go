package core

import (
	"errors"

	"gorm.io/gorm"

	"astor/models"
)

// GenericPage wraps a base record whose type tag no longer resolves to a
// registered type. It satisfies TypedPage so listings and base-level
// operations keep working while the misconfiguration is fixed.
type GenericPage struct {
	Page models.Page
}

func (p *GenericPage) Base() *models.Page { return &p.Page }
func (p *GenericPage) TypeTag() string    { return p.Page.Type }
func (p *GenericPage) PageTitle() string  { return "" }

// Specific resolves a generically fetched page to its concrete type by
// loading the extension record for the stored type tag. An unregistered
// tag degrades to a GenericPage instead of failing; the warning makes the
// misconfiguration visible to operators.
func (s *Service) Specific(page *models.Page) (models.TypedPage, error) {
	pt, ok := s.reg.TypeFor(page.Type)
	if !ok {
		s.log.Warn().
			Uint("page_id", page.ID).
			Str("type", page.Type).
			Msg("page type not registered, falling back to generic page")
		return &GenericPage{Page: *page}, nil
	}

	typed := pt.New()
	if err := loadExtension(s.db, typed, page.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	*typed.Base() = *page
	return typed, nil
}

// SpecificByID is Specific for callers holding only a page id.
func (s *Service) SpecificByID(id uint) (models.TypedPage, error) {
	page, err := s.GetPage(id)
	if err != nil {
		return nil, err
	}
	return s.Specific(page)
}

func loadExtension(db *gorm.DB, page models.TypedPage, id uint) error {
	switch p := page.(type) {
	case *models.ContentPage:
		return db.Where("page_id = ?", id).First(p).Error
	case *models.IndexPage:
		return db.Where("page_id = ?", id).First(p).Error
	case *models.UploadPage:
		return db.Where("page_id = ?", id).First(p).Error
	}
	return ErrUnknownPageType
}
