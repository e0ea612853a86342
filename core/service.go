package core

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"astor/models"
)

// Service owns the page lifecycle: creation, specific-type resolution,
// draft saving, publishing and deletion.
type Service struct {
	db       *gorm.DB
	reg      *Registry
	log      zerolog.Logger
	pubLocks sync.Map // page id -> *sync.Mutex, serializes publish/unpublish per draft
}

func NewService(db *gorm.DB, reg *Registry, log zerolog.Logger) *Service {
	return &Service{db: db, reg: reg, log: log}
}

// Registry returns the registry the service dispatches through.
func (s *Service) Registry() *Registry { return s.reg }

// CreatePage instantiates and persists a new draft of the given type. The
// type tag is recorded once here and never changed afterwards.
func (s *Service) CreatePage(tag string, ownerID *int) (models.TypedPage, error) {
	pt, ok := s.reg.TypeFor(tag)
	if !ok {
		return nil, ErrUnknownPageType
	}

	page := pt.New()
	base := page.Base()
	base.Type = tag
	base.OwnerID = ownerID
	base.Editable = true
	base.CommentsEnabled = true
	base.CreatedAt = time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(base).Error; err != nil {
			return err
		}
		return createExtension(tx, page)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetPage fetches a base page record.
func (s *Service) GetPage(id uint) (*models.Page, error) {
	var page models.Page
	if err := s.db.First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

// PagesForOwner lists a user's pages, newest changes first. With
// editableOnly set, published snapshots are filtered out.
func (s *Service) PagesForOwner(ownerID int, editableOnly bool) ([]models.Page, error) {
	q := s.db.Where("owner_id = ?", ownerID)
	if editableOnly {
		q = q.Where("editable = ?", true)
	}
	var pages []models.Page
	err := q.Order("created_at DESC").Find(&pages).Error
	return pages, err
}

// LivePages lists published snapshots, newest first.
func (s *Service) LivePages() ([]models.Page, error) {
	var pages []models.Page
	err := s.db.Where("live = ?", true).
		Order("first_published_at DESC").
		Find(&pages).Error
	return pages, err
}

// LivePagesForOwner lists a user's published snapshots, newest first.
func (s *Service) LivePagesForOwner(ownerID int) ([]models.Page, error) {
	var pages []models.Page
	err := s.db.Where("owner_id = ? AND live = ?", ownerID, true).
		Order("first_published_at DESC").
		Find(&pages).Error
	return pages, err
}

// SaveDraft persists the base and extension records of a draft. Every save
// marks the draft as changed since the last publish; the existing snapshot,
// if any, is never touched.
func (s *Service) SaveDraft(page models.TypedPage) error {
	base := page.Base()
	if !base.Editable {
		return ErrPageNotEditable
	}
	now := time.Now()
	base.HasUnpublishedChanges = true
	base.LatestChangesAt = &now

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(base).Error; err != nil {
			return err
		}
		return saveExtension(tx, page)
	})
}

func (s *Service) lockFor(pageID uint) *sync.Mutex {
	mu, _ := s.pubLocks.LoadOrStore(pageID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func createExtension(tx *gorm.DB, page models.TypedPage) error {
	switch p := page.(type) {
	case *models.ContentPage:
		p.PageID = p.Page.ID
		return tx.Create(p).Error
	case *models.IndexPage:
		p.PageID = p.Page.ID
		return tx.Create(p).Error
	case *models.UploadPage:
		p.PageID = p.Page.ID
		return tx.Create(p).Error
	case *GenericPage:
		// degraded base-only instance, nothing type-specific to store
		return nil
	}
	return ErrUnknownPageType
}

func saveExtension(tx *gorm.DB, page models.TypedPage) error {
	switch p := page.(type) {
	case *models.ContentPage:
		return tx.Save(p).Error
	case *models.IndexPage:
		return tx.Save(p).Error
	case *models.UploadPage:
		return tx.Save(p).Error
	case *GenericPage:
		return nil
	}
	return ErrUnknownPageType
}
