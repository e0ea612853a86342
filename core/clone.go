package core

import (
	"gorm.io/gorm"

	"astor/models"
)

// clonePage creates an independent persisted copy of a page's record
// graph: the base row first (fresh id, published reference cleared), then
// the extension row rekeyed to the new id, then the tag links. It runs
// only inside the publish transaction so a failure at any step rolls the
// whole copy back.
func clonePage(tx *gorm.DB, src models.TypedPage) (models.TypedPage, error) {
	srcID := src.Base().ID

	base := *src.Base()
	base.ID = 0
	base.PublishedPageID = nil // the copy must never look pre-published
	if err := tx.Create(&base).Error; err != nil {
		return nil, err
	}

	var clone models.TypedPage
	switch p := src.(type) {
	case *models.ContentPage:
		cp := *p
		cp.PageID = base.ID
		cp.Page = base
		if err := tx.Create(&cp).Error; err != nil {
			return nil, err
		}
		clone = &cp
	case *models.IndexPage:
		cp := *p
		cp.PageID = base.ID
		cp.Page = base
		if err := tx.Create(&cp).Error; err != nil {
			return nil, err
		}
		clone = &cp
	case *models.UploadPage:
		cp := *p
		cp.PageID = base.ID
		cp.Page = base
		if err := tx.Create(&cp).Error; err != nil {
			return nil, err
		}
		clone = &cp
	default:
		return nil, ErrUnknownPageType
	}

	var links []models.PageTag
	if err := tx.Where("page_id = ?", srcID).Find(&links).Error; err != nil {
		return nil, err
	}
	for _, link := range links {
		if err := tx.Create(&models.PageTag{PageID: base.ID, TagID: link.TagID}).Error; err != nil {
			return nil, err
		}
	}

	return clone, nil
}
