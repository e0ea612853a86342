package core

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"astor/models"
)

// Publish materializes a read-only snapshot of the draft and links it back.
// A prior snapshot is replaced, never accumulated: the whole
// delete-old / clone / relink sequence runs in one transaction, and
// publishes of the same draft are serialized so concurrent calls cannot
// leak an orphaned snapshot.
func (s *Service) Publish(page models.TypedPage) (models.TypedPage, error) {
	draft := page.Base()
	if !draft.Editable {
		return nil, ErrPageNotEditable
	}

	mu := s.lockFor(draft.ID)
	mu.Lock()
	defer mu.Unlock()

	var snapshot models.TypedPage
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Page
		if err := tx.First(&current, draft.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		firstPublish := current.FirstPublishedAt == nil
		if firstPublish {
			now := time.Now()
			draft.FirstPublishedAt = &now // the clone below carries it too
		} else {
			draft.FirstPublishedAt = current.FirstPublishedAt
		}

		if current.PublishedPageID != nil {
			if err := deletePageGraph(tx, *current.PublishedPageID); err != nil {
				return err
			}
		}

		clone, err := clonePage(tx, page)
		if err != nil {
			return err
		}

		snapBase := clone.Base()
		snapUpdates := map[string]any{
			"live":                    true,
			"editable":                false,
			"published_page_id":       nil,
			"has_unpublished_changes": false,
		}
		if err := tx.Model(&models.Page{}).Where("id = ?", snapBase.ID).Updates(snapUpdates).Error; err != nil {
			return err
		}
		snapBase.Live = true
		snapBase.Editable = false
		snapBase.PublishedPageID = nil
		snapBase.HasUnpublishedChanges = false

		// Direct column updates: publish resets the changed flag instead
		// of setting it the way SaveDraft does.
		draftUpdates := map[string]any{
			"published_page_id":       snapBase.ID,
			"has_unpublished_changes": false,
		}
		if firstPublish {
			draftUpdates["first_published_at"] = *draft.FirstPublishedAt
		}
		if err := tx.Model(&models.Page{}).Where("id = ?", draft.ID).Updates(draftUpdates).Error; err != nil {
			return err
		}
		draft.PublishedPageID = &snapBase.ID
		draft.HasUnpublishedChanges = false

		snapshot = clone
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Uint("page_id", draft.ID).
			Msg("publish aborted, draft left in its prior state")
		return nil, err
	}
	return snapshot, nil
}

// Unpublish tears down the draft's snapshot. Calling it on a draft without
// one is a no-op.
func (s *Service) Unpublish(page *models.Page) error {
	if !page.Editable {
		return ErrPageNotEditable
	}

	mu := s.lockFor(page.ID)
	mu.Lock()
	defer mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Page
		if err := tx.First(&current, page.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if current.PublishedPageID == nil {
			return nil
		}
		if err := deletePageGraph(tx, *current.PublishedPageID); err != nil {
			return err
		}
		if err := tx.Model(&models.Page{}).Where("id = ?", page.ID).
			Update("published_page_id", nil).Error; err != nil {
			return err
		}
		page.PublishedPageID = nil
		return nil
	})
}

// DeletePage removes a page and its record graph. Deleting a draft
// cascades into its snapshot; deleting a snapshot directly leaves the
// draft intact with its published reference cleared.
func (s *Service) DeletePage(page *models.Page) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Page
		if err := tx.First(&current, page.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if current.PublishedPageID != nil {
			if err := deletePageGraph(tx, *current.PublishedPageID); err != nil {
				return err
			}
		}
		// When the target is itself a snapshot, detach it from its draft.
		if err := tx.Model(&models.Page{}).Where("published_page_id = ?", current.ID).
			Update("published_page_id", nil).Error; err != nil {
			return err
		}
		return deletePageGraph(tx, current.ID)
	})
}

// deletePageGraph removes one page row plus everything keyed to it: the
// extension row, tag links, comments and visits.
func deletePageGraph(tx *gorm.DB, id uint) error {
	for _, ext := range []any{&models.ContentPage{}, &models.IndexPage{}, &models.UploadPage{}} {
		if err := tx.Where("page_id = ?", id).Delete(ext).Error; err != nil {
			return err
		}
	}
	for _, rel := range []any{&models.PageTag{}, &models.Comment{}, &models.PageVisit{}} {
		if err := tx.Where("page_id = ?", id).Delete(rel).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.Page{}, id).Error
}
