package core

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"astor/models"
)

// AddComment attaches a top-level comment to a page. The author may be
// nil (anonymized later) but the page is required and must accept
// comments.
func (s *Service) AddComment(page *models.Page, authorID *int, body string) (*models.Comment, error) {
	fe := FieldErrors{}
	if page == nil {
		fe["page"] = "this field (or parent) is required"
	}
	if strings.TrimSpace(body) == "" {
		fe["body"] = "this field is required"
	}
	if len(fe) > 0 {
		return nil, fe
	}
	if !page.CommentsEnabled {
		return nil, ErrCommentsDisabled
	}

	comment := models.Comment{
		PageID:    &page.ID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// AddReply attaches a reply to an existing comment. The data model allows
// arbitrary depth; the surfaces only ever go one level down.
func (s *Service) AddReply(parentID uint, authorID *int, body string) (*models.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, FieldErrors{"body": "this field is required"}
	}

	var parent models.Comment
	if err := s.db.First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if parent.PageID != nil {
		var page models.Page
		if err := s.db.First(&page, *parent.PageID).Error; err == nil && !page.CommentsEnabled {
			return nil, ErrCommentsDisabled
		}
	}

	reply := models.Comment{
		PageID:    parent.PageID,
		ParentID:  &parent.ID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&reply).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

// CommentsFor returns a page's top-level comments, oldest first.
func (s *Service) CommentsFor(pageID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.Where("page_id = ? AND parent_id IS NULL", pageID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// RepliesFor returns the direct replies of a comment, oldest first.
func (s *Service) RepliesFor(commentID uint) ([]models.Comment, error) {
	var replies []models.Comment
	err := s.db.Where("parent_id = ?", commentID).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}

// GetComment fetches a single comment.
func (s *Service) GetComment(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}
