package api

import (
	"astor/core"
	"astor/models"
)

// basePayload is the serialization every page type shares.
func basePayload(base *models.Page) map[string]any {
	return map[string]any{
		"id":                      base.ID,
		"type":                    base.Type,
		"owner_id":                base.OwnerID,
		"live":                    base.Live,
		"editable":                base.Editable,
		"has_unpublished_changes": base.HasUnpublishedChanges,
		"first_published_at":      base.FirstPublishedAt,
		"latest_changes_at":       base.LatestChangesAt,
		"created_at":              base.CreatedAt,
		"comments_enabled":        base.CommentsEnabled,
		"published_page_id":       base.PublishedPageID,
	}
}

type ContentPageSerializer struct{}

func (ContentPageSerializer) TypeTag() string { return models.TypeContent }

func (ContentPageSerializer) Serialize(page models.TypedPage) map[string]any {
	payload := basePayload(page.Base())
	if p, ok := page.(*models.ContentPage); ok {
		payload["title"] = p.Title
		payload["abstract"] = p.Abstract
		payload["body"] = p.Body
		payload["template"] = p.Template
	}
	return payload
}

type IndexPageSerializer struct{}

func (IndexPageSerializer) TypeTag() string { return models.TypeIndex }

func (IndexPageSerializer) Serialize(page models.TypedPage) map[string]any {
	payload := basePayload(page.Base())
	if p, ok := page.(*models.IndexPage); ok {
		payload["title"] = p.Title
		payload["abstract"] = p.Abstract
	}
	return payload
}

type UploadPageSerializer struct{}

func (UploadPageSerializer) TypeTag() string { return models.TypeUpload }

func (UploadPageSerializer) Serialize(page models.TypedPage) map[string]any {
	payload := basePayload(page.Base())
	if p, ok := page.(*models.UploadPage); ok {
		payload["title"] = p.Title
		payload["abstract"] = p.Abstract
		payload["file_name"] = p.FileName
	}
	return payload
}

// RegisterSerializers installs one serializer per built-in page type.
func RegisterSerializers(registry *core.Registry) {
	registry.RegisterSerializer(ContentPageSerializer{})
	registry.RegisterSerializer(IndexPageSerializer{})
	registry.RegisterSerializer(UploadPageSerializer{})
}
