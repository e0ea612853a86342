package account

import (
	"net/url"
	"strings"

	"astor/core"
	"astor/models"
)

// IndexPageForm binds title and abstract for index pages.
type IndexPageForm struct{}

func (IndexPageForm) TypeTag() string { return models.TypeIndex }

func (IndexPageForm) Bind(values url.Values, page models.TypedPage) error {
	indexPage, ok := page.(*models.IndexPage)
	if !ok {
		return core.ErrUnknownPageType
	}

	errs := core.FieldErrors{}
	title := strings.TrimSpace(values.Get("title"))
	if title == "" {
		errs["title"] = "this field is required"
	}
	if len(errs) > 0 {
		return errs
	}

	indexPage.Title = title
	indexPage.Abstract = strings.TrimSpace(values.Get("abstract"))
	return nil
}

// ContentPageForm binds the full entry fields. Title and body are required.
type ContentPageForm struct{}

func (ContentPageForm) TypeTag() string { return models.TypeContent }

func (ContentPageForm) Bind(values url.Values, page models.TypedPage) error {
	contentPage, ok := page.(*models.ContentPage)
	if !ok {
		return core.ErrUnknownPageType
	}

	errs := core.FieldErrors{}
	title := strings.TrimSpace(values.Get("title"))
	if title == "" {
		errs["title"] = "this field is required"
	}
	body := values.Get("body")
	if strings.TrimSpace(body) == "" {
		errs["body"] = "this field is required"
	}
	if len(errs) > 0 {
		return errs
	}

	contentPage.Title = title
	contentPage.Abstract = strings.TrimSpace(values.Get("abstract"))
	contentPage.Body = body
	if template := strings.TrimSpace(values.Get("template")); template != "" {
		contentPage.Template = template
	}
	return nil
}

// UploadPageForm binds title and abstract. The file itself is stored by the
// handler, which fills FileName and StoredPath before saving.
type UploadPageForm struct{}

func (UploadPageForm) TypeTag() string { return models.TypeUpload }

func (UploadPageForm) Bind(values url.Values, page models.TypedPage) error {
	uploadPage, ok := page.(*models.UploadPage)
	if !ok {
		return core.ErrUnknownPageType
	}

	errs := core.FieldErrors{}
	title := strings.TrimSpace(values.Get("title"))
	if title == "" {
		errs["title"] = "this field is required"
	}
	if len(errs) > 0 {
		return errs
	}

	uploadPage.Title = title
	uploadPage.Abstract = strings.TrimSpace(values.Get("abstract"))
	return nil
}

// RegisterForms installs one form per built-in page type.
func RegisterForms(registry *core.Registry) {
	registry.RegisterForm(IndexPageForm{})
	registry.RegisterForm(ContentPageForm{})
	registry.RegisterForm(UploadPageForm{})
}
