package site

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"astor/core"
	"astor/models"
)

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // raw HTML passes through, the sanitizer strips it after
	),
)

// sanitizer runs over every rendered body before it reaches a template.
// Author markdown may embed arbitrary HTML; only the UGC subset survives.
var sanitizer = bluemonday.UGCPolicy()

func renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(sanitizer.Sanitize(buf.String()))
}

// commentThread pairs a top-level comment with its replies. Replies to
// replies do not exist; threads are one level deep.
type commentThread struct {
	Comment models.Comment
	Replies []models.Comment
}

// loadEntry resolves the :username/:id pair to a live snapshot. Drafts,
// unpublished pages and pages of a different author are all a plain 404.
func (s *Module) loadEntry(c *gin.Context) (models.TypedPage, *models.User, bool) {
	user, ok := s.userByName(c.Param("username"))
	if !ok {
		return nil, nil, false
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, nil, false
	}

	page, err := s.core.SpecificByID(uint(id))
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.log.Error().Err(err).Uint64("page_id", id).Msg("loading entry failed")
		}
		return nil, nil, false
	}

	base := page.Base()
	if !base.Live || base.OwnerID == nil || *base.OwnerID != user.ID {
		return nil, nil, false
	}
	return page, user, true
}

func (s *Module) entry(c *gin.Context) {
	page, author, ok := s.loadEntry(c)
	if !ok {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{"error": "Page not found"})
		return
	}
	base := page.Base()

	s.analytics.RegisterVisit(c, base.ID, sessionUserID(c))

	tags, _ := s.core.TagsFor(base)

	data := gin.H{
		"author":   author,
		"base":     base,
		"title":    page.PageTitle(),
		"tags":     tags,
		"loggedIn": sessionUserID(c) != nil,
	}
	if base.CommentsEnabled {
		data["threads"] = s.threadsFor(base.ID)
	}

	switch p := page.(type) {
	case *models.ContentPage:
		data["page"] = p
		data["bodyHTML"] = renderMarkdown(p.Body)
		templateName := p.Template
		if templateName == "" {
			templateName = "entry_content.html"
		}
		c.HTML(http.StatusOK, templateName, data)

	case *models.IndexPage:
		pages, err := s.core.LivePagesForOwner(author.ID)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "site_error.html", gin.H{"error": "Could not load entries"})
			return
		}
		data["page"] = p
		data["entries"] = s.listings(pages)
		c.HTML(http.StatusOK, "entry_index.html", data)

	case *models.UploadPage:
		content, err := os.ReadFile(p.StoredPath)
		if err != nil {
			s.log.Error().Err(err).Str("path", p.StoredPath).Msg("reading uploaded file failed")
			c.HTML(http.StatusNotFound, "site_error.html", gin.H{"error": "Page not found"})
			return
		}
		data["page"] = p
		data["bodyHTML"] = template.HTML(sanitizer.SanitizeBytes(content))
		c.HTML(http.StatusOK, "entry_upload.html", data)

	default:
		// degraded type, base fields only
		data["page"] = page
		c.HTML(http.StatusOK, "entry_generic.html", data)
	}
}

func (s *Module) threadsFor(pageID uint) []commentThread {
	comments, err := s.core.CommentsFor(pageID)
	if err != nil {
		s.log.Warn().Err(err).Uint("page_id", pageID).Msg("loading comments failed")
		return nil
	}

	threads := make([]commentThread, 0, len(comments))
	for _, comment := range comments {
		replies, err := s.core.RepliesFor(comment.ID)
		if err != nil {
			replies = nil
		}
		threads = append(threads, commentThread{Comment: comment, Replies: replies})
	}
	return threads
}

func (s *Module) postComment(c *gin.Context) {
	userID := sessionUserID(c)
	if userID == nil {
		c.HTML(http.StatusForbidden, "site_error.html", gin.H{"error": "You must be logged in to comment"})
		return
	}

	page, _, ok := s.loadEntry(c)
	if !ok {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{"error": "Page not found"})
		return
	}
	base := page.Base()

	_, err := s.core.AddComment(base, userID, c.PostForm("body"))
	if err != nil {
		status := http.StatusInternalServerError
		message := "Could not post the comment"
		var fieldErrs core.FieldErrors
		switch {
		case errors.Is(err, core.ErrCommentsDisabled):
			status = http.StatusForbidden
			message = "Comments are disabled on this page"
		case errors.As(err, &fieldErrs):
			status = http.StatusBadRequest
			message = fieldErrs.Error()
		}
		c.HTML(status, "site_error.html", gin.H{"error": message})
		return
	}

	c.Redirect(http.StatusFound, c.Request.URL.Path[:len(c.Request.URL.Path)-len("/comments")])
}

func (s *Module) postReply(c *gin.Context) {
	userID := sessionUserID(c)
	if userID == nil {
		c.HTML(http.StatusForbidden, "site_error.html", gin.H{"error": "You must be logged in to reply"})
		return
	}

	commentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{"error": "Comment not found"})
		return
	}

	reply, err := s.core.AddReply(uint(commentID), userID, c.PostForm("body"))
	if err != nil {
		status := http.StatusInternalServerError
		message := "Could not post the reply"
		var fieldErrs core.FieldErrors
		switch {
		case errors.Is(err, core.ErrNotFound):
			status = http.StatusNotFound
			message = "Comment not found"
		case errors.Is(err, core.ErrCommentsDisabled):
			status = http.StatusForbidden
			message = "Comments are disabled on this page"
		case errors.As(err, &fieldErrs):
			status = http.StatusBadRequest
			message = fieldErrs.Error()
		}
		c.HTML(status, "site_error.html", gin.H{"error": message})
		return
	}

	if reply.PageID != nil {
		if redirect, ok := s.entryURL(*reply.PageID); ok {
			c.Redirect(http.StatusFound, redirect)
			return
		}
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Module) entryURL(pageID uint) (string, bool) {
	page, err := s.core.GetPage(pageID)
	if err != nil || page.OwnerID == nil {
		return "", false
	}
	var owner models.User
	if err := s.db.First(&owner, *page.OwnerID).Error; err != nil {
		return "", false
	}
	return fmt.Sprintf("/u/%s/pages/%d", owner.Username, pageID), true
}
