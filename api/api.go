package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"astor/core"
	"astor/models"
)

// Module is the JSON surface over pages, comments and tags. Serialization
// of each page is dispatched through the registry by type tag.
type Module struct {
	db   *gorm.DB
	core *core.Service
	log  zerolog.Logger
}

func NewModule(db *gorm.DB, coreService *core.Service, log zerolog.Logger) *Module {
	return &Module{db: db, core: coreService, log: log}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api")
	{
		group.GET("/pages", m.listPages)
		group.POST("/pages", m.requireAuth, m.createPage)
		group.GET("/pages/:id", m.getPage)
		group.GET("/pages/:id/comments", m.listComments)
		group.POST("/pages/:id/comments", m.requireAuth, m.createComment)
		group.GET("/comments/:id/replies", m.listReplies)
		group.POST("/comments/:id/replies", m.requireAuth, m.createReply)
		group.GET("/tags", m.listTags)
		group.POST("/tags", m.requireAuth, m.createTag)
		group.GET("/tags/:slug", m.getTag)
		group.PUT("/tags/:slug", m.requireAuth, m.updateTag)
		group.DELETE("/tags/:slug", m.requireAuth, m.deleteTag)
	}
}

func (m *Module) requireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")

	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		c.Abort()
		return
	}

	c.Set("user_id", userID)
	c.Next()
}

func sessionUserID(c *gin.Context) *int {
	session := sessions.Default(c)
	v := session.Get("user_id")
	if v == nil {
		return nil
	}
	id, ok := v.(int)
	if !ok {
		return nil
	}
	return &id
}

// serialize resolves the page's serializer through the registry. A page
// whose tag has no serializer still gets the shared base payload.
func (m *Module) serialize(page models.TypedPage) map[string]any {
	serializer, err := m.core.Registry().SerializerFor(page)
	if err != nil {
		m.log.Warn().Str("type", page.TypeTag()).Uint("page_id", page.Base().ID).
			Msg("no serializer registered, returning base fields")
		return basePayload(page.Base())
	}
	return serializer.Serialize(page)
}

func (m *Module) listPages(c *gin.Context) {
	pages, err := m.core.LivePages()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list pages"})
		return
	}

	payload := make([]map[string]any, 0, len(pages))
	for i := range pages {
		typed, err := m.core.Specific(&pages[i])
		if err != nil {
			m.log.Warn().Err(err).Uint("page_id", pages[i].ID).Msg("skipping unresolvable page")
			continue
		}
		payload = append(payload, m.serialize(typed))
	}

	c.JSON(http.StatusOK, gin.H{"pages": payload})
}

// getPage serves any live snapshot. Drafts are only visible to their owner.
func (m *Module) getPage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}

	page, err := m.core.SpecificByID(uint(id))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load the page"})
		return
	}

	base := page.Base()
	if !base.Live {
		userID := sessionUserID(c)
		if userID == nil || base.OwnerID == nil || *base.OwnerID != *userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
			return
		}
	}

	c.JSON(http.StatusOK, m.serialize(page))
}

type createPageRequest struct {
	Type string `json:"type" binding:"required"`
}

func (m *Module) createPage(c *gin.Context) {
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	userID := c.GetInt("user_id")
	page, err := m.core.CreatePage(req.Type, &userID)
	if err != nil {
		if errors.Is(err, core.ErrUnknownPageType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown page type"})
			return
		}
		m.log.Error().Err(err).Str("type", req.Type).Msg("creating page failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create the page"})
		return
	}

	c.JSON(http.StatusCreated, m.serialize(page))
}

func commentPayload(comment *models.Comment) map[string]any {
	return map[string]any{
		"id":         comment.ID,
		"page_id":    comment.PageID,
		"author_id":  comment.AuthorID,
		"parent_id":  comment.ParentID,
		"body":       comment.Body,
		"created_at": comment.CreatedAt,
	}
}

func (m *Module) listComments(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}

	if _, err := m.core.GetPage(uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}

	comments, err := m.core.CommentsFor(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list comments"})
		return
	}

	payload := make([]map[string]any, 0, len(comments))
	for i := range comments {
		payload = append(payload, commentPayload(&comments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"comments": payload})
}

type commentRequest struct {
	Body string `json:"body"`
}

func (m *Module) createComment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}

	page, err := m.core.GetPage(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	userID := c.GetInt("user_id")
	comment, err := m.core.AddComment(page, &userID, req.Body)
	if err != nil {
		m.writeCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, commentPayload(comment))
}

func (m *Module) listReplies(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}

	if _, err := m.core.GetComment(uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}

	replies, err := m.core.RepliesFor(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list replies"})
		return
	}

	payload := make([]map[string]any, 0, len(replies))
	for i := range replies {
		payload = append(payload, commentPayload(&replies[i]))
	}
	c.JSON(http.StatusOK, gin.H{"replies": payload})
}

func (m *Module) createReply(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	userID := c.GetInt("user_id")
	reply, err := m.core.AddReply(uint(id), &userID, req.Body)
	if err != nil {
		m.writeCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, commentPayload(reply))
}

func (m *Module) writeCommentError(c *gin.Context, err error) {
	var fieldErrs core.FieldErrors
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
	case errors.Is(err, core.ErrCommentsDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "comments are disabled on this page"})
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrs})
	default:
		m.log.Error().Err(err).Msg("comment operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save the comment"})
	}
}

func tagPayload(tag *models.Tag) map[string]any {
	return map[string]any{
		"id":   tag.ID,
		"name": tag.Name,
		"slug": tag.Slug,
	}
}

func (m *Module) listTags(c *gin.Context) {
	var tags []models.Tag
	if err := m.db.Order("name ASC").Find(&tags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list tags"})
		return
	}

	payload := make([]map[string]any, 0, len(tags))
	for i := range tags {
		payload = append(payload, tagPayload(&tags[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tags": payload})
}

type tagRequest struct {
	Name string `json:"name"`
}

func (m *Module) createTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": core.FieldErrors{"name": "this field is required"}})
		return
	}

	tag := models.Tag{Name: name, Slug: core.Slugify(name)}
	if err := m.db.Where("name = ?", name).FirstOrCreate(&tag).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create the tag"})
		return
	}

	c.JSON(http.StatusCreated, tagPayload(&tag))
}

func (m *Module) getTag(c *gin.Context) {
	var tag models.Tag
	if err := m.db.Where("slug = ?", c.Param("slug")).First(&tag).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}
	c.JSON(http.StatusOK, tagPayload(&tag))
}

func (m *Module) updateTag(c *gin.Context) {
	var tag models.Tag
	if err := m.db.Where("slug = ?", c.Param("slug")).First(&tag).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": core.FieldErrors{"name": "this field is required"}})
		return
	}

	tag.Name = name
	tag.Slug = core.Slugify(name)
	if err := m.db.Save(&tag).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update the tag"})
		return
	}

	c.JSON(http.StatusOK, tagPayload(&tag))
}

func (m *Module) deleteTag(c *gin.Context) {
	var tag models.Tag
	if err := m.db.Where("slug = ?", c.Param("slug")).First(&tag).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", tag.ID).Delete(&models.PageTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete the tag"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
