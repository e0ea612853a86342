package site

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"astor/analytics"
	"astor/common"
	"astor/core"
	"astor/models"
)

// Module is the public reading surface. Everything it serves comes from
// published snapshots; drafts are invisible here.
type Module struct {
	db        *gorm.DB
	core      *core.Service
	analytics *analytics.Module
	cfg       *common.Config
	log       zerolog.Logger
}

func NewModule(db *gorm.DB, coreService *core.Service, analyticsModule *analytics.Module,
	cfg *common.Config, log zerolog.Logger) *Module {
	return &Module{
		db:        db,
		core:      coreService,
		analytics: analyticsModule,
		cfg:       cfg,
		log:       log,
	}
}

func (s *Module) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.home)
	router.GET("/u/:username", s.profile)
	router.GET("/u/:username/pages/:id", s.entry)
	router.POST("/u/:username/pages/:id/comments", s.postComment)
	router.POST("/comments/:id/replies", s.postReply)
	router.GET("/tags/:slug", s.pagesByTag)
	router.GET("/sitemap.xml", s.sitemap)
}

// entryListing is one live page prepared for a listing template.
type entryListing struct {
	Page     models.Page
	Title    string
	Abstract string
	Username string
}

func (s *Module) home(c *gin.Context) {
	pages, err := s.core.LivePages()
	if err != nil {
		c.HTML(http.StatusInternalServerError, "site_error.html", gin.H{"error": "Could not load entries"})
		return
	}

	c.HTML(http.StatusOK, "site_home.html", gin.H{
		"domain":  s.cfg.Domain,
		"entries": s.listings(pages),
	})
}

func (s *Module) profile(c *gin.Context) {
	user, ok := s.userByName(c.Param("username"))
	if !ok {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{"error": "Author not found"})
		return
	}

	pages, err := s.core.LivePagesForOwner(user.ID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "site_error.html", gin.H{"error": "Could not load entries"})
		return
	}

	c.HTML(http.StatusOK, "site_profile.html", gin.H{
		"author":  user,
		"entries": s.listings(pages),
	})
}

func (s *Module) pagesByTag(c *gin.Context) {
	slug := c.Param("slug")

	var tag models.Tag
	if err := s.db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{"error": "Tag not found"})
		return
	}

	var pages []models.Page
	err := s.db.Table("pages").
		Joins("INNER JOIN page_tags ON page_tags.page_id = pages.id").
		Where("page_tags.tag_id = ? AND pages.live = ?", tag.ID, true).
		Order("pages.first_published_at DESC").
		Find(&pages).Error
	if err != nil {
		c.HTML(http.StatusInternalServerError, "site_error.html", gin.H{"error": "Could not load entries"})
		return
	}

	c.HTML(http.StatusOK, "site_tag.html", gin.H{
		"tag":     tag,
		"entries": s.listings(pages),
	})
}

// listings resolves the specific type of each page for its title and
// abstract. Pages that fail to resolve are skipped rather than breaking
// the whole listing.
func (s *Module) listings(pages []models.Page) []entryListing {
	var entries []entryListing
	for i := range pages {
		page := pages[i]
		typed, err := s.core.Specific(&page)
		if err != nil {
			s.log.Warn().Err(err).Uint("page_id", page.ID).Msg("skipping unresolvable page in listing")
			continue
		}

		username := ""
		if page.OwnerID != nil {
			var owner models.User
			if err := s.db.First(&owner, *page.OwnerID).Error; err == nil {
				username = owner.Username
			}
		}

		entries = append(entries, entryListing{
			Page:     page,
			Title:    typed.PageTitle(),
			Abstract: abstractOf(typed),
			Username: username,
		})
	}
	return entries
}

func abstractOf(page models.TypedPage) string {
	switch p := page.(type) {
	case *models.ContentPage:
		return p.Abstract
	case *models.IndexPage:
		return p.Abstract
	case *models.UploadPage:
		return p.Abstract
	}
	return ""
}

func (s *Module) userByName(username string) (*models.User, bool) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
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

func (s *Module) sitemap(c *gin.Context) {
	domain := strings.TrimSuffix(s.cfg.Domain, "/")

	var sm strings.Builder
	sm.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sm.WriteString("\n")
	sm.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sm.WriteString("\n")

	sm.WriteString("  <url>\n")
	sm.WriteString("    <loc>" + domain + "/</loc>\n")
	sm.WriteString("    <changefreq>daily</changefreq>\n")
	sm.WriteString("    <priority>1.0</priority>\n")
	sm.WriteString("  </url>\n")

	var users []models.User
	s.db.Find(&users)

	for _, user := range users {
		pages, err := s.core.LivePagesForOwner(user.ID)
		if err != nil || len(pages) == 0 {
			continue
		}

		sm.WriteString("  <url>\n")
		sm.WriteString("    <loc>" + domain + "/u/" + user.Username + "</loc>\n")
		sm.WriteString("    <changefreq>weekly</changefreq>\n")
		sm.WriteString("    <priority>0.7</priority>\n")
		sm.WriteString("  </url>\n")

		for _, page := range pages {
			sm.WriteString("  <url>\n")
			sm.WriteString("    <loc>" + domain + "/u/" + user.Username + "/pages/" + strconv.FormatUint(uint64(page.ID), 10) + "</loc>\n")
			if page.FirstPublishedAt != nil {
				sm.WriteString("    <lastmod>" + page.FirstPublishedAt.Format(time.RFC3339) + "</lastmod>\n")
			}
			sm.WriteString("    <changefreq>monthly</changefreq>\n")
			sm.WriteString("    <priority>0.6</priority>\n")
			sm.WriteString("  </url>\n")
		}
	}

	sm.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sm.String())
}
