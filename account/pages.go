package account

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"astor/cache"
	"astor/core"
	"astor/models"
)

func (a *Module) dashboard(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	pages, err := a.core.PagesForOwner(user.ID, true)
	if err != nil {
		a.log.Error().Err(err).Int("user_id", user.ID).Msg("listing pages failed")
		c.HTML(http.StatusInternalServerError, "account_error.html", gin.H{"error": "Could not load your pages"})
		return
	}

	var activities []models.Activity
	a.db.Where("user_id = ?", user.ID).Order("created_at DESC").Limit(20).Find(&activities)

	c.HTML(http.StatusOK, "account_dashboard.html", gin.H{
		"user":       user,
		"pages":      pages,
		"activities": activities,
	})
}

func (a *Module) listAnalyses(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	days := 30
	if d, err := strconv.Atoi(c.Query("days")); err == nil && d > 0 && d <= 365 {
		days = d
	}

	c.HTML(http.StatusOK, "account_analyses.html", gin.H{
		"user":        user,
		"days":        days,
		"visitsByDay": a.analytics.VisitsByDay(user.ID, days),
		"topPages":    a.analytics.TopPages(user.ID, days, 10),
	})
}

// newPage shows the type chooser. One entry per registered page type.
func (a *Module) newPage(c *gin.Context) {
	c.HTML(http.StatusOK, "account_page_new.html", gin.H{
		"types": a.core.Registry().Types(),
	})
}

func (a *Module) createPage(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	tag := c.Query("type")
	page, err := a.core.CreatePage(tag, &user.ID)
	if err != nil {
		if errors.Is(err, core.ErrUnknownPageType) {
			c.HTML(http.StatusBadRequest, "account_error.html", gin.H{"error": "Unknown page type"})
			return
		}
		a.log.Error().Err(err).Str("type", tag).Msg("creating page failed")
		c.HTML(http.StatusInternalServerError, "account_error.html", gin.H{"error": "Could not create the page"})
		return
	}

	a.recordActivity(user.ID, models.ActivityNewPage, &page.Base().ID,
		fmt.Sprintf("Created a new %s page", tag))

	c.Redirect(http.StatusFound, fmt.Sprintf("/account/pages/%d/edit", page.Base().ID))
}

// loadPage resolves the :id parameter to the caller's own draft and stashes
// it in the context. Pages of other users and unknown ids both come back as
// a plain 404 so ids cannot be probed.
func (a *Module) loadPage(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.HTML(http.StatusNotFound, "account_error.html", gin.H{"error": "Page not found"})
		c.Abort()
		return
	}

	page, err := a.core.SpecificByID(uint(id))
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			a.log.Error().Err(err).Uint64("page_id", id).Msg("loading page failed")
		}
		c.HTML(http.StatusNotFound, "account_error.html", gin.H{"error": "Page not found"})
		c.Abort()
		return
	}

	base := page.Base()
	if base.OwnerID == nil || *base.OwnerID != user.ID {
		c.HTML(http.StatusNotFound, "account_error.html", gin.H{"error": "Page not found"})
		c.Abort()
		return
	}

	c.Set("page", page)
	c.Set("user", user)
	c.Next()
}

func pageFromContext(c *gin.Context) (models.TypedPage, *models.User) {
	return c.MustGet("page").(models.TypedPage), c.MustGet("user").(*models.User)
}

func (a *Module) editPage(c *gin.Context) {
	page, user := pageFromContext(c)
	base := page.Base()

	visits := int64(0)
	if base.PublishedPageID != nil {
		visits = a.analytics.VisitCount(*base.PublishedPageID)
	}

	c.HTML(http.StatusOK, "account_page_edit.html", gin.H{
		"user":   user,
		"page":   page,
		"base":   base,
		"tags":   a.core.TagString(base),
		"visits": visits,
	})
}

// updatePage handles both form actions. "save_draft" only persists the
// draft; "publish" persists it and then swaps in a fresh snapshot.
func (a *Module) updatePage(c *gin.Context) {
	page, user := pageFromContext(c)
	base := page.Base()

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.HTML(http.StatusBadRequest, "account_error.html", gin.H{"error": "Malformed form data"})
		return
	}

	form, err := a.core.Registry().FormFor(page)
	if err != nil {
		// a registered type without a form is a wiring mistake, not user error
		a.log.Error().Err(err).Str("type", page.TypeTag()).Uint("page_id", base.ID).
			Msg("no form registered for page type")
		c.HTML(http.StatusInternalServerError, "account_error.html", gin.H{"error": "This page type cannot be edited"})
		return
	}

	if err := form.Bind(c.Request.PostForm, page); err != nil {
		var fieldErrs core.FieldErrors
		if errors.As(err, &fieldErrs) {
			c.HTML(http.StatusBadRequest, "account_page_edit.html", gin.H{
				"user":        user,
				"page":        page,
				"base":        base,
				"tags":        c.PostForm("tags"),
				"fieldErrors": fieldErrs,
			})
			return
		}
		a.log.Error().Err(err).Uint("page_id", base.ID).Msg("binding form failed")
		c.HTML(http.StatusInternalServerError, "account_error.html", gin.H{"error": "Could not save the page"})
		return
	}

	if uploadPage, ok := page.(*models.UploadPage); ok {
		if err := a.storeUpload(c, uploadPage); err != nil {
			a.log.Error().Err(err).Uint("page_id", base.ID).Msg("storing upload failed")
			c.HTML(http.StatusInternalServerError, "account_error.html", gin.H{"error": "Could not store the file"})
			return
		}
	}

	if err := a.core.SaveDraft(page); err != nil {
		a.log.Error().Err(err).Uint("page_id", base.ID).Msg("saving draft failed")
		c.HTML(http.StatusInternalServerError, "account_error.html", gin.H{"error": "Could not save the page"})
		return
	}

	if err := a.core.SetTags(base, strings.Split(c.PostForm("tags"), ",")); err != nil {
		a.log.Error().Err(err).Uint("page_id", base.ID).Msg("saving tags failed")
	}

	if c.PostForm("action") == "publish" {
		oldSnapshot := base.PublishedPageID

		snapshot, err := a.core.Publish(page)
		if err != nil {
			a.log.Error().Err(err).Uint("page_id", base.ID).Msg("publishing failed")
			c.HTML(http.StatusInternalServerError, "account_page_edit.html", gin.H{
				"user":  user,
				"page":  page,
				"base":  base,
				"tags":  c.PostForm("tags"),
				"error": "The draft was saved but publishing failed",
			})
			return
		}

		if oldSnapshot != nil {
			cache.ClearCache(user.Username, *oldSnapshot)
		}
		cache.ClearCache(user.Username, snapshot.Base().ID)

		a.recordActivity(user.ID, models.ActivityPublishPage, &base.ID,
			fmt.Sprintf("Published %q", page.PageTitle()))
	} else {
		a.recordActivity(user.ID, models.ActivityUpdatePage, &base.ID,
			fmt.Sprintf("Saved a draft of %q", page.PageTitle()))
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/account/pages/%d/edit", base.ID))
}

// storeUpload saves the posted file under a random name and records both
// names on the page. Skipped when the form carries no file, so re-saving
// keeps the previous upload.
func (a *Module) storeUpload(c *gin.Context, page *models.UploadPage) error {
	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil
		}
		return err
	}

	storedName := uuid.New().String() + filepath.Ext(file.Filename)
	storedPath := filepath.Join(a.cfg.UploadDir, storedName)
	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		return err
	}

	page.FileName = filepath.Base(file.Filename)
	page.StoredPath = storedPath
	return nil
}

func (a *Module) unpublishPage(c *gin.Context) {
	page, user := pageFromContext(c)
	base := page.Base()

	snapshot := base.PublishedPageID

	if err := a.core.Unpublish(base); err != nil {
		a.log.Error().Err(err).Uint("page_id", base.ID).Msg("unpublishing failed")
		c.HTML(http.StatusInternalServerError, "account_error.html", gin.H{"error": "Could not unpublish the page"})
		return
	}

	if snapshot != nil {
		cache.ClearCache(user.Username, *snapshot)
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/account/pages/%d/edit", base.ID))
}

func (a *Module) deletePage(c *gin.Context) {
	page, user := pageFromContext(c)
	base := page.Base()

	snapshot := base.PublishedPageID
	title := page.PageTitle()

	if err := a.core.DeletePage(base); err != nil {
		a.log.Error().Err(err).Uint("page_id", base.ID).Msg("deleting page failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete the page"})
		return
	}

	if snapshot != nil {
		cache.ClearCache(user.Username, *snapshot)
	}

	a.recordActivity(user.ID, models.ActivityDeletePage, nil,
		fmt.Sprintf("Deleted %q", title))

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (a *Module) recordActivity(userID int, number int, pageID *uint, message string) {
	activity := models.Activity{
		UserID:  userID,
		Number:  number,
		PageID:  pageID,
		Message: message,
	}
	if err := a.db.Create(&activity).Error; err != nil {
		a.log.Warn().Err(err).Int("user_id", userID).Msg("recording activity failed")
	}
}
