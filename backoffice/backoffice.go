package backoffice

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"astor/cache"
	"astor/common"
	"astor/models"
)

// Module is the operator surface. Access is limited to accounts whose
// email appears in the BACKOFFICE_EMAILS allowlist.
type Module struct {
	db  *gorm.DB
	cfg *common.Config
	log zerolog.Logger
}

func NewModule(db *gorm.DB, cfg *common.Config, log zerolog.Logger) *Module {
	return &Module{db: db, cfg: cfg, log: log}
}

func (b *Module) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/$")
	{
		group.GET("/login", b.loginPage)
		group.POST("/login", b.loginPost)
		group.GET("/index", b.requireBackofficeAuth, b.index)
		group.POST("/validate-user/:userID", b.requireBackofficeAuth, b.validateUser)
		group.POST("/toggle-comments/:pageID", b.requireBackofficeAuth, b.toggleComments)
		group.POST("/clear-cache/:userID", b.requireBackofficeAuth, b.clearUserCache)
		group.DELETE("/users/:userID", b.requireBackofficeAuth, b.deleteUser)
		group.GET("/logout", b.logout)
	}
}

func (b *Module) requireBackofficeAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("backoffice_user_id")

	if userID == nil {
		c.Redirect(http.StatusFound, "/$/login")
		c.Abort()
		return
	}

	var user models.User
	if err := b.db.First(&user, userID).Error; err != nil {
		c.Redirect(http.StatusFound, "/$/login")
		c.Abort()
		return
	}

	if !b.isBackofficeEmail(user.Email) {
		session.Clear()
		session.Save()
		c.HTML(http.StatusForbidden, "backoffice_error.html", gin.H{
			"error": "Access denied",
		})
		c.Abort()
		return
	}

	c.Set("backoffice_user", user)
	c.Next()
}

func (b *Module) isBackofficeEmail(email string) bool {
	if b.cfg.BackofficeEmails == "" {
		return false
	}

	emails := strings.Split(b.cfg.BackofficeEmails, ",")
	for _, e := range emails {
		if strings.TrimSpace(e) == email {
			return true
		}
	}
	return false
}

func (b *Module) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "backoffice_login.html", gin.H{})
}

func (b *Module) loginPost(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	var user models.User
	if err := b.db.Where("email = ?", email).First(&user).Error; err != nil {
		c.HTML(http.StatusUnauthorized, "backoffice_login.html", gin.H{
			"error": "Incorrect email or password",
			"email": email,
		})
		return
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		c.HTML(http.StatusUnauthorized, "backoffice_login.html", gin.H{
			"error": "Incorrect email or password",
			"email": email,
		})
		return
	}

	if !b.isBackofficeEmail(user.Email) {
		c.HTML(http.StatusForbidden, "backoffice_login.html", gin.H{
			"error": "You do not have access to the backoffice",
			"email": email,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("backoffice_user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/$/index")
}

func (b *Module) index(c *gin.Context) {
	var users []models.User
	if err := b.db.Order("username ASC").Find(&users).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "backoffice_error.html", gin.H{
			"error": "Could not load users",
		})
		return
	}

	type UserWithStats struct {
		User       models.User
		DraftPages int64
		LivePages  int64
	}

	usersWithStats := make([]UserWithStats, len(users))
	for i, user := range users {
		var drafts, live int64
		b.db.Model(&models.Page{}).Where("owner_id = ? AND editable = ?", user.ID, true).Count(&drafts)
		b.db.Model(&models.Page{}).Where("owner_id = ? AND live = ?", user.ID, true).Count(&live)

		usersWithStats[i] = UserWithStats{
			User:       user,
			DraftPages: drafts,
			LivePages:  live,
		}
	}

	c.HTML(http.StatusOK, "backoffice_index.html", gin.H{
		"users": usersWithStats,
	})
}

func (b *Module) validateUser(c *gin.Context) {
	userID := c.Param("userID")

	var user models.User
	if err := b.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.EmailVerified = true
	user.EmailVerificationToken = ""

	if err := b.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not validate the user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"emailVerified": user.EmailVerified,
	})
}

// toggleComments flips comment availability on a page. Applied to a draft
// it takes effect on the next publish; applied to a snapshot it is
// immediate.
func (b *Module) toggleComments(c *gin.Context) {
	pageID := c.Param("pageID")

	var page models.Page
	if err := b.db.First(&page, pageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	enabled := !page.CommentsEnabled
	if err := b.db.Model(&page).Update("comments_enabled", enabled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update the page"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"commentsEnabled": enabled,
	})
}

func (b *Module) clearUserCache(c *gin.Context) {
	userID := c.Param("userID")

	var user models.User
	if err := b.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := cache.ClearUserCache(user.Username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not clear the cache: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cache cleared",
	})
}

// deleteUser removes the account but keeps its published content. Pages
// are detached from the owner and comments are anonymized rather than
// deleted, so other users' threads stay intact.
func (b *Module) deleteUser(c *gin.Context) {
	userID := c.Param("userID")

	var user models.User
	if err := b.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	operator := c.MustGet("backoffice_user").(models.User)
	if operator.ID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Page{}).Where("owner_id = ?", user.ID).
			Update("owner_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("author_id = ?", user.ID).
			Update("author_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		b.log.Error().Err(err).Int("user_id", user.ID).Msg("deleting user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete the user"})
		return
	}

	cache.ClearUserCache(user.Username)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
