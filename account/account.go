package account

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"astor/analytics"
	"astor/common"
	"astor/core"
	emailpkg "astor/email"
	"astor/models"
)

// Module is the authenticated editing surface: auth plus page lifecycle
// handlers operating through the core service.
type Module struct {
	db        *gorm.DB
	core      *core.Service
	analytics *analytics.Module
	emails    *emailpkg.EmailService
	cfg       *common.Config
	log       zerolog.Logger
}

func NewModule(db *gorm.DB, coreService *core.Service, analyticsModule *analytics.Module,
	emails *emailpkg.EmailService, cfg *common.Config, log zerolog.Logger) *Module {
	return &Module{
		db:        db,
		core:      coreService,
		analytics: analyticsModule,
		emails:    emails,
		cfg:       cfg,
		log:       log,
	}
}

func (a *Module) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", a.loginPage)
	router.POST("/login", a.loginPost)
	router.GET("/register", a.registerPage)
	router.POST("/register", a.registerPost)
	router.GET("/confirm/:token", a.confirmEmail)
	router.GET("/logout", a.logout)

	group := router.Group("/account")
	group.Use(a.requireAuth)
	{
		group.GET("/", a.dashboard)
		group.GET("/analyses", a.listAnalyses)
		group.GET("/pages/new", a.newPage)
		group.GET("/pages/create", a.createPage)

		pageGroup := group.Group("/pages/:id")
		pageGroup.Use(a.loadPage)
		{
			pageGroup.GET("/edit", a.editPage)
			pageGroup.POST("/edit", a.updatePage)
			pageGroup.POST("/unpublish", a.unpublishPage)
			pageGroup.DELETE("", a.deletePage)
		}
	}
}

func (a *Module) requireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")

	if userID == nil {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	c.Set("user_id", userID)
	c.Next()
}

func (a *Module) loginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/account/")
		return
	}

	c.HTML(http.StatusOK, "account_login.html", gin.H{})
}

func (a *Module) loginPost(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		c.HTML(http.StatusUnauthorized, "account_login.html", gin.H{
			"error": "Incorrect email or password",
			"email": email,
		})
		return
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		c.HTML(http.StatusUnauthorized, "account_login.html", gin.H{
			"error": "Incorrect email or password",
			"email": email,
		})
		return
	}

	if !user.EmailVerified {
		c.HTML(http.StatusUnauthorized, "account_login.html", gin.H{
			"error": "Email not verified. Please check your inbox and confirm your email.",
			"email": email,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/account/")
}

var usernameRe = regexp.MustCompile(`^[a-z0-9-]{3,30}$`)

func (a *Module) registerPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/account/")
		return
	}

	c.HTML(http.StatusOK, "account_register.html", gin.H{})
}

func (a *Module) registerPost(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	username := strings.ToLower(strings.TrimSpace(c.PostForm("username")))

	formData := gin.H{
		"email":    email,
		"username": username,
	}

	if !usernameRe.MatchString(username) {
		formData["error"] = "Username must be 3-30 characters: lowercase letters, digits and hyphens"
		c.HTML(http.StatusBadRequest, "account_register.html", formData)
		return
	}

	var existingUser models.User
	if err := a.db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		formData["error"] = "This email is already registered"
		c.HTML(http.StatusBadRequest, "account_register.html", formData)
		return
	}
	if err := a.db.Where("username = ?", username).First(&existingUser).Error; err == nil {
		formData["error"] = "This username is already taken"
		c.HTML(http.StatusBadRequest, "account_register.html", formData)
		return
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		formData["error"] = "Could not create the account"
		c.HTML(http.StatusInternalServerError, "account_register.html", formData)
		return
	}

	verificationToken, err := generateToken()
	if err != nil {
		formData["error"] = "Could not create the account"
		c.HTML(http.StatusInternalServerError, "account_register.html", formData)
		return
	}

	user := models.User{
		Username:               username,
		Email:                  email,
		PasswordHash:           passwordHash,
		EmailVerified:          false,
		EmailVerificationToken: verificationToken,
	}

	if err := a.db.Create(&user).Error; err != nil {
		formData["error"] = "Could not create the account"
		c.HTML(http.StatusInternalServerError, "account_register.html", formData)
		return
	}

	if err := a.emails.SendVerificationEmail(user.Email, verificationToken); err != nil {
		a.log.Error().Err(err).Str("email", user.Email).Msg("sending verification email failed")
		c.HTML(http.StatusOK, "account_register_success.html", gin.H{
			"email":      user.Email,
			"emailError": "The verification email could not be sent. Please contact support.",
		})
		return
	}

	c.HTML(http.StatusOK, "account_register_success.html", gin.H{
		"email": user.Email,
	})
}

func (a *Module) confirmEmail(c *gin.Context) {
	token := c.Param("token")

	var user models.User
	if err := a.db.Where("email_verification_token = ?", token).First(&user).Error; err != nil {
		c.HTML(http.StatusNotFound, "account_confirm_email.html", gin.H{
			"success": false,
			"message": "Invalid or expired token",
		})
		return
	}

	if user.EmailVerified {
		c.HTML(http.StatusOK, "account_confirm_email.html", gin.H{
			"success": true,
			"message": "Email already confirmed",
		})
		return
	}

	user.EmailVerified = true
	user.EmailVerificationToken = ""

	if err := a.db.Save(&user).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "account_confirm_email.html", gin.H{
			"success": false,
			"message": "Could not confirm the email",
		})
		return
	}

	c.HTML(http.StatusOK, "account_confirm_email.html", gin.H{
		"success": true,
		"message": "Email confirmed. You can now log in.",
	})
}

func (a *Module) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/login")
}

func (a *Module) currentUser(c *gin.Context) (*models.User, bool) {
	userID := c.GetInt("user_id")
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
