package account

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"astor/analytics"
	"astor/common"
	"astor/core"
	"astor/email"
	"astor/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Page{}, &models.ContentPage{}, &models.IndexPage{},
		&models.UploadPage{}, &models.Tag{}, &models.PageTag{}, &models.Comment{},
		&models.PageVisit{}, &models.Activity{})
	return db
}

func stubTemplates(router *gin.Engine) {
	tmpl := template.New("stub")
	names := []string{
		"account_login.html", "account_register.html", "account_register_success.html",
		"account_confirm_email.html", "account_dashboard.html", "account_analyses.html",
		"account_page_new.html", "account_page_edit.html", "account_error.html",
	}
	for _, name := range names {
		template.Must(tmpl.New(name).Parse("{{.error}}"))
	}
	router.SetHTMLTemplate(tmpl)
}

func setupAccountTest() (*gorm.DB, *core.Service, *gin.Engine) {
	db := setupTestDB()

	reg := core.NewRegistry()
	core.RegisterDefaultTypes(reg)
	RegisterForms(reg)
	coreService := core.NewService(db, reg, zerolog.Nop())
	analyticsModule := analytics.NewModule(db, zerolog.Nop())
	cfg := &common.Config{Domain: "http://astor.test", UploadDir: "/tmp"}
	emailService := email.NewEmailService(cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))
	stubTemplates(router)

	router.GET("/testlogin/:id", func(c *gin.Context) {
		session := sessions.Default(c)
		id, _ := strconv.Atoi(c.Param("id"))
		session.Set("user_id", id)
		session.Save()
		c.Status(http.StatusOK)
	})

	NewModule(db, coreService, analyticsModule, emailService, cfg, zerolog.Nop()).RegisterRoutes(router)
	return db, coreService, router
}

func createTestUser(db *gorm.DB, username string) *models.User {
	hash, _ := hashPassword("secret123")
	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  hash,
		EmailVerified: true,
	}
	db.Create(user)
	return user
}

func loginCookie(t *testing.T, router *gin.Engine, userID int) string {
	t.Helper()

	req, _ := http.NewRequest("GET", "/testlogin/"+strconv.Itoa(userID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return strings.Join(w.Header().Values("Set-Cookie"), "; ")
}

func postForm(router *gin.Engine, path, cookieHeader string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_Unauthorized(t *testing.T) {
	_, _, router := setupAccountTest()

	req, _ := http.NewRequest("GET", "/account/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login")
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _, router := setupAccountTest()
	createTestUser(db, "ana")

	w := postForm(router, "/login", "", url.Values{
		"email":    {"ana@example.com"},
		"password": {"wrong"},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	db, _, router := setupAccountTest()
	user := createTestUser(db, "ana")
	db.Model(user).Update("email_verified", false)

	w := postForm(router, "/login", "", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret123"},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_Success(t *testing.T) {
	db, _, router := setupAccountTest()
	createTestUser(db, "ana")

	w := postForm(router, "/login", "", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret123"},
	})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/account/", w.Header().Get("Location"))
}

func TestRegister_InvalidUsername(t *testing.T) {
	_, _, router := setupAccountTest()

	w := postForm(router, "/register", "", url.Values{
		"email":    {"new@example.com"},
		"password": {"secret123"},
		"username": {"No Spaces Allowed"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _, router := setupAccountTest()
	createTestUser(db, "ana")

	w := postForm(router, "/register", "", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret123"},
		"username": {"other"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmEmail(t *testing.T) {
	db, _, router := setupAccountTest()

	user := &models.User{
		Username:               "ana",
		Email:                  "ana@example.com",
		PasswordHash:           "x",
		EmailVerificationToken: "the-token",
	}
	require.NoError(t, db.Create(user).Error)

	req, _ := http.NewRequest("GET", "/confirm/the-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.EmailVerified)
	assert.Empty(t, stored.EmailVerificationToken)
}

func TestCreatePage_RedirectsToEditor(t *testing.T) {
	db, _, router := setupAccountTest()
	user := createTestUser(db, "ana")
	cookieHeader := loginCookie(t, router, user.ID)

	req, _ := http.NewRequest("GET", "/account/pages/create?type=content", nil)
	req.Header.Set("Cookie", cookieHeader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/edit")

	var page models.Page
	require.NoError(t, db.First(&page).Error)
	assert.Equal(t, models.TypeContent, page.Type)
	assert.Equal(t, user.ID, *page.OwnerID)

	var activity models.Activity
	require.NoError(t, db.First(&activity).Error)
	assert.Equal(t, models.ActivityNewPage, activity.Number)
}

func TestCreatePage_UnknownType(t *testing.T) {
	db, _, router := setupAccountTest()
	user := createTestUser(db, "ana")
	cookieHeader := loginCookie(t, router, user.ID)

	req, _ := http.NewRequest("GET", "/account/pages/create?type=mystery", nil)
	req.Header.Set("Cookie", cookieHeader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditPage_OtherUsersPageHidden(t *testing.T) {
	db, coreService, router := setupAccountTest()
	owner := createTestUser(db, "ana")
	intruder := createTestUser(db, "bruno")

	page, err := coreService.CreatePage(models.TypeContent, &owner.ID)
	require.NoError(t, err)

	cookieHeader := loginCookie(t, router, intruder.ID)
	req, _ := http.NewRequest("GET", "/account/pages/"+strconv.Itoa(int(page.Base().ID))+"/edit", nil)
	req.Header.Set("Cookie", cookieHeader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePage_SaveDraft(t *testing.T) {
	db, coreService, router := setupAccountTest()
	user := createTestUser(db, "ana")

	page, err := coreService.CreatePage(models.TypeContent, &user.ID)
	require.NoError(t, err)
	pageID := page.Base().ID

	cookieHeader := loginCookie(t, router, user.ID)
	w := postForm(router, "/account/pages/"+strconv.Itoa(int(pageID))+"/edit", cookieHeader, url.Values{
		"action": {"save_draft"},
		"title":  {"Flies are super!"},
		"body":   {"All about flies."},
		"tags":   {"Insects, insects, flies"},
	})

	assert.Equal(t, http.StatusFound, w.Code)

	var content models.ContentPage
	require.NoError(t, db.First(&content, pageID).Error)
	assert.Equal(t, "Flies are super!", content.Title)

	var base models.Page
	require.NoError(t, db.First(&base, pageID).Error)
	assert.True(t, base.HasUnpublishedChanges)
	assert.Nil(t, base.PublishedPageID)

	tags, err := coreService.TagsFor(&base)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestUpdatePage_MissingTitle(t *testing.T) {
	db, coreService, router := setupAccountTest()
	user := createTestUser(db, "ana")

	page, err := coreService.CreatePage(models.TypeContent, &user.ID)
	require.NoError(t, err)

	cookieHeader := loginCookie(t, router, user.ID)
	w := postForm(router, "/account/pages/"+strconv.Itoa(int(page.Base().ID))+"/edit", cookieHeader, url.Values{
		"action": {"save_draft"},
		"body":   {"body without title"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePage_Publish(t *testing.T) {
	db, coreService, router := setupAccountTest()
	user := createTestUser(db, "ana")

	page, err := coreService.CreatePage(models.TypeContent, &user.ID)
	require.NoError(t, err)
	pageID := page.Base().ID

	cookieHeader := loginCookie(t, router, user.ID)
	w := postForm(router, "/account/pages/"+strconv.Itoa(int(pageID))+"/edit", cookieHeader, url.Values{
		"action": {"publish"},
		"title":  {"Flies are super!"},
		"body":   {"All about flies."},
	})

	assert.Equal(t, http.StatusFound, w.Code)

	var base models.Page
	require.NoError(t, db.First(&base, pageID).Error)
	require.NotNil(t, base.PublishedPageID)
	assert.False(t, base.HasUnpublishedChanges)

	var snapshot models.Page
	require.NoError(t, db.First(&snapshot, *base.PublishedPageID).Error)
	assert.True(t, snapshot.Live)
	assert.False(t, snapshot.Editable)

	var activity models.Activity
	require.NoError(t, db.Where("number = ?", models.ActivityPublishPage).First(&activity).Error)
	assert.Equal(t, user.ID, activity.UserID)
}

func TestUnpublishPage(t *testing.T) {
	db, coreService, router := setupAccountTest()
	user := createTestUser(db, "ana")

	page, err := coreService.CreatePage(models.TypeContent, &user.ID)
	require.NoError(t, err)
	draft := page.(*models.ContentPage)
	draft.Title = "Title"
	draft.Body = "body"
	require.NoError(t, coreService.SaveDraft(draft))
	_, err = coreService.Publish(draft)
	require.NoError(t, err)

	cookieHeader := loginCookie(t, router, user.ID)
	w := postForm(router, "/account/pages/"+strconv.Itoa(int(draft.Page.ID))+"/unpublish", cookieHeader, url.Values{})

	assert.Equal(t, http.StatusFound, w.Code)

	var base models.Page
	require.NoError(t, db.First(&base, draft.Page.ID).Error)
	assert.Nil(t, base.PublishedPageID)

	var pageCount int64
	db.Model(&models.Page{}).Count(&pageCount)
	assert.Equal(t, int64(1), pageCount)
}

func TestDeletePage(t *testing.T) {
	db, coreService, router := setupAccountTest()
	user := createTestUser(db, "ana")

	page, err := coreService.CreatePage(models.TypeContent, &user.ID)
	require.NoError(t, err)

	cookieHeader := loginCookie(t, router, user.ID)
	req, _ := http.NewRequest("DELETE", "/account/pages/"+strconv.Itoa(int(page.Base().ID)), nil)
	req.Header.Set("Cookie", cookieHeader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var pageCount int64
	db.Model(&models.Page{}).Count(&pageCount)
	assert.Equal(t, int64(0), pageCount)
}
