package analytics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"astor/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.Page{}, &models.PageVisit{})
	return db
}

func testContext(ip, userAgent string) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/u/someone/pages/1", nil)
	c.Request.Header.Set("X-Real-IP", ip)
	c.Request.Header.Set("User-Agent", userAgent)
	return c
}

func TestRecord_DeduplicatesByPageAndIP(t *testing.T) {
	db := setupTestDB()
	a := NewModule(db, zerolog.Nop())

	visit := models.PageVisit{PageID: 1, IP: "10.0.0.1"}
	require.NoError(t, a.Record(&visit))

	// same page, same address: silently dropped
	repeat := models.PageVisit{PageID: 1, IP: "10.0.0.1"}
	require.NoError(t, a.Record(&repeat))
	assert.Equal(t, int64(1), a.VisitCount(1))

	// a different address is a new visit
	other := models.PageVisit{PageID: 1, IP: "10.0.0.2"}
	require.NoError(t, a.Record(&other))
	assert.Equal(t, int64(2), a.VisitCount(1))

	// same address on a different page is a new visit too
	elsewhere := models.PageVisit{PageID: 2, IP: "10.0.0.1"}
	require.NoError(t, a.Record(&elsewhere))
	assert.Equal(t, int64(1), a.VisitCount(2))
}

func TestRegisterVisit_ParsesUserAgent(t *testing.T) {
	db := setupTestDB()
	a := NewModule(db, zerolog.Nop())

	c := testContext("10.0.0.1", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	a.RegisterVisit(c, 1, nil)

	var visit models.PageVisit
	require.NoError(t, db.First(&visit).Error)
	assert.Equal(t, uint(1), visit.PageID)
	assert.Equal(t, "10.0.0.1", visit.IP)
	assert.Equal(t, "Chrome", visit.Browser)
	assert.Equal(t, "desktop", visit.Device)
	assert.Equal(t, "GET", visit.RequestMethod)
}

func TestRegisterVisit_RepeatIsSilent(t *testing.T) {
	db := setupTestDB()
	a := NewModule(db, zerolog.Nop())

	a.RegisterVisit(testContext("10.0.0.1", "test-agent"), 1, nil)
	a.RegisterVisit(testContext("10.0.0.1", "test-agent"), 1, nil)

	assert.Equal(t, int64(1), a.VisitCount(1))
}

func TestClientIP_ForwardedForWins(t *testing.T) {
	c := testContext("10.0.0.9", "test-agent")
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "203.0.113.7", clientIP(c))
}
