package analytics

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"astor/models"
)

// Module records page visits and answers aggregate queries for the
// editing and backoffice surfaces.
type Module struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewModule(db *gorm.DB, log zerolog.Logger) *Module {
	return &Module{db: db, log: log}
}

// RegisterVisit records a visit to a page. The (page, ip) unique index
// gives first-visit-wins semantics: a repeat visit from the same address
// is silently dropped, including when two first-visits race.
func (a *Module) RegisterVisit(c *gin.Context, pageID uint, userID *int) {
	ua := useragent.Parse(c.Request.UserAgent())

	visit := models.PageVisit{
		PageID:        pageID,
		UserID:        userID,
		IP:            clientIP(c),
		UserAgent:     c.Request.UserAgent(),
		Browser:       ua.Name,
		OS:            ua.OS,
		Device:        deviceType(ua),
		RequestMethod: c.Request.Method,
		CreatedAt:     time.Now(),
	}

	if err := a.Record(&visit); err != nil {
		a.log.Error().Err(err).Uint("page_id", pageID).Msg("recording page visit failed")
	}
}

// Record inserts a visit row, treating a duplicate (page, ip) as already
// recorded rather than an error.
func (a *Module) Record(visit *models.PageVisit) error {
	err := a.db.Create(visit).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// someone already recorded this visit
		return nil
	}
	return err
}

// VisitCount returns the number of distinct visitor addresses for a page.
func (a *Module) VisitCount(pageID uint) int64 {
	var count int64
	a.db.Model(&models.PageVisit{}).Where("page_id = ?", pageID).Count(&count)
	return count
}

// DayVisits is the number of visits on one day.
type DayVisits struct {
	Date  string
	Count int64
}

// PageVisits is the number of visits of one page.
type PageVisits struct {
	PageID    uint
	PageTitle string
	Count     int64
}

// VisitsByDay returns visit counts per day over the owner's pages for the
// last N days, zero-filled.
func (a *Module) VisitsByDay(ownerID int, days int) []DayVisits {
	startDate := time.Now().AddDate(0, 0, -days)

	var results []struct {
		Date  string
		Count int64
	}

	a.db.Model(&models.PageVisit{}).
		Select("DATE(page_visits.created_at) as date, COUNT(*) as count").
		Joins("INNER JOIN pages ON pages.id = page_visits.page_id").
		Where("pages.owner_id = ? AND page_visits.created_at >= ?", ownerID, startDate).
		Group("DATE(page_visits.created_at)").
		Order("date ASC").
		Scan(&results)

	dayVisits := make([]DayVisits, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -(days - 1 - i))
		dayVisits[i] = DayVisits{Date: date.Format("2006-01-02"), Count: 0}
	}

	for _, result := range results {
		for i := range dayVisits {
			if dayVisits[i].Date == result.Date {
				dayVisits[i].Count = result.Count
				break
			}
		}
	}

	return dayVisits
}

// TopPages returns the owner's most visited pages over the last N days.
func (a *Module) TopPages(ownerID int, days int, limit int) []PageVisits {
	startDate := time.Now().AddDate(0, 0, -days)

	var results []PageVisits
	a.db.Model(&models.PageVisit{}).
		Select("page_visits.page_id as page_id, COUNT(*) as count").
		Joins("INNER JOIN pages ON pages.id = page_visits.page_id").
		Where("pages.owner_id = ? AND page_visits.created_at >= ?", ownerID, startDate).
		Group("page_visits.page_id").
		Order("count DESC").
		Limit(limit).
		Scan(&results)

	return results
}

// clientIP resolves the real client address, preferring proxy headers.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return ip
	}

	return c.ClientIP()
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Bot:
		return "bot"
	default:
		return "desktop"
	}
}
