package models

import "time"

type User struct {
	ID                     int    `gorm:"primary_key;autoIncrement" json:"id"`
	Username               string `gorm:"unique;not null;index" json:"username"`
	PasswordHash           string `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Email                  string `gorm:"unique;not null" json:"email"`
	EmailVerified          bool   `gorm:"default:false" json:"email_verified"`
	EmailVerificationToken string `json:"-"` // token for email verification
}

type Tag struct {
	ID   uint   `gorm:"primary_key" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"` // stored lowercase
	Slug string `gorm:"size:100;index" json:"slug"`
}

type PageTag struct {
	ID     uint `gorm:"primary_key"`
	PageID uint `gorm:"not null;index:idx_page_tag,unique" json:"page_id"`
	TagID  uint `gorm:"not null;index:idx_page_tag,unique" json:"tag_id"`
}

type Comment struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	PageID    *uint     `gorm:"index" json:"page_id,omitempty"`
	AuthorID  *int      `gorm:"index" json:"author_id,omitempty"` // nullable: anonymized when the author is removed
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"` // null means top-level
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PageVisit records the first visit per (page, ip). Later visits from the
// same address hit the unique index and are dropped, so counts are a
// conservative lower bound.
type PageVisit struct {
	ID            uint      `gorm:"primary_key"`
	PageID        uint      `gorm:"not null;index:idx_page_ip,unique" json:"page_id"`
	UserID        *int      `gorm:"index" json:"user_id,omitempty"`
	IP            string    `gorm:"size:64;not null;index:idx_page_ip,unique" json:"ip"`
	UserAgent     string    `gorm:"type:text" json:"user_agent"`
	Browser       string    `gorm:"size:64" json:"browser"`
	OS            string    `gorm:"size:64" json:"os"`
	Device        string    `gorm:"size:32" json:"device"`
	RequestMethod string    `gorm:"size:16" json:"request_method"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// Activity numbers for the account feed.
const (
	ActivityNewPage = iota + 1
	ActivityUpdatePage
	ActivityPublishPage
	ActivityDeletePage
)

type Activity struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	Number    int       `gorm:"not null" json:"number"`
	PageID    *uint     `gorm:"index" json:"page_id,omitempty"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
