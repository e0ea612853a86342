package models

import "time"

// Type tags stored on the base page record. Assigned once at creation and
// never changed afterwards.
const (
	TypeContent = "content"
	TypeIndex   = "index"
	TypeUpload  = "upload"
)

// Page is the base record shared by every concrete page type. Type-specific
// fields live in an extension table whose primary key equals Page.ID.
type Page struct {
	ID                    uint       `gorm:"primary_key" json:"id"`
	OwnerID               *int       `gorm:"index" json:"owner_id,omitempty"` // nullable: pages survive their owner
	Type                  string     `gorm:"size:32;not null;index" json:"type"`
	CreatedAt             time.Time  `json:"created_at"`
	FirstPublishedAt      *time.Time `gorm:"index" json:"first_published_at,omitempty"`
	PublishedPageID       *uint      `gorm:"uniqueIndex" json:"published_page_id,omitempty"` // at most one snapshot per draft
	Editable              bool       `json:"editable"`
	Live                  bool       `gorm:"index" json:"live"`
	HasUnpublishedChanges bool       `json:"has_unpublished_changes"`
	LatestChangesAt       *time.Time `json:"latest_changes_at,omitempty"`
	CommentsEnabled       bool       `json:"comments_enabled"`
}

// TypedPage is the closed set of concrete page shapes: a base record plus
// the extension record for its stored type tag.
type TypedPage interface {
	Base() *Page
	TypeTag() string
	PageTitle() string
}

// ContentPage is a full article: title, abstract and a rich-text body.
type ContentPage struct {
	Page     Page   `gorm:"-" json:"page"`
	PageID   uint   `gorm:"primary_key" json:"page_id"`
	Title    string `gorm:"size:255" json:"title"`
	Abstract string `gorm:"type:text" json:"abstract"`
	Body     string `gorm:"type:text" json:"body"`
	Template string `gorm:"size:255" json:"-"`
}

func NewContentPage() *ContentPage {
	return &ContentPage{Template: "entry_content.html"}
}

func (p *ContentPage) Base() *Page       { return &p.Page }
func (p *ContentPage) TypeTag() string   { return TypeContent }
func (p *ContentPage) PageTitle() string { return p.Title }

// IndexPage is a container-style page: title and abstract only.
type IndexPage struct {
	Page     Page   `gorm:"-" json:"page"`
	PageID   uint   `gorm:"primary_key" json:"page_id"`
	Title    string `gorm:"size:255" json:"title"`
	Abstract string `gorm:"type:text" json:"abstract"`
}

func NewIndexPage() *IndexPage { return &IndexPage{} }

func (p *IndexPage) Base() *Page       { return &p.Page }
func (p *IndexPage) TypeTag() string   { return TypeIndex }
func (p *IndexPage) PageTitle() string { return p.Title }

// UploadPage serves an uploaded HTML file as the page content.
type UploadPage struct {
	Page       Page   `gorm:"-" json:"page"`
	PageID     uint   `gorm:"primary_key" json:"page_id"`
	Title      string `gorm:"size:255" json:"title"`
	Abstract   string `gorm:"type:text" json:"abstract"`
	FileName   string `gorm:"size:255" json:"file_name"`   // original name as uploaded
	StoredPath string `gorm:"size:512" json:"stored_path"` // location under the upload dir
}

func NewUploadPage() *UploadPage { return &UploadPage{} }

func (p *UploadPage) Base() *Page       { return &p.Page }
func (p *UploadPage) TypeTag() string   { return TypeUpload }
func (p *UploadPage) PageTitle() string { return p.Title }
