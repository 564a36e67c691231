package models

import "time"

// Post is an ingested blog post. The id is content-addressed: identical
// title/content/publish metadata always map to the same row.
type Post struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	PublishDate time.Time `gorm:"not null" json:"publish_date"`
	Location    string    `gorm:"type:text;not null" json:"location"`
	Department  string    `gorm:"type:text;not null" json:"department"`
	Category    string    `gorm:"type:text;not null" json:"category"`
	Link        *string   `gorm:"type:text" json:"link,omitempty"`
	IsUrgent    bool      `gorm:"not null;default:false" json:"is_urgent"`
	Likes       int       `gorm:"not null;default:0" json:"likes"`
	Comments    int       `gorm:"not null;default:0" json:"comments"`
	HasImage    bool      `gorm:"not null;default:false" json:"has_image"`
	ImageURL    *string   `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
