package models

// Keyword is the global keyword vocabulary.
type Keyword struct {
	Keyword string `gorm:"type:text;primaryKey" json:"keyword"`
}

// UserKeyword maps one user to one subscribed keyword.
type UserKeyword struct {
	UserKey string `gorm:"type:text;primaryKey" json:"user_key"`
	Keyword string `gorm:"type:text;primaryKey" json:"keyword"`
}

func (UserKeyword) TableName() string { return "notification_keywords" }
