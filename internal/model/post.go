package model

import "time"

// Post is an embedded video entry. OwnerID is always the id of the user who
// created it and is serialized as user_id.
type Post struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Title       string    `gorm:"size:256;not null" json:"title" bson:"title"`
	EmbedURL    string    `gorm:"column:embed_url;type:text;not null" json:"embed_url" bson:"embed_url"`
	Description *string   `gorm:"type:text" json:"description" bson:"description,omitempty"`
	OwnerID     string    `gorm:"column:user_id;size:36;not null;index" json:"user_id" bson:"user_id"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at" bson:"created_at"`
}
