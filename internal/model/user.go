package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username" bson:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email" bson:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"-" bson:"created_at"`
}
