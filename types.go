package main

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"createdAt"`
}

type Image struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	FileName   string    `json:"fileName"`
	StorageKey string    `json:"storageKey"`
	URL        string    `json:"url"` // derived from StorageKey, never persisted
	CreatedAt  time.Time `json:"createdAt"`
}
