package database

import "time"

// User is an account that can log in and own private storage.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session represents an authenticated user session.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Directory is a registered filesystem root exposed under a short name.
type Directory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// SharedDirectory is a directory together with one user's access level on it.
type SharedDirectory struct {
	Directory
	Level int `json:"level"`
}

// Link is a stored share link row. RealPath is the location Path resolved to
// when the link was created.
type Link struct {
	Token     string
	UserID    int64
	UserName  string
	Path      string
	RealPath  string
	CreatedAt time.Time
}
