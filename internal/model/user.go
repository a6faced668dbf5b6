package model

import "time"

// User stores per-user map preferences and role flags.
type User struct {
	ID           uint  `gorm:"primaryKey"`
	TelegramID   int64 `gorm:"uniqueIndex"`
	MapCenterLat *float64
	MapCenterLon *float64
	IsAdmin      bool `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasMapCenter reports whether the user already picked a home location.
func (u *User) HasMapCenter() bool {
	return u.MapCenterLat != nil && u.MapCenterLon != nil
}
