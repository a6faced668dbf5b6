package model

import "time"

// Marker is a user-submitted hazard point shown to everyone on the map.
// Location and comment are fixed at creation; only the delete votes mutate.
type Marker struct {
	ID        uint  `gorm:"primaryKey"`
	AuthorID  int64 `gorm:"index"`
	Latitude  float64
	Longitude float64
	Comment   string
	CreatedAt time.Time
	Votes     []DeleteVote `gorm:"foreignKey:MarkerID;constraint:OnDelete:CASCADE"`
}
