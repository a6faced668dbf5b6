package model

import "time"

// DeleteVote records one user's request to remove a marker they do not own.
// The (marker, voter) pair is unique, so repeated requests stay no-ops.
type DeleteVote struct {
	ID        uint  `gorm:"primaryKey"`
	MarkerID  uint  `gorm:"index:idx_marker_voter,unique"`
	VoterID   int64 `gorm:"index:idx_marker_voter,unique"`
	CreatedAt time.Time
}
