package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"hazard-map/internal/model"
	"hazard-map/internal/repository"
)

const (
	// DedupRadius is the bounding-box half-size, in degrees, within which a
	// new submission counts as a duplicate. Roughly a hundred meters at
	// mid-latitudes; degree-to-distance ratio varies with latitude.
	DedupRadius = 0.001

	// DeleteQuorum is how many distinct non-privileged users must request
	// deletion before a marker is removed without its author.
	DeleteQuorum = 3
)

var (
	ErrMarkerExists      = errors.New("marker already exists at this location")
	ErrMarkerNotFound    = errors.New("marker not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// DeleteOutcome tells the caller how a delete request was resolved.
type DeleteOutcome int

const (
	// OutcomeDeleted means the requester had authority (owner or admin) and
	// the marker was removed immediately.
	OutcomeDeleted DeleteOutcome = iota
	// OutcomeVoteRecorded means the vote was counted but quorum is not
	// reached yet.
	OutcomeVoteRecorded
	// OutcomeDeletedByQuorum means this vote crossed the quorum and the
	// marker is gone.
	OutcomeDeletedByQuorum
)

// DeleteResult carries the outcome and, for recorded votes, the current
// vote count.
type DeleteResult struct {
	Outcome DeleteOutcome
	Votes   int64
}

// MarkerService is the marker lifecycle engine: deduplicated creation,
// authority- or quorum-based deletion, map center updates and admin
// promotion. The bootstrap admin id is static configuration, never stored.
type MarkerService struct {
	markerRepo *repository.MarkerRepository
	userRepo   *repository.UserRepository
	adminID    int64
	markerTTL  time.Duration
}

func NewMarkerService(markerRepo *repository.MarkerRepository, userRepo *repository.UserRepository, adminID int64, markerTTL time.Duration) *MarkerService {
	return &MarkerService{
		markerRepo: markerRepo,
		userRepo:   userRepo,
		adminID:    adminID,
		markerTTL:  markerTTL,
	}
}

// CreateMarker adds a marker unless another one already sits within the
// dedup radius. The near-check and the insert are separate statements, so
// two near-simultaneous submissions at the same spot can both pass; the
// window is accepted as negligible for this dataset.
func (s *MarkerService) CreateMarker(ctx context.Context, authorID int64, lat, lon float64, comment string) (*model.Marker, error) {
	existing, err := s.markerRepo.FindNear(ctx, lat, lon, DedupRadius)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMarkerExists
	}
	return s.markerRepo.Create(ctx, authorID, lat, lon, comment)
}

// DeleteMarker resolves a delete request. The marker's author, any admin
// and the bootstrap admin delete immediately, regardless of accumulated
// votes. Anyone else casts a deletion vote; the marker is removed once
// DeleteQuorum distinct users have voted. Re-votes are idempotent no-ops
// that report the unchanged count.
func (s *MarkerService) DeleteMarker(ctx context.Context, requesterID int64, markerID uint) (DeleteResult, error) {
	marker, err := s.markerRepo.FindByID(ctx, markerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DeleteResult{}, ErrMarkerNotFound
		}
		return DeleteResult{}, err
	}

	if marker.AuthorID == requesterID || requesterID == s.adminID {
		if err := s.markerRepo.Delete(ctx, marker.ID); err != nil {
			return DeleteResult{}, err
		}
		return DeleteResult{Outcome: OutcomeDeleted}, nil
	}

	admin, err := s.userRepo.IsAdmin(ctx, requesterID)
	if err != nil {
		return DeleteResult{}, err
	}
	if admin {
		if err := s.markerRepo.Delete(ctx, marker.ID); err != nil {
			return DeleteResult{}, err
		}
		return DeleteResult{Outcome: OutcomeDeleted}, nil
	}

	count, err := s.markerRepo.AddVote(ctx, marker.ID, requesterID)
	if err != nil {
		return DeleteResult{}, err
	}
	if count >= DeleteQuorum {
		if err := s.markerRepo.Delete(ctx, marker.ID); err != nil {
			return DeleteResult{}, err
		}
		return DeleteResult{Outcome: OutcomeDeletedByQuorum, Votes: count}, nil
	}
	return DeleteResult{Outcome: OutcomeVoteRecorded, Votes: count}, nil
}

// SetMapCenter stores the user's preferred map center after range checks.
func (s *MarkerService) SetMapCenter(ctx context.Context, telegramID int64, lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinate
	}
	return s.userRepo.SetMapCenter(ctx, telegramID, lat, lon)
}

// PromoteAdmin grants admin rights to target. Only the bootstrap admin may
// call it.
func (s *MarkerService) PromoteAdmin(ctx context.Context, callerID, targetID int64) error {
	if callerID != s.adminID {
		return ErrUnauthorized
	}
	return s.userRepo.PromoteToAdmin(ctx, targetID)
}

// ExpireStale removes markers older than the configured TTL. A zero TTL
// disables expiry.
func (s *MarkerService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	if s.markerTTL <= 0 {
		return 0, nil
	}
	return s.markerRepo.DeleteOlderThan(ctx, now.Add(-s.markerTTL))
}
