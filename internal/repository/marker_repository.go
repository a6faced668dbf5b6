package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hazard-map/internal/model"
)

// MarkerRepository stores markers and their deletion votes.
type MarkerRepository struct {
	db *gorm.DB
}

func NewMarkerRepository(db *gorm.DB) *MarkerRepository {
	return &MarkerRepository{db: db}
}

// FindNear returns the first marker whose bounding box (lat±radius,
// lon±radius) contains the query point, or nil when there is none. Radius
// is in degrees, so the real distance it covers shrinks with latitude; the
// dataset is small enough for a linear scan.
func (r *MarkerRepository) FindNear(ctx context.Context, lat, lon, radius float64) (*model.Marker, error) {
	var marker model.Marker
	err := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", lat-radius, lat+radius).
		Where("longitude BETWEEN ? AND ?", lon-radius, lon+radius).
		First(&marker).Error
	switch {
	case err == nil:
		return &marker, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("find near marker: %w", err)
	}
}

func (r *MarkerRepository) Create(ctx context.Context, authorID int64, lat, lon float64, comment string) (*model.Marker, error) {
	marker := model.Marker{
		AuthorID:  authorID,
		Latitude:  lat,
		Longitude: lon,
		Comment:   comment,
	}
	if err := r.db.WithContext(ctx).Create(&marker).Error; err != nil {
		return nil, fmt.Errorf("create marker: %w", err)
	}
	return &marker, nil
}

func (r *MarkerRepository) FindByID(ctx context.Context, id uint) (*model.Marker, error) {
	var marker model.Marker
	if err := r.db.WithContext(ctx).First(&marker, id).Error; err != nil {
		return nil, err
	}
	return &marker, nil
}

// AddVote records a deletion vote and returns the resulting vote count for
// the marker. Insert and count run in one transaction, so the returned
// count is the post-insert value. A repeated vote by the same user is a
// no-op and returns the unchanged count.
func (r *MarkerRepository) AddVote(ctx context.Context, markerID uint, voterID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := model.DeleteVote{MarkerID: markerID, VoterID: voterID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&vote).Error; err != nil {
			return fmt.Errorf("add vote: %w", err)
		}
		if err := tx.Model(&model.DeleteVote{}).Where("marker_id = ?", markerID).Count(&count).Error; err != nil {
			return fmt.Errorf("count votes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes the marker together with its votes.
func (r *MarkerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("marker_id = ?", id).Delete(&model.DeleteVote{}).Error; err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if err := tx.Delete(&model.Marker{}, id).Error; err != nil {
			return fmt.Errorf("delete marker: %w", err)
		}
		return nil
	})
}

// ListAll returns every marker, oldest first, for map rendering.
func (r *MarkerRepository) ListAll(ctx context.Context) ([]model.Marker, error) {
	var markers []model.Marker
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&markers).Error; err != nil {
		return nil, err
	}
	return markers, nil
}

// DeleteOlderThan prunes markers created before the cutoff and reports how
// many were removed.
func (r *MarkerRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []model.Marker
		if err := tx.Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(stale))
		for _, m := range stale {
			ids = append(ids, m.ID)
		}
		if err := tx.Where("marker_id IN ?", ids).Delete(&model.DeleteVote{}).Error; err != nil {
			return fmt.Errorf("delete stale votes: %w", err)
		}
		res := tx.Delete(&model.Marker{}, ids)
		if res.Error != nil {
			return fmt.Errorf("delete stale markers: %w", res.Error)
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
