package chat

import (
	"context"
	"fmt"

	"github.com/nfrund/parley/internal/domain"
	"github.com/samber/lo"
)

// PostStatus publishes an uploaded image or video as my status.
func (s *Service) PostStatus(ctx context.Context, me *domain.ID, media domain.Media) (*domain.Status, error) {
	if media.IsZero() {
		return nil, fmt.Errorf("%w: a status needs an image or video", domain.ErrInvalidInput)
	}
	return s.statuses.Create(ctx, me, media)
}

// StatusFeed returns the newest status of every user, mine first.
func (s *Service) StatusFeed(ctx context.Context, me *domain.ID) ([]domain.Status, error) {
	all, err := s.statuses.List(ctx)
	if err != nil {
		return nil, err
	}

	withUser := lo.Filter(all, func(st domain.Status, _ int) bool {
		return st.User != nil && st.User.ID != nil
	})
	latest := lo.UniqBy(withUser, func(st domain.Status) string {
		return st.User.ID.String()
	})

	mine, others := lo.FilterReject(latest, func(st domain.Status, _ int) bool {
		return st.User.ID.Equal(me)
	})
	return append(mine, others...), nil
}

// DeleteStatus removes one of my statuses and its media. Statuses owned by
// someone else are reported as not found.
func (s *Service) DeleteStatus(ctx context.Context, me, statusID *domain.ID) error {
	st, err := s.statuses.FindByID(ctx, statusID)
	if err != nil {
		return err
	}
	if st.User == nil || !st.User.ID.Equal(me) {
		return domain.ErrNotFound
	}

	if err := s.statuses.Delete(ctx, statusID); err != nil {
		return err
	}
	if err := s.media.Delete(ctx, st.Media); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete status media", "status_id", statusID.String(), "error", err)
	}
	return nil
}
