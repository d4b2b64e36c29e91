package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/growthfund/matrix-engine/internal/domain"
)

// placeMember claims the first free slot in the sponsor's fixed-width tree,
// breadth-first: lowest slot index at the shallowest non-full level, spilling
// one level deeper only once the level above is full. Replaying the same join
// sequence always reproduces the same (level, slot) assignments.
func (s *Service) placeMember(ctx context.Context, sponsorID, memberID string) (domain.MatrixPosition, error) {
	unlock := s.sponsorLocks.lock(sponsorID)
	defer unlock()

	if existing, err := s.positions.GetByMemberAndSponsor(ctx, memberID, sponsorID); err == nil {
		if existing.Active {
			return domain.MatrixPosition{}, domain.ErrAlreadyPlaced
		}
		// A deactivated position is never reassigned; the member stays out of
		// the tree.
		return domain.MatrixPosition{}, domain.ErrAlreadyPlaced
	} else if err != domain.ErrNotFound {
		return domain.MatrixPosition{}, err
	}

	for level := 1; level <= s.cfg.MatrixDepthCap; level++ {
		capacity := domain.SlotsAtLevel(s.cfg.MatrixWidth, level)
		rows, err := s.positions.ListBySponsorAndLevel(ctx, sponsorID, level)
		if err != nil {
			return domain.MatrixPosition{}, err
		}
		if len(rows) >= capacity {
			continue
		}
		// Slots stay taken even when deactivated, so occupancy is the full
		// row set, not just active rows.
		taken := make(map[int]bool, len(rows))
		for _, row := range rows {
			taken[row.Slot] = true
		}
		for slot := 0; slot < capacity; slot++ {
			if taken[slot] {
				continue
			}
			pos := domain.MatrixPosition{
				PositionID: "pos_" + uuid.NewString(),
				MemberID:   memberID,
				SponsorID:  sponsorID,
				Level:      level,
				Slot:       slot,
				Active:     true,
				PlacedAt:   s.nowFn(),
			}
			if err := s.positions.Create(ctx, pos); err != nil {
				return domain.MatrixPosition{}, err
			}
			return pos, nil
		}
	}
	return domain.MatrixPosition{}, domain.ErrMatrixFull
}
