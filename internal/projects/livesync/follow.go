package livesync

import (
	"context"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
)

// Follow binds the Synchronizer to owners: every identity change closes the
// current subscription and, when someone is signed in, opens one for them.
// It blocks until ctx ends or the source stops, and leaves the Synchronizer idle.
func (s *Synchronizer) Follow(ctx context.Context, owners auth.OwnerSource) error {
	changes := owners.Watch(ctx)
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ownerID, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
			if ownerID == "" {
				s.Close()
				continue
			}
			if current := s.OwnerID(); current != "" && current != ownerID {
				s.Close()
			}
			if err := s.Open(ctx, ownerID); err != nil {
				// The failure is visible through View/Err; wait for the next identity change.
				s.log.Warn("open for new owner failed", "owner_id", ownerID, "error", err)
			}
		}
	}
}
