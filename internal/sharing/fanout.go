package sharing

import (
	"context"
	"fmt"
	"sort"

	"sharesync/internal/metrics"
)

// FanoutResolver computes the users reached by a share, directly or through
// reshares.
type FanoutResolver struct {
	store  ShareStore
	logger Logger
}

func NewFanoutResolver(store ShareStore, logger Logger) *FanoutResolver {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &FanoutResolver{store: store, logger: logger}
}

// ResolveFanout returns the sorted set of users who receive fileID from owner,
// directly or by reshare. Only user shares name recipients: link shares keep
// a password hash in share_with and group shares name a group, so both are
// skipped. Every direct recipient is included; only recipients holding
// PermissionShare are followed to find further recipients. The owner is never
// part of the result.
//
// Cyclic share data terminates because each user is expanded at most once.
// A store failure returns a *StoreError and no partial result.
func (r *FanoutResolver) ResolveFanout(ctx context.Context, itemType ItemType, fileID int64, owner string) ([]string, error) {
	if !itemType.IsFileOrFolder() {
		return nil, fmt.Errorf("resolving fan-out for %q: %w", itemType, ErrUnsupportedItemType)
	}

	recipients := map[string]struct{}{}
	expanded := map[string]struct{}{owner: {}}
	frontier := []string{owner}

	for depth := 0; len(frontier) > 0; depth++ {
		var next []string
		for _, sharer := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			shares, err := r.store.FindDirectShares(ctx, DirectShareQuery{
				ItemType:     itemType,
				FileSource:   fileID,
				Owner:        sharer,
				ExcludeOwner: true,
			})
			if err != nil {
				return nil, &StoreError{Op: fmt.Sprintf("finding shares of %d by %s", fileID, sharer), Err: err}
			}

			for _, share := range shares {
				if share.ShareType != ShareTypeUser {
					continue
				}
				if !share.ShareWith.Valid || share.ShareWith.String == "" {
					continue
				}
				user := share.ShareWith.String
				if user == owner {
					continue
				}
				recipients[user] = struct{}{}

				if share.Permissions&PermissionShare == 0 {
					continue
				}
				if _, seen := expanded[user]; seen {
					continue
				}
				expanded[user] = struct{}{}
				next = append(next, user)
			}
		}
		r.logger.Debug("resolved fan-out level", "fileid", fileID, "depth", depth, "recipients", len(recipients), "next", len(next))
		frontier = next
	}

	users := make([]string, 0, len(recipients))
	for user := range recipients {
		users = append(users, user)
	}
	sort.Strings(users)
	metrics.FanoutRecipients.Observe(float64(len(users)))
	return users, nil
}
