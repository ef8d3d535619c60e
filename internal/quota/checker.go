// Package quota tracks, per user, how many distinct documents have been
// accessed within a rolling window, so the sidecar can cap repeat-heavy
// scraping without tracking every document forever.
package quota

import "context"

// Checker decides whether a user is still below their quota for a given
// document. A document already counted this window is always allowed
// again without consuming additional quota.
type Checker interface {
	Check(ctx context.Context, userID, docID string) (belowQuota bool, err error)
}
