package matcher

import (
	"context"
	"net/http"

	"github.com/pitabwire/util"

	"github.com/impresso-project/content-authz/internal/quota"
)

// Quota is a request-level matcher: it ignores the client/resource tokens
// entirely and decides from the request's user and document identity
// instead. A user or document it can't identify, or a quota store it can't
// reach, fails open so a misconfiguration never turns into a hard outage.
func Quota(checker quota.Checker, userIDExtractor, docIDExtractor func(*http.Request) string) Matcher {
	return func(ctx context.Context, r *http.Request, _, _ any) (bool, error) {
		userID := userIDExtractor(r)
		docID := docIDExtractor(r)
		if userID == "" || docID == "" {
			return true, nil
		}

		belowQuota, err := checker.Check(ctx, userID, docID)
		if err != nil {
			util.Log(ctx).WithError(err).WithField("user_id", userID).Warn("quota check failed, failing open")
			return true, nil
		}
		return belowQuota, nil
	}
}
