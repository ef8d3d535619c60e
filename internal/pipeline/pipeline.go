// Package pipeline runs the decision described in §4.1: resolve a matcher
// and two extractors by name, run the extractors concurrently, and reduce
// their tokens to an allow/deny verdict.
package pipeline

import (
	"context"
	"net/http"

	"github.com/pitabwire/util"
	"golang.org/x/sync/errgroup"

	"github.com/impresso-project/content-authz/internal/extractor"
	"github.com/impresso-project/content-authz/internal/matcher"
)

// Verdict is the outcome of a Decide call.
type Verdict struct {
	Allow        bool
	RedirectHint string
}

const quotaExhaustedRedirect = "https://http.cat/429"

// Pipeline holds the registries built once at startup.
type Pipeline struct {
	Extractors extractor.Registry
	Matchers   matcher.Registry
}

func New(extractors extractor.Registry, matchers matcher.Registry) *Pipeline {
	return &Pipeline{Extractors: extractors, Matchers: matchers}
}

// Decide resolves matcherName/clientExtractorName/resourceExtractorName
// from the request, optionally enforces the named "quota" matcher, runs
// the two extractors concurrently, and applies the matcher to their
// tokens. A missing registry entry denies. A non-nil error return means
// an upstream dependency failed (index or manifest fetch) and the caller
// should answer 5xx rather than 403.
func (p *Pipeline) Decide(ctx context.Context, r *http.Request, matcherName, clientExtractorName, resourceExtractorName string, withQuota bool) (Verdict, error) {
	m, ok := p.Matchers.Get(matcherName)
	if !ok {
		return Verdict{Allow: false}, nil
	}
	clientExtractor, ok := p.Extractors.Get(clientExtractorName)
	if !ok {
		return Verdict{Allow: false}, nil
	}
	resourceExtractor, ok := p.Extractors.Get(resourceExtractorName)
	if !ok {
		return Verdict{Allow: false}, nil
	}

	if withQuota {
		if quotaMatcher, present := p.Matchers.Get("quota"); present {
			allowed, err := quotaMatcher(ctx, r, nil, nil)
			if err != nil {
				util.Log(ctx).WithError(err).Warn("quota matcher errored, denying")
				return Verdict{Allow: false}, nil
			}
			if !allowed {
				return Verdict{Allow: false, RedirectHint: quotaExhaustedRedirect}, nil
			}
		}
	}

	clientToken, resourceToken, err := runExtractors(ctx, r, clientExtractor, resourceExtractor)
	if err != nil {
		return Verdict{}, err
	}
	if clientToken == nil || resourceToken == nil {
		return Verdict{Allow: false}, nil
	}

	allowed, err := m(ctx, r, clientToken, resourceToken)
	if err != nil {
		util.Log(ctx).WithError(err).Warn("matcher errored, denying")
		return Verdict{Allow: false}, nil
	}
	return Verdict{Allow: allowed}, nil
}

// runExtractors fans the two extractors out across an errgroup and waits
// for both, matching §5's "per request, the two extractors run in
// parallel and the handler only proceeds when both have completed". If
// either returns an error the group's context is cancelled, so a slow
// sibling extractor gets a cancellation signal rather than running to
// completion uselessly.
func runExtractors(ctx context.Context, r *http.Request, clientExtractor, resourceExtractor extractor.Extractor) (any, any, error) {
	var clientToken, resourceToken any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		token, err := clientExtractor(gctx, r)
		clientToken = token
		return err
	})
	g.Go(func() error {
		token, err := resourceExtractor(gctx, r)
		resourceToken = token
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return clientToken, resourceToken, nil
}
