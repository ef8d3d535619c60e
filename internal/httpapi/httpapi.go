// Package httpapi exposes the decision pipeline over the HTTP surface
// described in the sidecar's external interface: a liveness check and the
// auth-subrequest routes nginx-style reverse proxies call against.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/pitabwire/util"

	"github.com/impresso-project/content-authz/internal/pipeline"
)

const headerRedirectURL = "X-Redirect-Url"

// NewServeMux wires /health and the decision routes onto a fresh mux.
func NewServeMux(p *pipeline.Pipeline) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("/{matcher}/{client_extractor}/{resource_extractor}", decisionHandler(p, false))
	mux.HandleFunc("/{matcher}/{client_extractor}/{resource_extractor}/with-quota-check", decisionHandler(p, true))
	return withRequestID(mux)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func decisionHandler(p *pipeline.Pipeline, withQuota bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matcherName := r.PathValue("matcher")
		clientExtractorName := r.PathValue("client_extractor")
		resourceExtractorName := r.PathValue("resource_extractor")

		verdict, err := p.Decide(r.Context(), r, matcherName, clientExtractorName, resourceExtractorName, withQuota)
		if err != nil {
			util.Log(r.Context()).WithError(err).
				WithField("request_id", RequestID(r.Context())).
				WithField("matcher", matcherName).
				Error("decision pipeline dependency failed")
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		if verdict.RedirectHint != "" {
			w.Header().Set(headerRedirectURL, verdict.RedirectHint)
		}
		if verdict.Allow {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}
}
