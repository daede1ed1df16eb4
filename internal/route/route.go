// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package route decides which evidence sources a question needs:
// documents, the sales database, or both. Cheap lexical rules run
// first and settle most questions; a generative classifier is
// consulted only when they are inconclusive, and its failures are
// never fatal.
package route

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

// Classifier is the generative fallback consulted when the lexical
// rules do not settle a question.
type Classifier interface {
	Classify(ctx context.Context, question string) (string, error)
}

// Rule vocabularies, checked in order. Order is load-bearing:
// "top 3 products during summer" must reach the temporal rule, so the
// aggregate rule steps aside when "during" is present.
var (
	policyWords    = []string{"policy", "return window", "return days", "according to"}
	aggregateWords = []string{"top 3", "top products", "all-time", "total revenue"}
	temporalWords  = []string{"during", "summer", "winter", "campaign"}
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Router classifies questions by evidence needs.
type Router struct {
	fallback Classifier
	logger   *zap.Logger
}

// New creates a router. fallback may be nil, in which case only the
// lexical rules and the interrogative default apply.
func New(fallback Classifier, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{fallback: fallback, logger: logger}
}

// Route returns the evidence route for a question. It always returns
// a valid route: classifier errors and off-label output fall through
// to the defaults.
func (r *Router) Route(ctx context.Context, question string) types.Route {
	lower := strings.ToLower(question)

	if containsAny(lower, policyWords) {
		return types.RouteDocOnly
	}
	if !strings.Contains(lower, "during") && containsAny(lower, aggregateWords) {
		return types.RouteStoreOnly
	}
	if containsAny(lower, temporalWords) || yearPattern.MatchString(lower) {
		return types.RouteBoth
	}

	if r.fallback != nil {
		label, err := r.fallback.Classify(ctx, question)
		if err != nil {
			r.logger.Debug("route classifier failed", zap.Error(err))
		} else if rt := types.Route(strings.TrimSpace(strings.ToLower(label))); rt.Valid() {
			return rt
		} else {
			r.logger.Debug("route classifier returned off-label output",
				zap.String("label", label))
		}
	}

	if strings.Contains(lower, "how many") || strings.Contains(lower, "what is") {
		return types.RouteStoreOnly
	}
	return types.RouteBoth
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
