// Package identity resolves face embeddings to registered users. The gate
// engine only sees the Identify contract; the matching policy lives here.
package identity

import (
	"context"
	"log/slog"
	"math"

	"facegate/internal/user/models"
	dErrors "facegate/pkg/domain-errors"
)

// UserSource supplies the embedding corpus to match against.
type UserSource interface {
	List(ctx context.Context) ([]*models.User, error)
}

// Resolver matches an incoming embedding against stored user embeddings by
// cosine similarity. Best match wins when it clears the threshold; ties are
// broken by lowest user id so resolution stays deterministic.
type Resolver struct {
	source    UserSource
	threshold float64
	logger    *slog.Logger
}

// NewResolver constructs a Resolver. threshold is the minimum cosine
// similarity for a match.
func NewResolver(source UserSource, threshold float64, logger *slog.Logger) *Resolver {
	return &Resolver{
		source:    source,
		threshold: threshold,
		logger:    logger,
	}
}

// Identify returns the matching user, or (nil, nil) when no stored embedding
// clears the similarity threshold. Read-only; never writes.
func (r *Resolver) Identify(ctx context.Context, embedding []float64) (*models.User, error) {
	if len(embedding) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "embedding is required")
	}

	users, err := r.source.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load embedding corpus")
	}

	var (
		best      *models.User
		bestScore float64
	)
	for _, u := range users {
		score, ok := cosineSimilarity(embedding, u.Embedding)
		if !ok {
			// Dimension mismatch: corpus entries from a different encoder
			// version cannot be compared, skip them.
			continue
		}
		if score < r.threshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && u.ID.String() < best.ID.String()) {
			best = u
			bestScore = score
		}
	}

	if best != nil {
		r.logger.DebugContext(ctx, "face embedding resolved",
			"user_id", best.ID,
			"score", bestScore,
		)
	}
	return best, nil
}

// cosineSimilarity returns the cosine of the angle between a and b. The
// second return is false when the vectors cannot be compared (length
// mismatch or a zero vector).
func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
