package fake

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/biketrack/internal/mapping"
	"github.com/woozymasta/biketrack/internal/models"
)

// Inserter is the destination side of the relay.
type Inserter interface {
	Insert(ctx context.Context, rec models.ExpandedRecord) error
}

// Send expands and inserts count generated records, one call each, and returns how many failed.
// It is meant to check destination credentials without a real tracker.
func Send(ctx context.Context, dst Inserter, policy mapping.Policy, count int) int {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var failed int
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return failed + count - i
		}

		rec := Record(rng)
		if err := dst.Insert(ctx, mapping.Expand(rec, policy)); err != nil {
			log.Warn().Err(err).Interface("device", rec["id"]).Msg("Failed to send fake record")
			failed++
			continue
		}

		log.Trace().Interface("device", rec["id"]).Msg("Fake record sent")
	}

	return failed
}
