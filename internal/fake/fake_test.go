package fake_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/woozymasta/biketrack/internal/fake"
	"github.com/woozymasta/biketrack/internal/mapping"
	"github.com/woozymasta/biketrack/internal/models"
)

type countingInserter struct {
	records []models.ExpandedRecord
	failAt  int
}

func (c *countingInserter) Insert(_ context.Context, rec models.ExpandedRecord) error {
	c.records = append(c.records, rec)
	if c.failAt > 0 && len(c.records) == c.failAt {
		return errors.New("destination responded 401: invalid api key")
	}

	return nil
}

func TestRecordUsesShortKeys(t *testing.T) {
	known := map[string]bool{}
	for _, f := range mapping.Fields {
		known[f.Short] = true
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		rec := fake.Record(rng)
		require.Contains(t, rec, "id")
		require.Contains(t, rec, "gps")
		for k := range rec {
			require.True(t, known[k], "unexpected key %q", k)
		}
	}
}

func TestSend(t *testing.T) {
	dst := &countingInserter{failAt: 3}

	failed := fake.Send(context.Background(), dst, mapping.Presence, 5)

	require.Equal(t, 1, failed)
	require.Len(t, dst.records, 5)
	for _, rec := range dst.records {
		require.NotNil(t, rec.DeviceID)
	}
}

func TestSendStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := &countingInserter{}
	require.Equal(t, 4, fake.Send(ctx, dst, mapping.Presence, 4))
	require.Empty(t, dst.records)
}
