package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"seepage/internal/logger"
	"seepage/internal/repository"
	"seepage/internal/storage"
)

// SweepResult summarises one sweep.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Orphans int `json:"orphans"`
	Deleted int `json:"deleted"`
}

// OrphanSweeper deletes blobs that no FileRef references. Blobs younger than
// grace are skipped so in-flight uploads are never collected.
type OrphanSweeper struct {
	repo    repository.ContentRepository
	blobs   storage.BlobStore
	grace   time.Duration
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewOrphanSweeper constructs an OrphanSweeper. metrics may be nil.
func NewOrphanSweeper(repo repository.ContentRepository, blobs storage.BlobStore, grace time.Duration, log zerolog.Logger, metrics *Metrics) *OrphanSweeper {
	return &OrphanSweeper{
		repo:    repo,
		blobs:   blobs,
		grace:   grace,
		log:     logger.Component(log, "sweeper"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Sweep runs one pass. Blobs are listed before references are read, so a blob
// attached during the pass is either referenced or inside the grace window.
func (s *OrphanSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	var res SweepResult

	objects, err := s.blobs.List(ctx, storage.Filter{})
	if err != nil {
		return res, storeErr("list blobs", err)
	}
	res.Scanned = len(objects)

	referenced, err := s.repo.ReferencedBlobIDs(ctx)
	if err != nil {
		return res, storeErr("referenced blobs", err)
	}

	cutoff := s.now().Add(-s.grace)
	var orphans []string
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		orphans = append(orphans, obj.Key)
	}
	res.Orphans = len(orphans)

	if len(orphans) > 0 {
		n, err := s.blobs.DeleteMany(ctx, orphans)
		s.metrics.observe("sweep", err)
		res.Deleted = n
		if err != nil {
			s.log.Error().Err(err).
				Str("event", "blob_sweep").
				Str("status", "error").
				Int("orphans", res.Orphans).
				Int("deleted", res.Deleted).
				Msg("orphan sweep incomplete")
			return res, storeErr("delete orphans", err)
		}
	}

	s.log.Info().
		Str("event", "blob_sweep").
		Str("status", "success").
		Int("scanned", res.Scanned).
		Int("orphans", res.Orphans).
		Int("deleted", res.Deleted).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("orphan sweep finished")
	return res, nil
}

// Run sweeps every interval until ctx is done.
func (s *OrphanSweeper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn().Err(err).Str("event", "blob_sweep").Msg("sweep failed")
			}
		}
	}
}
