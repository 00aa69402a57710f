package expiry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"rowfence/internal/observability"
	"rowfence/internal/services/inventory"
)

// Worker sweeps pending orders past their TTL and expires them through
// the inventory service, which rebuilds each order's tenant scope before
// touching its rows.
type Worker struct {
	inventory *inventory.Service
	pollEvery time.Duration
	batch     int
}

func NewWorker(inventoryService *inventory.Service, pollEvery time.Duration, batch int) *Worker {
	if pollEvery <= 0 {
		pollEvery = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Worker{inventory: inventoryService, pollEvery: pollEvery, batch: batch}
}

func (w *Worker) Run(ctx context.Context) {
	log.Info().Dur("poll_every", w.pollEvery).Msg("expiry worker: started")
	t := time.NewTicker(w.pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiry worker: stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	n, err := w.inventory.ExpireOverdue(ctx, time.Now(), w.batch)
	if err != nil {
		log.Error().Err(err).Int("expired", n).Msg("expiry worker: sweep failed")
	}
	if n > 0 {
		observability.OrdersExpiredTotal.Add(float64(n))
		log.Info().Int("expired", n).Msg("expiry worker: expired overdue orders")
	}
}
