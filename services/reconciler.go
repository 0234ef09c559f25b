// services/reconciler.go - Background reconciliation of orphaned proof items
package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ItemReconciler periodically retries the lock phase of orphaned items.
type ItemReconciler struct {
	minting  *MintingService
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewItemReconciler runs minting.ReconcileOrphans on schedule, a cron expression
// such as "@every 15m". An empty schedule disables the background job.
func NewItemReconciler(minting *MintingService, schedule string) *ItemReconciler {
	return &ItemReconciler{minting: minting, schedule: schedule, timeout: 5 * time.Minute}
}

// Start registers and starts the job.
func (r *ItemReconciler) Start() error {
	if r.schedule == "" {
		log.Println("[RECONCILE] No schedule configured, background reconciliation disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			log.Printf("[RECONCILE] Run failed: %v", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	log.Printf("[RECONCILE] Item reconciler started (%s)", r.schedule)
	return nil
}

// Stop waits for a running job to finish.
func (r *ItemReconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	log.Println("[RECONCILE] Item reconciler stopped")
}

// RunOnce reconciles now. Overlapping runs are skipped.
func (r *ItemReconciler) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		log.Println("[RECONCILE] Previous run still in progress, skipping")
		return &ReconcileReport{}, nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.minting.ReconcileOrphans(ctx)
}
