package member

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kindred/internal/pkg/logx"
)

// DefaultReconcileInterval is how often the reconciliation pass runs.
const DefaultReconcileInterval = 5 * time.Minute

// reconcilePassTimeout bounds a single reconciliation pass.
const reconcilePassTimeout = 30 * time.Second

// Reconciler is the background safety net for the dual-write friend state.
//
// Graph operations update two independent records without a cross-record
// transaction; a crash between the paired updates can leave an asymmetric
// state. The reconciler periodically scans all members and repairs such
// states with the same idempotent conditional set primitives, so a repair
// racing a live operation is harmless.
type Reconciler struct {
	store    Store
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// NewReconciler constructs a Reconciler over the given store. Call Start to
// begin the periodic pass and Stop to shut it down.
func NewReconciler(store Store, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}

	return &Reconciler{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		logger:   logx.Logger().With().Str("component", "Reconciler").Logger(),
	}
}

// Start launches the periodic reconciliation loop.
func (r *Reconciler) Start() {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info().Dur("interval", r.interval).Msg("Reconciler started.")

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), reconcilePassTimeout)
				repairs, err := r.ReconcileOnce(ctx)
				cancel()

				if err != nil {
					r.logger.Error().Err(err).Msg("Reconciliation pass failed.")
				} else if repairs > 0 {
					r.logger.Warn().Int("repairs", repairs).Msg("Reconciliation repaired asymmetric state.")
				}

			case <-r.stop:
				r.logger.Info().Msg("Reconciler stopped.")
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for it to exit. Safe to call once.
func (r *Reconciler) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// ReconcileOnce performs a single reconciliation pass and returns the number
// of repairs applied. Repairs converge towards the operation that was in
// flight: one-sided friend entries and unmirrored pending entries gain their
// mirror, friend/pending overlap loses the pending side, and self references
// are dropped.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	members, err := r.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	index := make(map[string]Member, len(members))
	for _, m := range members {
		index[m.ID] = m
	}

	repairs := 0

	apply := func(err error) {
		if err == nil {
			repairs++
		} else {
			r.logger.Error().Err(err).Msg("Reconciliation repair failed.")
		}
	}

	for _, m := range members {
		// Self references violate the model outright.
		if m.HasFriend(m.ID) {
			apply(r.store.RemoveFromSet(ctx, m.ID, FieldFriends, m.ID))
		}
		if m.HasSentRequestTo(m.ID) {
			apply(r.store.RemoveFromSet(ctx, m.ID, FieldSentRequests, m.ID))
		}
		if m.HasReceivedRequestFrom(m.ID) {
			apply(r.store.RemoveFromSet(ctx, m.ID, FieldReceivedRequests, m.ID))
		}

		// Friend symmetry: B in A.friends implies A in B.friends.
		for _, friendID := range m.Friends {
			peer, ok := index[friendID]
			if !ok {
				continue
			}
			if !peer.HasFriend(m.ID) {
				apply(r.store.AddToSet(ctx, peer.ID, FieldFriends, m.ID))
			}
		}

		for _, receiverID := range m.SentRequests {
			peer, ok := index[receiverID]
			if !ok {
				continue
			}

			if m.HasFriend(receiverID) {
				// A completed acceptance left the pending pair behind.
				apply(r.store.RemoveFromSet(ctx, m.ID, FieldSentRequests, receiverID))
				apply(r.store.RemoveFromSet(ctx, peer.ID, FieldReceivedRequests, m.ID))
				continue
			}

			// Pending mirror: receiver must list the sender.
			if !peer.HasReceivedRequestFrom(m.ID) {
				apply(r.store.AddToSet(ctx, peer.ID, FieldReceivedRequests, m.ID))
			}
		}

		for _, senderID := range m.ReceivedRequests {
			peer, ok := index[senderID]
			if !ok {
				continue
			}

			if m.HasFriend(senderID) {
				apply(r.store.RemoveFromSet(ctx, m.ID, FieldReceivedRequests, senderID))
				apply(r.store.RemoveFromSet(ctx, peer.ID, FieldSentRequests, m.ID))
				continue
			}

			if !peer.HasSentRequestTo(m.ID) {
				apply(r.store.AddToSet(ctx, peer.ID, FieldSentRequests, m.ID))
			}
		}
	}

	return repairs, nil
}
