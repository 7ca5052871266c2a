package reconcile

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/perseis-platform/ebisu/internal/db"
)

// Reconciler maintains the cross-source confirmation index over current
// intelligence records.
type Reconciler struct {
	store *Store
	log   *zap.Logger
}

// New creates a Reconciler backed by the given connection pool.
func New(pool db.Pool) *Reconciler {
	return &Reconciler{store: NewStore(pool), log: zap.L().Named("reconcile")}
}

// RebuildResult summarizes a full rebuild.
type RebuildResult struct {
	Records    int
	Groups     int
	Confirmed  int
	Unresolved int
}

// Rebuild reclusters every current record from scratch and replaces the
// derived state wholesale. The result is a pure function of the current
// record set; running it twice in a row yields identical state.
func (r *Reconciler) Rebuild(ctx context.Context) (*RebuildResult, error) {
	records, err := r.store.CurrentRecords(ctx)
	if err != nil {
		return nil, err
	}

	groups := Cluster(records)
	if err := r.store.ReplaceAll(ctx, groups); err != nil {
		return nil, err
	}

	res := &RebuildResult{Records: len(records), Groups: len(groups)}
	for _, g := range groups {
		switch g.Status {
		case StatusConfirmed:
			res.Confirmed++
		case StatusUnresolved:
			res.Unresolved++
		}
	}
	r.log.Info("confirmation state rebuilt",
		zap.Int("records", res.Records),
		zap.Int("groups", res.Groups),
		zap.Int("confirmed", res.Confirmed),
		zap.Int("unresolved", res.Unresolved),
	)
	return res, nil
}

// UpdateBatch folds one batch's current records into the confirmation
// index. Matching runs over a snapshot of all current records; writes touch
// only groups containing at least one of the batch's records. The operation
// is idempotent: replaying it for the same batch changes nothing.
func (r *Reconciler) UpdateBatch(ctx context.Context, batchID int64) error {
	batchIDs, err := r.store.BatchRecordIDs(ctx, batchID)
	if err != nil {
		return err
	}
	if len(batchIDs) == 0 {
		r.log.Info("no current records for batch, skipping reconciliation",
			zap.Int64("batch_id", batchID))
		return nil
	}

	records, err := r.store.CurrentRecords(ctx)
	if err != nil {
		return err
	}

	touched := make([]Group, 0)
	for _, g := range Cluster(records) {
		for _, m := range g.Members {
			if _, ok := batchIDs[m.ID]; ok {
				touched = append(touched, g)
				break
			}
		}
	}

	updated := 0
	for _, g := range touched {
		if err := r.applyGroup(ctx, g); err != nil {
			return eris.Wrapf(err, "reconcile: apply group %s", g.Key)
		}
		updated++
	}

	r.log.Info("confirmation state updated",
		zap.Int64("batch_id", batchID),
		zap.Int("batch_records", len(batchIDs)),
		zap.Int("groups_touched", updated),
	)
	return nil
}

// applyGroup persists one cluster. Existing confirmation rows already
// holding any of the group's members are reused; when the cluster bridges
// several prior groups, the lowest-id row survives and absorbs the rest.
func (r *Reconciler) applyGroup(ctx context.Context, g Group) error {
	memberIDs := make([]int64, len(g.Members))
	for i, m := range g.Members {
		memberIDs[i] = m.ID
	}

	existing, err := r.store.ConfirmationsFor(ctx, memberIDs)
	if err != nil {
		return err
	}

	distinct := make(map[int64]struct{})
	for _, confID := range existing {
		distinct[confID] = struct{}{}
	}

	var target int64
	switch len(distinct) {
	case 0:
		target, err = r.store.EnsureConfirmation(ctx, g.Key, g.Status, g.Sources)
		if err != nil {
			return err
		}
	default:
		ids := make([]int64, 0, len(distinct))
		for id := range distinct {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		target = ids[0]
		if err := r.store.AbsorbConfirmations(ctx, target, ids[1:]); err != nil {
			return err
		}
		// A stale row from a previous clustering may still hold this key
		// without holding any of the members; fold it into the target too,
		// or the key rewrite below trips the vessel_key unique constraint.
		// The creation branch is immune, EnsureConfirmation upserts on the
		// key itself.
		holder, ok, err := r.store.ConfirmationByKey(ctx, g.Key)
		if err != nil {
			return err
		}
		if ok && holder != target {
			if err := r.store.AbsorbConfirmations(ctx, target, []int64{holder}); err != nil {
				return err
			}
		}
	}

	if _, err := r.store.AddMembers(ctx, target, g.Members); err != nil {
		return err
	}
	return r.store.UpdateConfirmation(ctx, target, g.Key, g.Status, g.Sources)
}
