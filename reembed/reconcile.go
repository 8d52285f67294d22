package reembed

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

// Orphans returns the skus present in the index but not in the relational
// store, sorted.
func Orphans(relationalSKUs, indexSKUs []string) []string {
	known := make(map[string]struct{}, len(relationalSKUs))
	for _, sku := range relationalSKUs {
		known[sku] = struct{}{}
	}
	seen := make(map[string]struct{}, len(indexSKUs))
	var orphans []string
	for _, sku := range indexSKUs {
		if _, ok := known[sku]; ok {
			continue
		}
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		orphans = append(orphans, sku)
	}
	sort.Strings(orphans)
	return orphans
}

// DeletionReconciler removes index points whose product no longer exists
// in the relational store. It takes no lock: a product inserted while it
// runs may lose its point and gets it back on the next embedding sync.
type DeletionReconciler struct {
	index  storage.VectorIndex
	logger *slog.Logger
}

// NewDeletionReconciler creates a reconciler for index.
func NewDeletionReconciler(index storage.VectorIndex) *DeletionReconciler {
	return &DeletionReconciler{
		index:  index,
		logger: slog.Default().With("component", "deletion-reconciler"),
	}
}

// Reconcile deletes every orphan and returns how many were deleted.
// A failed delete is recorded and the rest continue.
func (r *DeletionReconciler) Reconcile(ctx context.Context, relationalSKUs, indexSKUs []string) (int, []*core.RunError) {
	var (
		deleted int
		errs    []*core.RunError
	)
	for _, sku := range Orphans(relationalSKUs, indexSKUs) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, core.NewRunError(core.KindUnexpected, err).WithStage("delete"))
			break
		}
		if err := r.index.DeleteBySKU(ctx, sku); err != nil {
			r.logger.Error("failed to delete orphan", "sku", sku, "err", err)
			errs = append(errs, core.NewRunError(core.KindLoad, err).WithStage("delete").WithSKU(sku))
			continue
		}
		deleted++
		r.logger.Info("deleted orphan from index", "sku", sku)
	}
	r.logger.Info("deletion sync complete", "deleted", deleted)
	return deleted, errs
}
