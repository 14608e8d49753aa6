package reconciler

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/serviceorder/internal/service/totals"
	"github.com/shopspring/decimal"
)

// Mode selects how incoming descriptors are reconciled with existing items.
type Mode string

const (
	// Replace deletes every existing item and inserts the incoming ones.
	Replace Mode = "replace"
	// Update edits matched items in place and appends the rest.
	Update Mode = "update"
	// Merge appends every incoming descriptor and never deletes.
	Merge Mode = "merge"
)

var hundred = decimal.NewFromInt(100)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case Replace, Update, Merge:
		return m, nil
	default:
		return "", apperrors.InvalidOperation("unknown operation %q", s)
	}
}

// ItemRepository is the persistence the reconciler needs. Implementations must be
// bound to the transaction that also updates the order totals.
type ItemRepository interface {
	ListByOrder(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error)
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)
	Update(ctx context.Context, item orderitem.OrderItem) error
	DeleteByIDs(ctx context.Context, orderID int64, ids []int64) error
	DeleteByOrderID(ctx context.Context, orderID int64) error
}

// Plan is the set of mutations a reconciliation will perform.
type Plan struct {
	DeleteAll bool
	Deletes   []int64
	Updates   []orderitem.OrderItem
	Inserts   []orderitem.OrderItem
}

// Empty reports whether the plan performs no writes.
func (p Plan) Empty() bool {
	return !p.DeleteAll && len(p.Deletes) == 0 && len(p.Updates) == 0 && len(p.Inserts) == 0
}

// Validate rejects malformed descriptors. It runs before any mutation.
func Validate(descriptors []orderitem.Descriptor) error {
	seen := make(map[int64]struct{}, len(descriptors))
	for i, d := range descriptors {
		if d.ID != nil {
			if *d.ID <= 0 {
				return apperrors.Validation("data[%d].id must be positive", i)
			}
			if _, dup := seen[*d.ID]; dup {
				return apperrors.Validation("data[%d].id %d is referenced more than once", i, *d.ID)
			}
			seen[*d.ID] = struct{}{}
		}
		if d.ProductID <= 0 {
			return apperrors.Validation("data[%d].product_id is required", i)
		}
		if d.Quantity < 1 {
			return apperrors.Validation("data[%d].quantity must be at least 1", i)
		}
		if d.Quantity > math.MaxInt32 {
			return apperrors.Validation("data[%d].quantity must be at most %d", i, math.MaxInt32)
		}
		if d.UnitPrice == nil {
			return apperrors.Validation("data[%d].unit_price is required", i)
		}
		if d.UnitPrice.IsNegative() || d.UnitPrice.GreaterThan(totals.MaxAmount) {
			return apperrors.Validation("data[%d].unit_price must be between 0 and %s", i, totals.MaxAmount)
		}
		if !totals.FitsScale(*d.UnitPrice) {
			return apperrors.Validation("data[%d].unit_price must have at most %d decimal places", i, totals.Scale)
		}
		discount := d.DiscountOrZero()
		if discount.IsNegative() || discount.GreaterThan(hundred) {
			return apperrors.Validation("data[%d].discount must be between 0 and 100", i)
		}
		if !totals.FitsScale(discount) {
			return apperrors.Validation("data[%d].discount must have at most %d decimal places", i, totals.Scale)
		}
		if totals.LineTotal(d.Quantity, *d.UnitPrice, discount).GreaterThan(totals.MaxAmount) {
			return apperrors.Validation("data[%d] line total exceeds %s", i, totals.MaxAmount)
		}
	}

	return nil
}

// ProductIDs returns the distinct product ids referenced by descriptors.
func ProductIDs(descriptors []orderitem.Descriptor) []int64 {
	ids := make([]int64, 0, len(descriptors))
	for _, d := range descriptors {
		if !slices.Contains(ids, d.ProductID) {
			ids = append(ids, d.ProductID)
		}
	}

	return ids
}

// BuildPlan decides the mutations for mode. existing must be the order's current items.
func BuildPlan(
	mode Mode,
	orderID int64,
	existing []orderitem.OrderItem,
	descriptors []orderitem.Descriptor,
	removeUnsent bool,
	now time.Time,
) (Plan, error) {
	switch mode {
	case Replace:
		plan := Plan{DeleteAll: len(existing) > 0}
		for _, d := range descriptors {
			plan.Inserts = append(plan.Inserts, newItem(orderID, d, now))
		}

		return plan, nil
	case Merge:
		plan := Plan{}
		for _, d := range descriptors {
			plan.Inserts = append(plan.Inserts, newItem(orderID, d, now))
		}

		return plan, nil
	case Update:
		return planUpdate(orderID, existing, descriptors, removeUnsent, now)
	default:
		return Plan{}, apperrors.InvalidOperation("unknown operation %q", mode)
	}
}

func planUpdate(
	orderID int64,
	existing []orderitem.OrderItem,
	descriptors []orderitem.Descriptor,
	removeUnsent bool,
	now time.Time,
) (Plan, error) {
	byID := make(map[int64]int, len(existing))
	for i, item := range existing {
		byID[item.ID] = i
	}

	// Explicit ids are reserved up front so a product match never claims them.
	reserved := make(map[int64]bool)
	for _, d := range descriptors {
		if d.ID == nil {
			continue
		}
		if _, ok := byID[*d.ID]; !ok {
			return Plan{}, apperrors.NotFound("item %d does not belong to order %d", *d.ID, orderID)
		}
		reserved[*d.ID] = true
	}

	plan := Plan{}
	touched := make(map[int64]bool, len(existing))
	for _, d := range descriptors {
		if d.ID != nil {
			item := existing[byID[*d.ID]]
			applyDescriptor(&item, d, now)
			plan.Updates = append(plan.Updates, item)
			touched[item.ID] = true

			continue
		}

		idx := slices.IndexFunc(existing, func(it orderitem.OrderItem) bool {
			return it.ProductID == d.ProductID && !touched[it.ID] && !reserved[it.ID]
		})
		if idx >= 0 {
			item := existing[idx]
			applyDescriptor(&item, d, now)
			plan.Updates = append(plan.Updates, item)
			touched[item.ID] = true

			continue
		}

		plan.Inserts = append(plan.Inserts, newItem(orderID, d, now))
	}

	if removeUnsent {
		for _, item := range existing {
			if !touched[item.ID] {
				plan.Deletes = append(plan.Deletes, item.ID)
			}
		}
	}

	return plan, nil
}

func newItem(orderID int64, d orderitem.Descriptor, now time.Time) orderitem.OrderItem {
	item := orderitem.OrderItem{
		OrderID:   orderID,
		CreatedAt: now,
	}
	applyDescriptor(&item, d, now)

	return item
}

func applyDescriptor(item *orderitem.OrderItem, d orderitem.Descriptor, now time.Time) {
	item.ProductID = d.ProductID
	item.Quantity = d.Quantity
	item.UnitPrice = *d.UnitPrice
	item.DiscountPercent = d.DiscountOrZero()
	item.Notes = d.Notes
	item.UpdatedAt = now
	totals.Reprice(item)
}

// Apply executes plan against repo. Deletes run first so a replace never sees old rows.
func Apply(ctx context.Context, repo ItemRepository, orderID int64, plan Plan) error {
	if plan.DeleteAll {
		if err := repo.DeleteByOrderID(ctx, orderID); err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
	}
	if len(plan.Deletes) > 0 {
		if err := repo.DeleteByIDs(ctx, orderID, plan.Deletes); err != nil {
			return fmt.Errorf("failed to delete unsent order items: %w", err)
		}
	}
	for _, item := range plan.Updates {
		if err := repo.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to update order item %d: %w", item.ID, err)
		}
	}
	if len(plan.Inserts) > 0 {
		if _, err := repo.BulkInsert(ctx, plan.Inserts); err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}
	}

	return nil
}

// Reconciler runs a full reconciliation against persisted items.
type Reconciler struct {
	clock func() time.Time
}

// New creates a Reconciler. A nil clock defaults to time.Now.
func New(clock func() time.Time) *Reconciler {
	if clock == nil {
		clock = time.Now
	}

	return &Reconciler{clock: clock}
}

// Reconcile validates, plans and applies the change, then returns the persisted item set.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	repo ItemRepository,
	orderID int64,
	mode Mode,
	descriptors []orderitem.Descriptor,
	removeUnsent bool,
) ([]orderitem.OrderItem, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := Validate(descriptors); err != nil {
		return nil, err
	}

	existing, err := repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	plan, err := BuildPlan(mode, orderID, existing, descriptors, removeUnsent, r.clock().UTC())
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		return existing, nil
	}

	if err := Apply(ctx, repo, orderID, plan); err != nil {
		return nil, err
	}

	return repo.ListByOrder(ctx, orderID)
}
