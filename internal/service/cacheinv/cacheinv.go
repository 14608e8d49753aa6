package cacheinv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/cacheport"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/dashboard"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
)

// AllCenters is the dashboard scope covering every service center.
const AllCenters = "all"

// OrderKey is the cache key of a single order read.
func OrderKey(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// ClientOrdersKey is the cache key of a client's order list.
func ClientOrdersKey(clientID int64) string {
	return fmt.Sprintf("client:%d:orders", clientID)
}

// CenterOrdersKey is the cache key of a center's order list.
func CenterOrdersKey(centerID int64) string {
	return fmt.Sprintf("center:%d:orders", centerID)
}

// StatusesKey is the cache key of the status catalogue.
const StatusesKey = "order_statuses"

// Bucket names the calendar bucket of t for period, evaluated in loc.
func Bucket(period dashboard.Period, t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)

	switch period {
	case dashboard.Week:
		year, week := local.ISOWeek()

		return fmt.Sprintf("%04d-W%02d", year, week)
	case dashboard.Month:
		return local.Format("2006-01")
	default:
		return local.Format("2006-01-02")
	}
}

// DashboardKey is the cache key of a dashboard summary. scope is a center id or AllCenters.
func DashboardKey(scope string, period dashboard.Period, bucket string) string {
	return fmt.Sprintf("dashboard:%s:%s:%s", scope, period, bucket)
}

// CenterScope renders a center id as a dashboard scope.
func CenterScope(centerID int64) string {
	if centerID <= 0 {
		return AllCenters
	}

	return fmt.Sprintf("%d", centerID)
}

// Keys returns the deduplicated keys made stale by writes to the given snapshots.
// Passing both the old and new snapshot of a rescheduled or reassigned order covers both dates.
func Keys(loc *time.Location, snapshots ...order.Snapshot) []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0, len(snapshots)*9)
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	for _, s := range snapshots {
		if s.ID > 0 {
			add(OrderKey(s.ID))
		}
		if s.ClientID > 0 {
			add(ClientOrdersKey(s.ClientID))
		}
		if s.CenterID > 0 {
			add(CenterOrdersKey(s.CenterID))
		}
		if s.ScheduledAt.IsZero() {
			continue
		}
		for _, period := range dashboard.Periods {
			bucket := Bucket(period, s.ScheduledAt, loc)
			if s.CenterID > 0 {
				add(DashboardKey(CenterScope(s.CenterID), period, bucket))
			}
			add(DashboardKey(AllCenters, period, bucket))
		}
	}

	return keys
}

// Invalidator drops stale keys after a write commits.
type Invalidator struct {
	cache    cacheport.Cache
	location *time.Location
}

// New creates an Invalidator. A nil cache makes Invalidate a no-op.
func New(cache cacheport.Cache, loc *time.Location) *Invalidator {
	if loc == nil {
		loc = time.UTC
	}

	return &Invalidator{cache: cache, location: loc}
}

// Invalidate forgets every key derived from snapshots. Failures are logged, not returned,
// because the write they follow has already committed.
func (i *Invalidator) Invalidate(ctx context.Context, snapshots ...order.Snapshot) {
	if i == nil || i.cache == nil {
		return
	}

	keys := Keys(i.location, snapshots...)
	if len(keys) == 0 {
		return
	}

	if err := i.cache.Forget(ctx, keys...); err != nil {
		slog.Error("Failed to invalidate order caches", "keys", keys, "error", err)
	}
}
