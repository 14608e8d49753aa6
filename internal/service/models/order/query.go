package order

import "time"

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	Ids            []int64    `json:"ids,omitempty"`
	ClientIds      []int64    `json:"clientIds,omitempty"`
	CenterIds      []int64    `json:"centerIds,omitempty"`
	StatusIds      []int64    `json:"statusIds,omitempty"`
	ScheduledFrom  *time.Time `json:"scheduledFrom,omitempty"`
	ScheduledTo    *time.Time `json:"scheduledTo,omitempty"`
	IncludeDeleted bool       `json:"includeDeleted,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
}
