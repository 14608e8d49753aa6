package orderstatus

// Status is the machine name of an order status.
type Status string

const (
	Scheduled  Status = "scheduled"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Cancelled  Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// OrderStatus is a row of the order_statuses reference table.
type OrderStatus struct {
	ID        int64  `json:"id"`
	Name      Status `json:"name"`
	Label     string `json:"label"`
	SortOrder int    `json:"sortOrder"`
}
