package enums

import "fmt"

// OrderStatus tracks where an order sits in the kitchen workflow.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// OrderStatuses returns the statuses in workflow order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// StatusBadge is the display hint attached to an order status.
type StatusBadge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var statusColors = map[OrderStatus]string{
	OrderStatusPending:   "yellow",
	OrderStatusConfirmed: "blue",
	OrderStatusPreparing: "orange",
	OrderStatusReady:     "green",
	OrderStatusCompleted: "gray",
	OrderStatusCancelled: "red",
}

// Color returns the badge color; unknown statuses render gray.
func (s OrderStatus) Color() string {
	if color, ok := statusColors[s]; ok {
		return color
	}
	return "gray"
}

// Label returns the title-cased status name.
func (s OrderStatus) Label() string {
	if s == "" {
		return ""
	}
	raw := string(s)
	first := raw[0]
	if first >= 'a' && first <= 'z' {
		first -= 'a' - 'A'
	}
	return string(first) + raw[1:]
}

// Badge combines Label and Color.
func (s OrderStatus) Badge() StatusBadge {
	return StatusBadge{Label: s.Label(), Color: s.Color()}
}
