package enums

import "fmt"

// TrackingStatus is the delivery state of a shipment.
type TrackingStatus string

const (
	TrackingStatusPending   TrackingStatus = "PENDING"
	TrackingStatusInTransit TrackingStatus = "IN_TRANSIT"
	TrackingStatusDelivered TrackingStatus = "DELIVERED"
	TrackingStatusReturned  TrackingStatus = "RETURNED"
)

var validTrackingStatuses = []TrackingStatus{
	TrackingStatusPending,
	TrackingStatusInTransit,
	TrackingStatusDelivered,
	TrackingStatusReturned,
}

func (s TrackingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TrackingStatus.
func (s TrackingStatus) IsValid() bool {
	for _, candidate := range validTrackingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the shipment can no longer change.
func (s TrackingStatus) IsTerminal() bool {
	return s == TrackingStatusDelivered || s == TrackingStatusReturned
}

// ParseTrackingStatus converts raw input into a TrackingStatus.
func ParseTrackingStatus(value string) (TrackingStatus, error) {
	for _, candidate := range validTrackingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking status %q", value)
}
