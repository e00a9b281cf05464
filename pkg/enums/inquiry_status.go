package enums

import "fmt"

// InquiryStatus tracks a buyer/supplier negotiation.
type InquiryStatus string

const (
	InquiryStatusPending     InquiryStatus = "PENDING"
	InquiryStatusNegotiating InquiryStatus = "NEGOTIATING"
	InquiryStatusAccepted    InquiryStatus = "ACCEPTED"
	InquiryStatusRejected    InquiryStatus = "REJECTED"
)

var validInquiryStatuses = []InquiryStatus{
	InquiryStatusPending,
	InquiryStatusNegotiating,
	InquiryStatusAccepted,
	InquiryStatusRejected,
}

func (s InquiryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InquiryStatus.
func (s InquiryStatus) IsValid() bool {
	for _, candidate := range validInquiryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsFinal reports whether no further negotiation is allowed.
func (s InquiryStatus) IsFinal() bool {
	return s == InquiryStatusAccepted || s == InquiryStatusRejected
}

// ParseInquiryStatus converts raw input into an InquiryStatus.
func ParseInquiryStatus(value string) (InquiryStatus, error) {
	for _, candidate := range validInquiryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inquiry status %q", value)
}
