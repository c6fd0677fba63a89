package enums

import "fmt"

// PaymentStatus tracks how far an order's payment has progressed.
type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "pending"
	PaymentStatusPaid                PaymentStatus = "paid"
	PaymentStatusAwaiting            PaymentStatus = "awaiting"
	PaymentStatusFailed              PaymentStatus = "failed"
	PaymentStatusPendingConfirmation PaymentStatus = "pending_confirmation"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusAwaiting,
	PaymentStatusFailed,
	PaymentStatusPendingConfirmation,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
