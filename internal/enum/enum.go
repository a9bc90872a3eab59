package enum

// ── State machines (CHECK constrained in DB) ──

const (
	TableStatusFree           = "FREE"
	TableStatusOccupied       = "OCCUPIED"
	TableStatusBillingPending = "BILLING_PENDING"
	TableStatusReserved       = "RESERVED"
)

const (
	BillStatusPending   = "PENDING"
	BillStatusPaid      = "PAID"
	BillStatusCancelled = "CANCELLED"
	BillStatusRefunded  = "REFUNDED"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash   = "CASH"
	PaymentMethodUPI    = "UPI"
	PaymentMethodCard   = "CARD"
	PaymentMethodOnline = "ONLINE"
)

const (
	UserRoleAdmin = "ADMIN"
	UserRoleStaff = "STAFF"
)

const (
	NotificationTypeNewOrder     = "NEW_ORDER"
	NotificationTypeOrderDelay   = "ORDER_DELAY"
	NotificationTypeBillPaid     = "BILL_PAID"
	NotificationTypeTableCleared = "TABLE_CLEARED"
	NotificationTypeLowStock     = "LOW_STOCK"
	NotificationTypeOversold     = "OVERSOLD"
	NotificationTypeSystemAlert  = "SYSTEM_ALERT"
)

const (
	NotificationLevelInfo    = "info"
	NotificationLevelWarning = "warning"
	NotificationLevelSuccess = "success"
	NotificationLevelError   = "error"
)

// ValidTableStatus reports whether s is a known table status.
func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusFree, TableStatusOccupied, TableStatusBillingPending, TableStatusReserved:
		return true
	}
	return false
}

// ValidBillStatus reports whether s is a known bill status.
func ValidBillStatus(s string) bool {
	switch s {
	case BillStatusPending, BillStatusPaid, BillStatusCancelled, BillStatusRefunded:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether s is a known payment method.
func ValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodCard, PaymentMethodOnline:
		return true
	}
	return false
}

// ValidUserRole reports whether s is a known user role.
func ValidUserRole(s string) bool {
	switch s {
	case UserRoleAdmin, UserRoleStaff:
		return true
	}
	return false
}
