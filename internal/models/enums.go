package models

import "fmt"

// Role controls route-level authorization.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleSuperAdmin Role = "super-admin"
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin, RoleUser, RoleSuperAdmin:
		return Role(value), nil
	}
	return "", fmt.Errorf("unknown role: %q", value)
}

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

func ParseOrderStatus(value string) (OrderStatus, error) {
	switch OrderStatus(value) {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return OrderStatus(value), nil
	}
	return "", fmt.Errorf("unknown order status: %q", value)
}

// PaymentMethod is how an order will be paid.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentCard   PaymentMethod = "Card"
	PaymentOnline PaymentMethod = "Online"
)

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	switch PaymentMethod(value) {
	case PaymentCash, PaymentCard, PaymentOnline:
		return PaymentMethod(value), nil
	}
	return "", fmt.Errorf("unknown payment method: %q", value)
}
