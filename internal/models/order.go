package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is one line in an order. Price is the unit price snapshot taken at
// placement time, insulating order history from later catalog price changes.
type OrderItem struct {
	MedicineID primitive.ObjectID `bson:"medicineId" json:"medicineId"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	Price      float64            `bson:"price" json:"price"`
}

// ShippingAddress is the structured delivery address stored on an order.
type ShippingAddress struct {
	FullName   string `bson:"fullName" json:"fullName"`
	Phone      string `bson:"phone" json:"phone"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

// Order is the persisted order document.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Customer        primitive.ObjectID `bson:"customer" json:"customer"`
	Medicines       []OrderItem        `bson:"medicines" json:"medicines"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	Status          OrderStatus        `bson:"status" json:"status"`
	PaymentMethod   PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	IsPaid          bool               `bson:"isPaid" json:"isPaid"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	CreatedBy       primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
