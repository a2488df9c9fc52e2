package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one line in a cart. Price is the unit price snapshot taken when
// the medicine was first added; merging quantities keeps the original snapshot.
type CartItem struct {
	MedicineID primitive.ObjectID `bson:"medicineId" json:"medicineId"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	Price      float64            `bson:"price" json:"price"`
}

// Cart holds the single active cart of a user. There is at most one cart per
// user (unique index on user) and at most one line per medicine.
type Cart struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User       primitive.ObjectID `bson:"user" json:"user"`
	Medicines  []CartItem         `bson:"medicines" json:"medicines"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
