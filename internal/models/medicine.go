package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medicine is a catalog entry. Name and brand are stored lowercased so the
// (name, brand, batchNumber) uniqueness check is case-insensitive.
type Medicine struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name                 string              `bson:"name" json:"name"`
	Brand                string              `bson:"brand" json:"brand"`
	Category             string              `bson:"category" json:"category"`
	Price                float64             `bson:"price" json:"price"`
	Stock                int                 `bson:"stock" json:"stock"`
	ExpiryDate           time.Time           `bson:"expiryDate" json:"expiryDate"`
	Manufacturer         *primitive.ObjectID `bson:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	BatchNumber          string              `bson:"batchNumber" json:"batchNumber"`
	Dosage               string              `bson:"dosage" json:"dosage"`
	PrescriptionRequired bool                `bson:"prescriptionRequired" json:"prescriptionRequired"`
	Description          string              `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL             string              `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedBy            primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	UpdatedBy            *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt            time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updatedAt" json:"updatedAt"`
}
