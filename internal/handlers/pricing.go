package handlers

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"healup/internal/models"
)

// mergeCartItem folds a requested quantity into the cart lines. An existing
// line keeps its original price snapshot and only grows its quantity; a new
// medicine is appended with the supplied unit price.
func mergeCartItem(items []models.CartItem, medicineID primitive.ObjectID, quantity int, unitPrice float64) []models.CartItem {
	for i := range items {
		if items[i].MedicineID == medicineID {
			items[i].Quantity += quantity
			return items
		}
	}
	return append(items, models.CartItem{
		MedicineID: medicineID,
		Quantity:   quantity,
		Price:      unitPrice,
	})
}

// removeCartItem drops the line for a medicine. The second return value
// reports whether the medicine was present.
func removeCartItem(items []models.CartItem, medicineID primitive.ObjectID) ([]models.CartItem, bool) {
	for i := range items {
		if items[i].MedicineID == medicineID {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}

// cartTotal recomputes the cart invariant: totalPrice == Σ price × quantity.
func cartTotal(items []models.CartItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func orderTotal(items []models.OrderItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}
