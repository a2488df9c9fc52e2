package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"healup/internal/models"
)

type addToCartRequest struct {
	MedicineID string `json:"medicineId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

// cartView is the display shape of a cart with medicine names resolved.
type cartView struct {
	ID         string         `json:"id,omitempty"`
	Medicines  []cartViewItem `json:"medicines"`
	TotalPrice float64        `json:"totalPrice"`
}

type cartViewItem struct {
	MedicineID string  `json:"medicineId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	LineTotal  float64 `json:"lineTotal"`
}

/* =========================
   ADD TO CART
========================= */

func AddToCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/add"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		medicineID, err := primitive.ObjectIDFromHex(req.MedicineID)
		if err != nil {
			respondError(c, route, errBadRequest("invalid medicineId"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		session, err := db.Client().StartSession()
		if err != nil {
			respondError(c, route, errInternal("db error"))
			return
		}
		defer session.EndSession(ctx)

		// The whole read-modify-write runs in one transaction so two
		// concurrent adds by the same user cannot lose an update.
		result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			var medicine models.Medicine
			err := db.Collection("medicines").FindOne(sessCtx, bson.M{"_id": medicineID}).Decode(&medicine)
			if err == mongo.ErrNoDocuments {
				return nil, medicineNotFoundError{MedicineID: medicineID}
			}
			if err != nil {
				return nil, err
			}

			// Advisory check only; stock is not reserved until the order
			// is placed.
			if medicine.Stock < req.Quantity {
				return nil, insufficientStockError{
					MedicineID: medicineID,
					Available:  medicine.Stock,
					Requested:  req.Quantity,
				}
			}

			now := time.Now()
			var cart models.Cart
			err = db.Collection("carts").FindOne(sessCtx, bson.M{"user": userID}).Decode(&cart)
			if err == mongo.ErrNoDocuments {
				cart = models.Cart{
					User:      userID,
					Medicines: []models.CartItem{},
					CreatedAt: now,
				}
			} else if err != nil {
				return nil, err
			}

			cart.Medicines = mergeCartItem(cart.Medicines, medicineID, req.Quantity, medicine.Price)
			cart.TotalPrice = cartTotal(cart.Medicines)
			cart.UpdatedAt = now

			if cart.ID.IsZero() {
				res, err := db.Collection("carts").InsertOne(sessCtx, cart)
				if err != nil {
					return nil, err
				}
				if id, ok := res.InsertedID.(primitive.ObjectID); ok {
					cart.ID = id
				}
				return cart, nil
			}

			_, err = db.Collection("carts").UpdateByID(sessCtx, cart.ID, bson.M{"$set": bson.M{
				"medicines":  cart.Medicines,
				"totalPrice": cart.TotalPrice,
				"updatedAt":  cart.UpdatedAt,
			}})
			if err != nil {
				return nil, err
			}
			return cart, nil
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		cart := result.(models.Cart)
		log.Println("[CART] [INFO] medicine added to cart for user:", userID.Hex())
		respondData(c, http.StatusOK, "medicine added to cart", cart)
	}
}

/* =========================
   GET CART
========================= */

func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var cart models.Cart
		err = db.Collection("carts").FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
		if err == mongo.ErrNoDocuments {
			respondData(c, http.StatusOK, "", cartView{Medicines: []cartViewItem{}})
			return
		}
		if err != nil {
			log.Println("[CART] [ERROR] get failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		view, err := resolveCartView(ctx, db, cart)
		if err != nil {
			log.Println("[CART] [ERROR] resolve failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		respondData(c, http.StatusOK, "", view)
	}
}

// resolveCartView joins cart lines with medicine names for display. Prices
// come from the cart's snapshots, not the current catalog.
func resolveCartView(ctx context.Context, db *mongo.Database, cart models.Cart) (cartView, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Medicines))
	for _, item := range cart.Medicines {
		ids = append(ids, item.MedicineID)
	}

	names := map[primitive.ObjectID]string{}
	if len(ids) > 0 {
		cursor, err := db.Collection("medicines").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return cartView{}, err
		}
		defer cursor.Close(ctx)

		var medicines []models.Medicine
		if err := cursor.All(ctx, &medicines); err != nil {
			return cartView{}, err
		}
		for _, medicine := range medicines {
			names[medicine.ID] = medicine.Name
		}
	}

	view := cartView{
		ID:         cart.ID.Hex(),
		Medicines:  make([]cartViewItem, 0, len(cart.Medicines)),
		TotalPrice: cart.TotalPrice,
	}
	for _, item := range cart.Medicines {
		view.Medicines = append(view.Medicines, cartViewItem{
			MedicineID: item.MedicineID.Hex(),
			Name:       names[item.MedicineID],
			Quantity:   item.Quantity,
			Price:      item.Price,
			LineTotal:  item.Price * float64(item.Quantity),
		})
	}
	return view, nil
}

/* =========================
   REMOVE FROM CART
========================= */

func RemoveFromCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/:medicineId"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		medicineID, err := primitive.ObjectIDFromHex(c.Param("medicineId"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid medicineId"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		session, err := db.Client().StartSession()
		if err != nil {
			respondError(c, route, errInternal("db error"))
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			var cart models.Cart
			err := db.Collection("carts").FindOne(sessCtx, bson.M{"user": userID}).Decode(&cart)
			if err == mongo.ErrNoDocuments {
				return nil, errNotFound("cart not found")
			}
			if err != nil {
				return nil, err
			}

			medicines, found := removeCartItem(cart.Medicines, medicineID)
			if !found {
				return nil, errNotFound("medicine not in cart")
			}

			_, err = db.Collection("carts").UpdateByID(sessCtx, cart.ID, bson.M{"$set": bson.M{
				"medicines":  medicines,
				"totalPrice": cartTotal(medicines),
				"updatedAt":  time.Now(),
			}})
			return nil, err
		})
		if err != nil {
			respondError(c, route, err)
			return
		}

		log.Println("[CART] [INFO] medicine removed from cart for user:", userID.Hex())
		respondData(c, http.StatusOK, "medicine removed from cart", nil)
	}
}
