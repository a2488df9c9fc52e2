package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"healup/internal/metrics"
	"healup/internal/models"
)

/* =========================
   REQUEST DTOs
========================= */

type orderItemRequest struct {
	MedicineID string `json:"medicineId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

type shippingAddressRequest struct {
	FullName   string `json:"fullName" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type createOrderRequest struct {
	Medicines       []orderItemRequest     `json:"medicines" binding:"required,min=1,dive"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress" binding:"required"`
}

type updateOrderRequest struct {
	Medicines       *[]orderItemRequest     `json:"medicines"`
	Status          *string                 `json:"status"`
	PaymentMethod   *string                 `json:"paymentMethod"`
	IsPaid          *bool                   `json:"isPaid"`
	ShippingAddress *shippingAddressRequest `json:"shippingAddress"`
}

// orderView is the list/detail display shape with medicine names resolved.
type orderView struct {
	models.Order
	MedicineNames map[string]string `json:"medicineNames,omitempty"`
}

/* =========================
   BUILD ORDER
========================= */

// newOrderFromRequest validates the request shape and produces an unpriced
// order skeleton. Prices and the total are filled in from the catalog inside
// the placement transaction.
func newOrderFromRequest(req createOrderRequest, customer primitive.ObjectID) (models.Order, error) {
	paymentMethod, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return models.Order{}, errBadRequest("invalid payment method")
	}

	address, err := shippingAddressFromRequest(req.ShippingAddress)
	if err != nil {
		return models.Order{}, err
	}

	items, err := orderItemsFromRequest(req.Medicines)
	if err != nil {
		return models.Order{}, err
	}

	now := time.Now()
	return models.Order{
		Customer:        customer,
		Medicines:       items,
		Status:          models.OrderPending,
		PaymentMethod:   paymentMethod,
		IsPaid:          false,
		ShippingAddress: address,
		CreatedBy:       customer,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func orderItemsFromRequest(requested []orderItemRequest) ([]models.OrderItem, error) {
	if len(requested) == 0 {
		return nil, errBadRequest("at least one medicine is required")
	}

	items := make([]models.OrderItem, 0, len(requested))
	seen := map[primitive.ObjectID]struct{}{}
	for _, item := range requested {
		medicineID, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.MedicineID))
		if err != nil {
			return nil, errBadRequest("invalid medicineId")
		}
		if item.Quantity <= 0 {
			return nil, errBadRequest("quantity must be greater than zero")
		}
		if _, dup := seen[medicineID]; dup {
			return nil, errBadRequest("duplicate medicineId: " + medicineID.Hex())
		}
		seen[medicineID] = struct{}{}
		items = append(items, models.OrderItem{
			MedicineID: medicineID,
			Quantity:   item.Quantity,
		})
	}
	return items, nil
}

func shippingAddressFromRequest(req shippingAddressRequest) (models.ShippingAddress, error) {
	address := models.ShippingAddress{
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.TrimSpace(req.Country),
	}
	if address.FullName == "" || address.Phone == "" || address.Address == "" {
		return models.ShippingAddress{}, errBadRequest("shippingAddress requires fullName, phone and address")
	}
	return address, nil
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(db *mongo.Database, m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /order"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondError(c, route, apiError{http.StatusServiceUnavailable, "database unavailable"})
			return
		}

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			m.OrdersFailed.WithLabelValues("invalid_input").Inc()
			respondValidationError(c, route, err)
			return
		}

		order, err := newOrderFromRequest(req, userID)
		if err != nil {
			m.OrdersFailed.WithLabelValues("invalid_input").Inc()
			respondError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		session, err := db.Client().StartSession()
		if err != nil {
			m.OrdersFailed.WithLabelValues("db_error").Inc()
			respondError(c, route, errInternal("db error"))
			return
		}
		defer session.EndSession(ctx)

		var orderID primitive.ObjectID
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			pricedItems := make([]models.OrderItem, 0, len(order.Medicines))

			for _, item := range order.Medicines {
				var medicine models.Medicine
				err := db.Collection("medicines").FindOne(sessCtx, bson.M{"_id": item.MedicineID}).Decode(&medicine)
				if err == mongo.ErrNoDocuments {
					return nil, medicineNotFoundError{MedicineID: item.MedicineID}
				}
				if err != nil {
					return nil, err
				}

				if medicine.Stock < item.Quantity {
					return nil, insufficientStockError{
						MedicineID: item.MedicineID,
						Available:  medicine.Stock,
						Requested:  item.Quantity,
					}
				}

				pricedItems = append(pricedItems, models.OrderItem{
					MedicineID: item.MedicineID,
					Quantity:   item.Quantity,
					Price:      medicine.Price,
				})

				// Conditional decrement: the floor guard keeps stock from
				// going negative even if another order slipped in between
				// the read and this write.
				filter := bson.M{
					"_id":   item.MedicineID,
					"stock": bson.M{"$gte": item.Quantity},
				}
				update := bson.M{"$inc": bson.M{"stock": -item.Quantity}}

				res, err := db.Collection("medicines").UpdateOne(sessCtx, filter, update)
				if err != nil {
					return nil, err
				}
				if res.MatchedCount == 0 {
					return nil, insufficientStockError{
						MedicineID: item.MedicineID,
						Available:  medicine.Stock,
						Requested:  item.Quantity,
					}
				}
			}

			order.Medicines = pricedItems
			order.TotalPrice = orderTotal(pricedItems)

			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			if id, ok := res.InsertedID.(primitive.ObjectID); ok {
				orderID = id
			}
			return nil, nil
		})
		if err != nil {
			m.OrdersFailed.WithLabelValues(orderFailureReason(err)).Inc()
			respondError(c, route, err)
			return
		}

		order.ID = orderID
		m.OrdersPlaced.Inc()
		log.Println("[ORDER] [INFO] order created for user:", userID.Hex())
		respondData(c, http.StatusCreated, "order created successfully", order)
	}
}

func orderFailureReason(err error) string {
	switch err.(type) {
	case insufficientStockError:
		return "insufficient_stock"
	case medicineNotFoundError:
		return "not_found"
	case apiError:
		return "invalid_input"
	default:
		return "db_error"
	}
}

/* =========================
   UPDATE ORDER
========================= */

func UpdateOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /order/:id"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid id"))
			return
		}

		var req updateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Order
		err = db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errNotFound("order not found"))
			return
		}
		if err != nil {
			log.Println("[ORDER] [ERROR] update lookup failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		set := bson.M{}

		if req.Status != nil {
			status, err := models.ParseOrderStatus(*req.Status)
			if err != nil {
				respondError(c, route, errBadRequest("invalid order status"))
				return
			}
			set["status"] = status
		}
		if req.PaymentMethod != nil {
			paymentMethod, err := models.ParsePaymentMethod(*req.PaymentMethod)
			if err != nil {
				respondError(c, route, errBadRequest("invalid payment method"))
				return
			}
			set["paymentMethod"] = paymentMethod
		}
		if req.IsPaid != nil {
			set["isPaid"] = *req.IsPaid
		}
		if req.ShippingAddress != nil {
			address, err := shippingAddressFromRequest(*req.ShippingAddress)
			if err != nil {
				respondError(c, route, err)
				return
			}
			set["shippingAddress"] = address
		}

		if req.Medicines != nil {
			// A replaced medicines list is re-priced from the current
			// catalog, unlike creation-time snapshots. Stock is not
			// adjusted here.
			items, err := orderItemsFromRequest(*req.Medicines)
			if err != nil {
				respondError(c, route, err)
				return
			}

			priced := make([]models.OrderItem, 0, len(items))
			for _, item := range items {
				var medicine models.Medicine
				err := db.Collection("medicines").FindOne(ctx, bson.M{"_id": item.MedicineID}).Decode(&medicine)
				if err == mongo.ErrNoDocuments {
					respondError(c, route, medicineNotFoundError{MedicineID: item.MedicineID})
					return
				}
				if err != nil {
					log.Println("[ORDER] [ERROR] update medicine lookup failed:", err)
					respondError(c, route, errInternal("db error"))
					return
				}
				priced = append(priced, models.OrderItem{
					MedicineID: item.MedicineID,
					Quantity:   item.Quantity,
					Price:      medicine.Price,
				})
			}
			set["medicines"] = priced
			set["totalPrice"] = orderTotal(priced)
		}

		if len(set) == 0 {
			respondError(c, route, errBadRequest("no fields to update"))
			return
		}
		set["updatedAt"] = time.Now()

		var updated models.Order
		err = db.Collection("orders").FindOneAndUpdate(ctx,
			bson.M{"_id": orderID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			log.Println("[ORDER] [ERROR] update failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		log.Println("[ORDER] [INFO] order updated:", orderID.Hex())
		respondData(c, http.StatusOK, "order updated successfully", updated)
	}
}

/* =========================
   READ
========================= */

func GetOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /order/:id"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid id"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err = db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errNotFound("order not found"))
			return
		}
		if err != nil {
			log.Println("[ORDER] [ERROR] get failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		if callerRole(c) == models.RoleUser && order.Customer != userID {
			respondError(c, route, errForbidden("forbidden"))
			return
		}

		views, err := resolveOrderViews(ctx, db, []models.Order{order})
		if err != nil {
			log.Println("[ORDER] [ERROR] resolve failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		respondData(c, http.StatusOK, "order fetched successfully", views[0])
	}
}

func ListOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /order"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		// Plain users only see their own orders.
		filter := bson.M{}
		if callerRole(c) == models.RoleUser {
			filter["customer"] = userID
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("orders").Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			log.Println("[ORDER] [ERROR] list failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		defer cursor.Close(ctx)

		var orders []models.Order
		if err := cursor.All(ctx, &orders); err != nil {
			log.Println("[ORDER] [ERROR] decode failed:", err)
			respondError(c, route, errInternal("decode error"))
			return
		}

		views, err := resolveOrderViews(ctx, db, orders)
		if err != nil {
			log.Println("[ORDER] [ERROR] resolve failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		respondData(c, http.StatusOK, "orders fetched successfully", views)
	}
}

// resolveOrderViews attaches a medicineId -> name map to each order so
// clients can render line items without extra lookups.
func resolveOrderViews(ctx context.Context, db *mongo.Database, orders []models.Order) ([]orderView, error) {
	idSet := map[primitive.ObjectID]struct{}{}
	for _, order := range orders {
		for _, item := range order.Medicines {
			idSet[item.MedicineID] = struct{}{}
		}
	}

	names := map[primitive.ObjectID]string{}
	if len(idSet) > 0 {
		ids := make([]primitive.ObjectID, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		cursor, err := db.Collection("medicines").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var medicines []models.Medicine
		if err := cursor.All(ctx, &medicines); err != nil {
			return nil, err
		}
		for _, medicine := range medicines {
			names[medicine.ID] = medicine.Name
		}
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		view := orderView{Order: order, MedicineNames: map[string]string{}}
		for _, item := range order.Medicines {
			if name, ok := names[item.MedicineID]; ok {
				view.MedicineNames[item.MedicineID.Hex()] = name
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func callerRole(c *gin.Context) models.Role {
	if value, ok := c.Get("role"); ok {
		if role, ok := value.(models.Role); ok {
			return role
		}
	}
	return models.RoleUser
}

/* =========================
   DELETE
========================= */

func DeleteOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /order/:id"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid id"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("orders").DeleteOne(ctx, bson.M{"_id": orderID})
		if err != nil {
			log.Println("[ORDER] [ERROR] delete failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		if result.DeletedCount == 0 {
			respondError(c, route, errNotFound("order not found"))
			return
		}

		log.Println("[ORDER] [INFO] order deleted:", orderID.Hex())
		respondData(c, http.StatusOK, "order deleted successfully", nil)
	}
}
