package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"healup/internal/models"
)

/* =========================
   REQUEST DTOs
========================= */

type createMedicineRequest struct {
	Name                 string    `json:"name" binding:"required"`
	Brand                string    `json:"brand" binding:"required"`
	Category             string    `json:"category" binding:"required"`
	Price                float64   `json:"price" binding:"required,gt=0"`
	Stock                int       `json:"stock" binding:"gte=0"`
	ExpiryDate           time.Time `json:"expiryDate" binding:"required"`
	Manufacturer         string    `json:"manufacturer"`
	BatchNumber          string    `json:"batchNumber" binding:"required"`
	Dosage               string    `json:"dosage" binding:"required"`
	PrescriptionRequired bool      `json:"prescriptionRequired"`
	Description          string    `json:"description"`
	ImageURL             string    `json:"imageUrl"`
}

type updateMedicineRequest struct {
	Name                 *string    `json:"name"`
	Brand                *string    `json:"brand"`
	Category             *string    `json:"category"`
	Price                *float64   `json:"price"`
	Stock                *int       `json:"stock"`
	ExpiryDate           *time.Time `json:"expiryDate"`
	Manufacturer         *string    `json:"manufacturer"`
	BatchNumber          *string    `json:"batchNumber"`
	Dosage               *string    `json:"dosage"`
	PrescriptionRequired *bool      `json:"prescriptionRequired"`
	Description          *string    `json:"description"`
	ImageURL             *string    `json:"imageUrl"`
}

/* =========================
   CREATE
========================= */

func CreateMedicine(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /medicine"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		var req createMedicineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		name := strings.ToLower(strings.TrimSpace(req.Name))
		brand := strings.ToLower(strings.TrimSpace(req.Brand))
		batch := strings.TrimSpace(req.BatchNumber)

		var manufacturer *primitive.ObjectID
		if raw := strings.TrimSpace(req.Manufacturer); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				respondError(c, route, errBadRequest("invalid manufacturer id"))
				return
			}
			manufacturer = &id
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("medicines").CountDocuments(ctx, bson.M{
			"name":        name,
			"brand":       brand,
			"batchNumber": batch,
		})
		if err != nil {
			log.Println("[MEDICINE] [ERROR] duplicate check failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		if count > 0 {
			respondError(c, route, errConflict("medicine already exists"))
			return
		}

		now := time.Now()
		medicine := models.Medicine{
			Name:                 name,
			Brand:                brand,
			Category:             strings.TrimSpace(req.Category),
			Price:                req.Price,
			Stock:                req.Stock,
			ExpiryDate:           req.ExpiryDate,
			Manufacturer:         manufacturer,
			BatchNumber:          batch,
			Dosage:               strings.TrimSpace(req.Dosage),
			PrescriptionRequired: req.PrescriptionRequired,
			Description:          strings.TrimSpace(req.Description),
			ImageURL:             strings.TrimSpace(req.ImageURL),
			CreatedBy:            userID,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		res, err := db.Collection("medicines").InsertOne(ctx, medicine)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondError(c, route, errConflict("medicine already exists"))
				return
			}
			log.Println("[MEDICINE] [ERROR] insert failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			medicine.ID = id
		}

		log.Println("[MEDICINE] [INFO] medicine created:", medicine.Name)
		respondData(c, http.StatusCreated, "medicine created successfully", medicine)
	}
}

/* =========================
   UPDATE
========================= */

func UpdateMedicine(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /medicine/:id"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		medicineID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid id"))
			return
		}

		var req updateMedicineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Medicine
		err = db.Collection("medicines").FindOne(ctx, bson.M{"_id": medicineID}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errNotFound("medicine not found"))
			return
		}
		if err != nil {
			log.Println("[MEDICINE] [ERROR] update lookup failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		set, err := buildMedicineUpdate(existing, req)
		if err != nil {
			respondError(c, route, err)
			return
		}

		// Re-check (name, brand, batchNumber) uniqueness when any of the
		// three changes.
		name, _ := set["name"].(string)
		brand, _ := set["brand"].(string)
		batch, _ := set["batchNumber"].(string)
		if name == "" {
			name = existing.Name
		}
		if brand == "" {
			brand = existing.Brand
		}
		if batch == "" {
			batch = existing.BatchNumber
		}
		if name != existing.Name || brand != existing.Brand || batch != existing.BatchNumber {
			count, err := db.Collection("medicines").CountDocuments(ctx, bson.M{
				"name":        name,
				"brand":       brand,
				"batchNumber": batch,
				"_id":         bson.M{"$ne": medicineID},
			})
			if err != nil {
				log.Println("[MEDICINE] [ERROR] duplicate check failed:", err)
				respondError(c, route, errInternal("db error"))
				return
			}
			if count > 0 {
				respondError(c, route, errConflict("medicine already exists"))
				return
			}
		}

		set["updatedBy"] = userID
		set["updatedAt"] = time.Now()

		var updated models.Medicine
		err = db.Collection("medicines").FindOneAndUpdate(ctx,
			bson.M{"_id": medicineID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			log.Println("[MEDICINE] [ERROR] update failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		log.Println("[MEDICINE] [INFO] medicine updated:", updated.Name)
		respondData(c, http.StatusOK, "medicine updated successfully", updated)
	}
}

// buildMedicineUpdate translates the pointer-field patch into a $set document,
// validating field constraints along the way.
func buildMedicineUpdate(existing models.Medicine, req updateMedicineRequest) (bson.M, error) {
	set := bson.M{}

	if req.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*req.Name))
		if name == "" {
			return nil, errBadRequest("name must not be empty")
		}
		set["name"] = name
	}
	if req.Brand != nil {
		brand := strings.ToLower(strings.TrimSpace(*req.Brand))
		if brand == "" {
			return nil, errBadRequest("brand must not be empty")
		}
		set["brand"] = brand
	}
	if req.Category != nil {
		set["category"] = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, errBadRequest("price must be greater than 0")
		}
		set["price"] = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, errBadRequest("stock must not be negative")
		}
		set["stock"] = *req.Stock
	}
	if req.ExpiryDate != nil {
		set["expiryDate"] = *req.ExpiryDate
	}
	if req.Manufacturer != nil {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(*req.Manufacturer))
		if err != nil {
			return nil, errBadRequest("invalid manufacturer id")
		}
		set["manufacturer"] = id
	}
	if req.BatchNumber != nil {
		batch := strings.TrimSpace(*req.BatchNumber)
		if batch == "" {
			return nil, errBadRequest("batchNumber must not be empty")
		}
		set["batchNumber"] = batch
	}
	if req.Dosage != nil {
		set["dosage"] = strings.TrimSpace(*req.Dosage)
	}
	if req.PrescriptionRequired != nil {
		set["prescriptionRequired"] = *req.PrescriptionRequired
	}
	if req.Description != nil {
		set["description"] = strings.TrimSpace(*req.Description)
	}
	if req.ImageURL != nil {
		set["imageUrl"] = strings.TrimSpace(*req.ImageURL)
	}

	if len(set) == 0 {
		return nil, errBadRequest("no fields to update")
	}
	return set, nil
}

/* =========================
   READ
========================= */

func GetMedicine(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /medicine/:id"
		defer handlePanic(c, route)

		medicineID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid id"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var medicine models.Medicine
		err = db.Collection("medicines").FindOne(ctx, bson.M{"_id": medicineID}).Decode(&medicine)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errNotFound("medicine not found"))
			return
		}
		if err != nil {
			log.Println("[MEDICINE] [ERROR] get failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		respondData(c, http.StatusOK, "medicine fetched successfully", medicine)
	}
}

func ListMedicines(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /medicine"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondError(c, route, apiError{http.StatusServiceUnavailable, "database unavailable"})
			return
		}

		query, err := parseMedicineListQuery(c)
		if err != nil {
			respondError(c, route, err)
			return
		}
		filter := buildMedicineFilter(query)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid pagination params"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("medicines").CountDocuments(ctx, filter)
		if err != nil {
			log.Println("[MEDICINE] [ERROR] count failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(limit)))
		}

		opts := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("medicines").Find(ctx, filter, opts)
		if err != nil {
			log.Println("[MEDICINE] [ERROR] find failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		defer cursor.Close(ctx)

		medicines := []models.Medicine{}
		if err := cursor.All(ctx, &medicines); err != nil {
			log.Println("[MEDICINE] [ERROR] decode failed:", err)
			respondError(c, route, errInternal("decode error"))
			return
		}

		log.Printf("[%s] returning %d medicines", route, len(medicines))
		respondData(c, http.StatusOK, "medicines fetched successfully", gin.H{
			"medicines": medicines,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

/* =========================
   DELETE
========================= */

func DeleteMedicine(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /medicine/:id"
		defer handlePanic(c, route)

		medicineID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, route, errBadRequest("invalid id"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("medicines").DeleteOne(ctx, bson.M{"_id": medicineID})
		if err != nil {
			log.Println("[MEDICINE] [ERROR] delete failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		if result.DeletedCount == 0 {
			respondError(c, route, errNotFound("medicine not found"))
			return
		}

		log.Println("[MEDICINE] [INFO] medicine deleted:", medicineID.Hex())
		respondData(c, http.StatusOK, "medicine deleted successfully", nil)
	}
}

/* =========================
   LIST QUERY / FILTER
========================= */

type medicineListQuery struct {
	Name                 string
	Brand                string
	Category             string
	Manufacturer         *primitive.ObjectID
	BatchNumber          string
	Dosage               string
	MinPrice             *float64
	MaxPrice             *float64
	MinStock             *int64
	MaxStock             *int64
	ExpiresBefore        *time.Time
	PrescriptionRequired *bool
}

func parseMedicineListQuery(c *gin.Context) (medicineListQuery, error) {
	query := medicineListQuery{
		Name:        strings.TrimSpace(c.Query("name")),
		Brand:       strings.TrimSpace(c.Query("brand")),
		Category:    strings.TrimSpace(c.Query("category")),
		BatchNumber: strings.TrimSpace(c.Query("batchNumber")),
		Dosage:      strings.TrimSpace(c.Query("dosage")),
	}

	if raw := strings.TrimSpace(c.Query("manufacturer")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return medicineListQuery{}, errBadRequest("invalid manufacturer id")
		}
		query.Manufacturer = &id
	}

	var parseErr error
	parseFloat := func(key string) *float64 {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			return nil
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 {
			parseErr = errBadRequest("invalid " + key)
			return nil
		}
		return &value
	}
	parseInt := func(key string) *int64 {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			return nil
		}
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value < 0 {
			parseErr = errBadRequest("invalid " + key)
			return nil
		}
		return &value
	}

	query.MinPrice = parseFloat("minPrice")
	query.MaxPrice = parseFloat("maxPrice")
	query.MinStock = parseInt("minStock")
	query.MaxStock = parseInt("maxStock")
	if parseErr != nil {
		return medicineListQuery{}, parseErr
	}

	if raw := strings.TrimSpace(c.Query("expiresBefore")); raw != "" {
		cutoff, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			cutoff, err = time.Parse("2006-01-02", raw)
		}
		if err != nil {
			return medicineListQuery{}, errBadRequest("invalid expiresBefore")
		}
		query.ExpiresBefore = &cutoff
	}

	if raw := strings.TrimSpace(c.Query("prescriptionRequired")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return medicineListQuery{}, errBadRequest("invalid prescriptionRequired")
		}
		query.PrescriptionRequired = &value
	}

	return query, nil
}

func buildMedicineFilter(query medicineListQuery) bson.M {
	filter := bson.M{}

	if query.Name != "" {
		filter["name"] = bson.M{"$regex": query.Name, "$options": "i"}
	}
	if query.Brand != "" {
		filter["brand"] = bson.M{"$regex": query.Brand, "$options": "i"}
	}
	if query.Category != "" {
		filter["category"] = bson.M{"$regex": query.Category, "$options": "i"}
	}
	if query.BatchNumber != "" {
		filter["batchNumber"] = query.BatchNumber
	}
	if query.Dosage != "" {
		filter["dosage"] = query.Dosage
	}
	if query.Manufacturer != nil {
		filter["manufacturer"] = *query.Manufacturer
	}

	price := bson.M{}
	if query.MinPrice != nil {
		price["$gte"] = *query.MinPrice
	}
	if query.MaxPrice != nil {
		price["$lte"] = *query.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	stock := bson.M{}
	if query.MinStock != nil {
		stock["$gte"] = *query.MinStock
	}
	if query.MaxStock != nil {
		stock["$lte"] = *query.MaxStock
	}
	if len(stock) > 0 {
		filter["stock"] = stock
	}

	if query.ExpiresBefore != nil {
		filter["expiryDate"] = bson.M{"$lte": *query.ExpiresBefore}
	}
	if query.PrescriptionRequired != nil {
		filter["prescriptionRequired"] = *query.PrescriptionRequired
	}

	return filter
}
