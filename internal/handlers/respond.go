package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

/* =========================
   ERROR TAXONOMY
========================= */

// apiError carries the HTTP status a failure maps to. Every fallible handler
// step constructs one and forwards it to respondError, the single place that
// writes the failure envelope.
type apiError struct {
	status  int
	message string
}

func (e apiError) Error() string { return e.message }

func errBadRequest(message string) apiError   { return apiError{http.StatusBadRequest, message} }
func errUnauthorized(message string) apiError { return apiError{http.StatusUnauthorized, message} }
func errForbidden(message string) apiError    { return apiError{http.StatusForbidden, message} }
func errNotFound(message string) apiError     { return apiError{http.StatusNotFound, message} }
func errConflict(message string) apiError     { return apiError{http.StatusConflict, message} }
func errInternal(message string) apiError     { return apiError{http.StatusInternalServerError, message} }

type insufficientStockError struct {
	MedicineID primitive.ObjectID
	Available  int
	Requested  int
}

func (e insufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for medicine %s: available %d, requested %d",
		e.MedicineID.Hex(), e.Available, e.Requested)
}

type medicineNotFoundError struct {
	MedicineID primitive.ObjectID
}

func (e medicineNotFoundError) Error() string {
	return "medicine not found: " + e.MedicineID.Hex()
}

/* =========================
   RESPONSE ENVELOPE
========================= */

func respondData(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, route string, err error) {
	var stockErr insufficientStockError
	if errors.As(err, &stockErr) {
		log.Printf("[%s] returning error %d: %s", route, http.StatusBadRequest, stockErr.Error())
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"message":    "insufficient stock",
			"medicineId": stockErr.MedicineID.Hex(),
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}

	var notFoundErr medicineNotFoundError
	if errors.As(err, &notFoundErr) {
		log.Printf("[%s] returning error %d: %s", route, http.StatusNotFound, notFoundErr.Error())
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"success":    false,
			"message":    "medicine not found",
			"medicineId": notFoundErr.MedicineID.Hex(),
		})
		return
	}

	var api apiError
	if errors.As(err, &api) {
		log.Printf("[%s] returning error %d: %s", route, api.status, api.message)
		c.AbortWithStatusJSON(api.status, gin.H{"success": false, "message": api.message})
		return
	}

	log.Printf("[%s] returning error 500: %v", route, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
}

func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "gt":
				details = append(details, fmt.Sprintf("%s must be greater than %s", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		log.Printf("[%s] validation failed: %v", route, details)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"details": details,
		})
		return
	}

	respondError(c, route, errBadRequest("invalid request body"))
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

/* =========================
   SHARED HELPERS
========================= */

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func authedUserID(c *gin.Context) (primitive.ObjectID, error) {
	value, ok := c.Get("userId")
	if !ok {
		return primitive.NilObjectID, errUnauthorized("unauthorized")
	}
	userID, ok := value.(primitive.ObjectID)
	if !ok || userID.IsZero() {
		return primitive.NilObjectID, errUnauthorized("unauthorized")
	}
	return userID, nil
}
