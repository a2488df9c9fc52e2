package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func recordError(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, "TEST", err)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return w, body
}

func TestRespondErrorMapsAPIErrorStatus(t *testing.T) {
	w, body := recordError(t, errConflict("medicine already exists"))
	if w.Code != 409 {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if body["success"] != false || body["message"] != "medicine already exists" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRespondErrorInsufficientStockCarriesDetails(t *testing.T) {
	medicineID := primitive.NewObjectID()
	w, body := recordError(t, insufficientStockError{
		MedicineID: medicineID,
		Available:  1,
		Requested:  3,
	})

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if body["medicineId"] != medicineID.Hex() {
		t.Fatalf("expected medicineId in body, got %v", body)
	}
	if body["available"] != float64(1) || body["requested"] != float64(3) {
		t.Fatalf("expected stock detail in body, got %v", body)
	}
}

func TestRespondErrorMedicineNotFoundIs404(t *testing.T) {
	w, _ := recordError(t, medicineNotFoundError{MedicineID: primitive.NewObjectID()})
	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRespondErrorUnknownErrorIs500(t *testing.T) {
	w, body := recordError(t, errors.New("boom"))
	if w.Code != 500 {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body["message"] != "internal server error" {
		t.Fatalf("internal detail must not leak, got %v", body)
	}
}

func TestParsePaginationParams(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	if err != nil || page != 1 || limit != 20 {
		t.Fatalf("unexpected defaults: %d %d %v", page, limit, err)
	}

	page, limit, err = parsePaginationParams("3", "50")
	if err != nil || page != 3 || limit != 50 {
		t.Fatalf("unexpected values: %d %d %v", page, limit, err)
	}

	if _, _, err := parsePaginationParams("0", "10"); err == nil {
		t.Fatal("expected error for page=0")
	}
	if _, _, err := parsePaginationParams("1", "nope"); err == nil {
		t.Fatal("expected error for non-numeric limit")
	}
}
