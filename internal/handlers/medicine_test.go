package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"healup/internal/models"
)

func listQueryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/medicine?"+rawQuery, nil)
	return c
}

func TestParseMedicineListQueryRanges(t *testing.T) {
	c := listQueryContext(t, "name=para&minPrice=5&maxPrice=20&minStock=1&maxStock=50&prescriptionRequired=true")

	query, err := parseMedicineListQuery(c)
	if err != nil {
		t.Fatalf("parseMedicineListQuery returned error: %v", err)
	}
	if query.Name != "para" {
		t.Fatalf("unexpected name %q", query.Name)
	}
	if query.MinPrice == nil || *query.MinPrice != 5 || query.MaxPrice == nil || *query.MaxPrice != 20 {
		t.Fatalf("unexpected price range: %+v", query)
	}
	if query.MinStock == nil || *query.MinStock != 1 || query.MaxStock == nil || *query.MaxStock != 50 {
		t.Fatalf("unexpected stock range: %+v", query)
	}
	if query.PrescriptionRequired == nil || !*query.PrescriptionRequired {
		t.Fatal("expected prescriptionRequired=true")
	}
}

func TestParseMedicineListQueryRejectsBadValues(t *testing.T) {
	for _, rawQuery := range []string{
		"minPrice=abc",
		"maxStock=-3",
		"manufacturer=zzz",
		"expiresBefore=not-a-date",
		"prescriptionRequired=maybe",
	} {
		c := listQueryContext(t, rawQuery)
		if _, err := parseMedicineListQuery(c); err == nil {
			t.Fatalf("expected error for query %q", rawQuery)
		}
	}
}

func TestParseMedicineListQueryExpiryDateOnly(t *testing.T) {
	c := listQueryContext(t, "expiresBefore=2026-12-31")

	query, err := parseMedicineListQuery(c)
	if err != nil {
		t.Fatalf("parseMedicineListQuery returned error: %v", err)
	}
	if query.ExpiresBefore == nil || query.ExpiresBefore.Year() != 2026 {
		t.Fatalf("unexpected cutoff: %+v", query.ExpiresBefore)
	}
}

func TestBuildMedicineFilter(t *testing.T) {
	minPrice := 5.0
	prescription := true
	cutoff := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	filter := buildMedicineFilter(medicineListQuery{
		Name:                 "para",
		BatchNumber:          "B-17",
		MinPrice:             &minPrice,
		ExpiresBefore:        &cutoff,
		PrescriptionRequired: &prescription,
	})

	name, ok := filter["name"].(bson.M)
	if !ok || name["$regex"] != "para" || name["$options"] != "i" {
		t.Fatalf("unexpected name filter: %+v", filter["name"])
	}
	if filter["batchNumber"] != "B-17" {
		t.Fatalf("unexpected batch filter: %+v", filter["batchNumber"])
	}
	price, ok := filter["price"].(bson.M)
	if !ok || price["$gte"] != 5.0 {
		t.Fatalf("unexpected price filter: %+v", filter["price"])
	}
	expiry, ok := filter["expiryDate"].(bson.M)
	if !ok || expiry["$lte"] != cutoff {
		t.Fatalf("unexpected expiry filter: %+v", filter["expiryDate"])
	}
	if filter["prescriptionRequired"] != true {
		t.Fatalf("unexpected prescription filter: %+v", filter["prescriptionRequired"])
	}
	if _, present := filter["brand"]; present {
		t.Fatal("brand filter should be absent when not queried")
	}
}

func TestBuildMedicineFilterEmptyQuery(t *testing.T) {
	filter := buildMedicineFilter(medicineListQuery{})
	if len(filter) != 0 {
		t.Fatalf("expected empty filter, got %+v", filter)
	}
}

func TestBuildMedicineUpdateLowercasesAndValidates(t *testing.T) {
	name := "  Panadol "
	price := 12.5
	update, err := buildMedicineUpdate(models.Medicine{}, updateMedicineRequest{
		Name:  &name,
		Price: &price,
	})
	if err != nil {
		t.Fatalf("buildMedicineUpdate returned error: %v", err)
	}
	if update["name"] != "panadol" {
		t.Fatalf("expected lowercased name, got %v", update["name"])
	}
	if update["price"] != 12.5 {
		t.Fatalf("unexpected price: %v", update["price"])
	}
}

func TestBuildMedicineUpdateRejectsBadFields(t *testing.T) {
	badPrice := 0.0
	if _, err := buildMedicineUpdate(models.Medicine{}, updateMedicineRequest{Price: &badPrice}); err == nil {
		t.Fatal("expected error for non-positive price")
	}

	badStock := -1
	if _, err := buildMedicineUpdate(models.Medicine{}, updateMedicineRequest{Stock: &badStock}); err == nil {
		t.Fatal("expected error for negative stock")
	}

	if _, err := buildMedicineUpdate(models.Medicine{}, updateMedicineRequest{}); err == nil {
		t.Fatal("expected error for empty patch")
	}
}
