package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	catalogentity "github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	catalogrepo "github.com/geoffdsims/chefpax-sub000/internal/catalog/repository"
	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
	"github.com/geoffdsims/chefpax-sub000/internal/config"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/middleware"
)

const JWTSecret = "chefpax-test-jwt-secret"

// SetupTestDB creates an isolated in-memory database per test. A single
// connection is enforced so concurrent writers serialize the same way a
// row-locked production database would.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&catalogentity.Product{},
		&catalogentity.GrowStage{},
		&entity.Order{},
		&entity.OrderItem{},
		&entity.Subscription{},
		&entity.SubscriptionItem{},
		&entity.SubscriptionCycle{},
		&entity.CapacitySlot{},
		&entity.InventoryReservation{},
		&entity.ReservationItem{},
		&entity.ProductionTask{},
		&entity.DeliveryJob{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// TestFulfillmentConfig returns the production defaults used by the
// scheduling services, pinned here so tests do not drift with config files.
func TestFulfillmentConfig() config.FulfillmentConfig {
	return config.FulfillmentConfig{
		DeliveryWeekdays:     []int{int(time.Tuesday), int(time.Thursday), int(time.Saturday)},
		CutoffDaysBefore:     2,
		CutoffHour:           18,
		MaxOrdersPerDay:      40,
		SoftCapacityRatio:    0.9,
		ReservationTTL:       24 * time.Hour,
		ValidatorBufferHours: 2,
		SlotCacheTTL:         5 * time.Minute,
		MixRatio:             0.40,
		SingleRatio:          0.50,
		BufferRatio:          0.10,
	}
}

// SetupCatalog builds a catalog service over the test database and seeds
// the default SKUs.
func SetupCatalog(t *testing.T, db *gorm.DB) *catalogsvc.CatalogService {
	t.Helper()
	catalog := catalogsvc.NewCatalogService(catalogrepo.NewProductRepository(db))
	if err := catalog.EnsureDefaultCatalog(context.Background()); err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}
	return catalog
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID: userID,
		Name:   name,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "chefpax",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			ID:        fmt.Sprintf("test-jti-%d", now.UnixNano()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default ops test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Ops", []string{"ops"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON envelope body
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
