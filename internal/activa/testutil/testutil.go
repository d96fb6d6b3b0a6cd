package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "activa-test-jwt-secret"

// SetupTestDB creates an isolated in-memory sqlite database with all tables
// migrated. Each test gets its own database, cleaned up automatically.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique shared-cache name so every pooled connection sees the same
	// in-memory database, isolated per test.
	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared", uuid.New().String()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&entity.ActivatePhase{},
		&entity.ActivityTemplate{},
		&entity.TaskStatus{},
		&entity.Project{},
		&entity.ProjectPhase{},
		&entity.Task{},
		&entity.Note{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	return db
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
func GenerateTestToken(userID, name, email string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"iss":   "activa",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default admin test user
func DefaultTestToken() string {
	return GenerateTestToken(
		"test-user-001",
		"Test Admin",
		"admin@test.com",
		[]string{"admin"},
	)
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

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedPhaseCatalog creates the standard six-phase catalog used by tests
func SeedPhaseCatalog(t *testing.T, db *gorm.DB) []entity.ActivatePhase {
	t.Helper()
	phases := []entity.ActivatePhase{
		{PhaseKey: "discover", Name: "Discover", SortOrder: 1, WeightPercent: 10},
		{PhaseKey: "prepare", Name: "Prepare", SortOrder: 2, WeightPercent: 15},
		{PhaseKey: "explore", Name: "Explore", SortOrder: 3, WeightPercent: 20},
		{PhaseKey: "realize", Name: "Realize", SortOrder: 4, WeightPercent: 35},
		{PhaseKey: "deploy", Name: "Deploy", SortOrder: 5, WeightPercent: 10},
		{PhaseKey: "run", Name: "Run", SortOrder: 6, WeightPercent: 10},
	}
	for i := range phases {
		phases[i].ID = uuid.New().String()[:32]
		phases[i].CreatedAt = time.Now()
		if err := db.Create(&phases[i]).Error; err != nil {
			t.Fatalf("Failed to seed phase catalog: %v", err)
		}
	}
	return phases
}

// SeedStatusCatalog creates the standard board columns used by tests
func SeedStatusCatalog(t *testing.T, db *gorm.DB) []entity.TaskStatus {
	t.Helper()
	statuses := []entity.TaskStatus{
		{Code: entity.StatusCodeTodo, Name: "Por hacer", OrderIndex: 1},
		{Code: entity.StatusCodeInProgress, Name: "En progreso", OrderIndex: 2},
		{Code: entity.StatusCodeBlocked, Name: "Bloqueado", OrderIndex: 3},
		{Code: entity.StatusCodeInReview, Name: "En revisión", OrderIndex: 4},
		{Code: entity.StatusCodeDone, Name: "Completado", OrderIndex: 5},
	}
	for i := range statuses {
		statuses[i].ID = uuid.New().String()[:32]
		statuses[i].IsActive = true
		statuses[i].CreatedAt = time.Now()
		if err := db.Create(&statuses[i]).Error; err != nil {
			t.Fatalf("Failed to seed status catalog: %v", err)
		}
	}
	return statuses
}

// SeedProject creates a test project with the given date range
func SeedProject(t *testing.T, db *gorm.DB, name string, start, end *time.Time) *entity.Project {
	t.Helper()
	project := &entity.Project{
		ID:        uuid.New().String()[:32],
		Code:      "PRJ-" + uuid.New().String()[:8],
		Name:      name,
		Status:    entity.ProjectStatusPlanning,
		ManagerID: "test-user-001",
		StartDate: start,
		EndDate:   end,
		CreatedBy: "test-user-001",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("Failed to seed test project: %v", err)
	}
	return project
}

// SeedTask creates a test task in the given status
func SeedTask(t *testing.T, db *gorm.DB, projectID, title, statusID string) *entity.Task {
	t.Helper()
	task := &entity.Task{
		ID:        uuid.New().String()[:32],
		ProjectID: projectID,
		Title:     title,
		StatusID:  statusID,
		Priority:  entity.TaskPriorityMedium,
		CreatedBy: "test-user-001",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to seed test task: %v", err)
	}
	return task
}

// Date builds a UTC midnight date for test fixtures
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date returning a pointer
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}
