package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"taquilla/src/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("movementstatus", movementStatusValidatorFunc)
		v.RegisterValidation("seatstatus", seatStatusValidatorFunc)
	}

	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = mock

	wireServices(d)
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/process-payment", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
	os.Unsetenv("MAINTENANCE_MODE")
}

func (s *TestSuite) TestProcessPayment() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should reject a status outside the transition set", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"movementId": "mov_123",
			"status":     "refunded",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/process-payment", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		sjson := string(rbytes)
		assert.False(s.T(), gjson.Get(sjson, "success").Bool())
		assert.NotEmpty(s.T(), gjson.Get(sjson, "error").String())
	})

	s.Run("Should reject a body without movementId", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/process-payment", strings.NewReader(`{"status":"paid"}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return 404 for an unknown movement", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "movements"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/process-payment", strings.NewReader(`{"movementId":"mov_missing","status":"paid"}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.False(s.T(), gjson.Get(string(rbytes), "success").Bool())
	})
}

func (s *TestSuite) TestGenerate() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should refuse to generate for a pending movement", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "movements"`).
			WillReturnRows(sqlmock.
				NewRows([]string{"id", "status", "buyer_email"}).
				AddRow("mov_123", "pending", "comprador@example.com"))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/generate", strings.NewReader(`{"movementId":"mov_123"}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 409, w.Code)
	})

	s.Run("Should return 404 for an unknown movement", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "movements"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/generate", strings.NewReader(`{"movementId":"mov_missing"}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestGenerateCodes() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should return both codes at the top level", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "tickets"`).
			WillReturnRows(sqlmock.
				NewRows([]string{"id", "zone", "row", "seat_number"}).
				AddRow("ticket_1", "Sombra", "A", 12))

		w := httptest.NewRecorder()
		body := `{"ticketId":"ticket_1","movementId":"mov_123"}`
		req, _ := http.NewRequest("POST", "/generate-codes", strings.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		sjson := string(rbytes)
		assert.True(s.T(), gjson.Get(sjson, "success").Bool())
		assert.True(s.T(), strings.HasPrefix(gjson.Get(sjson, "qrCode").String(), "data:image/jpeg;base64,"))
		assert.Equal(s.T(), "mov_123-ticket_1", gjson.Get(sjson, "barCode").String())
	})

	s.Run("Should return 404 for an unknown ticket", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "tickets"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "zone"}))

		w := httptest.NewRecorder()
		body := `{"ticketId":"ticket_missing","movementId":"mov_123"}`
		req, _ := http.NewRequest("POST", "/generate-codes", strings.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestValidateTicket() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should return 404 for an unknown ticket", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "tickets"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "zone"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/validate/ticket_does_not_exist", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.False(s.T(), gjson.Get(string(rbytes), "success").Bool())
	})

	s.Run("Should mark a ticket of a paid movement valid", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "tickets"`).
			WillReturnRows(sqlmock.
				NewRows([]string{"id", "zone", "row", "seat_number"}).
				AddRow("ticket_1", "Sombra", "A", 12))
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "movement_tickets"`).
			WillReturnRows(sqlmock.
				NewRows([]string{"movement_id", "ticket_id", "sold_price"}).
				AddRow("mov_123", "ticket_1", 350.0))
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "movements"`).
			WillReturnRows(sqlmock.
				NewRows([]string{"id", "status"}).
				AddRow("mov_123", "paid"))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/validate/ticket_1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		sjson := string(rbytes)
		assert.True(s.T(), gjson.Get(sjson, "valid").Bool())
		assert.Equal(s.T(), "ticket_1", gjson.Get(sjson, "ticketId").String())
		assert.Equal(s.T(), "Sombra", gjson.Get(sjson, "zona").String())
		assert.Equal(s.T(), "A", gjson.Get(sjson, "fila").String())
		assert.Equal(s.T(), int64(12), gjson.Get(sjson, "asiento").Int())
	})
}

func (s *TestSuite) TestDownload() {
	router := setupRouter()
	publicRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/download/not-a-real-token", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 401, w.Code)
}

func (s *TestSuite) TestSeatmapRoutes() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should reject an empty update batch", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/seatmap/la-plaza/status", strings.NewReader(`{"updates":[]}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject an unknown seat status", func() {
		w := httptest.NewRecorder()
		body := `{"updates":[{"seatId":"s1","status":"teleported"}]}`
		req, _ := http.NewRequest("POST", "/seatmap/la-plaza/status", strings.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return 404 for a missing layout", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "venue_layouts"`).
			WillReturnRows(sqlmock.NewRows([]string{"key", "document", "version"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/seatmap/no-such-venue", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestInternalRoutes() {
	os.Setenv("INTERNAL_API_SECRET", "topsecret")
	router := setupRouter()
	internalRoutes(router)

	s.Run("Should reject a request without the shared secret", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/jobs/mov_123", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should list jobs with the shared secret", func() {
		s.Mock.
			ExpectQuery(`SELECT (.+) FROM "fulfillment_jobs"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "movement_id", "status"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/jobs/mov_123", nil)
		req.Header.Set("x-secret", "topsecret")
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.True(s.T(), gjson.Get(string(rbytes), "success").Bool())
	})
	os.Unsetenv("INTERNAL_API_SECRET")
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
