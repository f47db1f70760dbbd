package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/events"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/router"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/pixelpanic/pixel-panic-api/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// BookingAcceptanceTestSuite drives a repair booking end to end through the HTTP API
type BookingAcceptanceTestSuite struct {
	suite.Suite
	server    *httptest.Server
	db        *gorm.DB
	publisher *events.RecordingPublisher
	admin     *models.User
}

// SetupTest builds a fresh application for every test
func (suite *BookingAcceptanceTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	t := suite.T()

	suite.db = testutil.NewTestDB(t)
	suite.publisher = events.NewRecordingPublisher()
	suite.admin = testutil.CreateUser(t, suite.db, models.RoleAdmin)

	engine, err := router.Setup(router.Deps{
		Config:    testutil.TestConfig(),
		DB:        suite.db,
		Logger:    zerolog.Nop(),
		SMS:       services.NewStubSMSProvider(zerolog.Nop()),
		Throttle:  services.NewMemoryThrottle(),
		Publisher: suite.publisher,
		Store:     services.NewMockS3Service(),
	})
	suite.Require().NoError(err)
	suite.server = httptest.NewServer(engine)
}

// TearDownTest stops the server
func (suite *BookingAcceptanceTestSuite) TearDownTest() {
	suite.server.Close()
}

type apiResponse struct {
	Status  int
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Error   map[string]interface{} `json:"error"`
}

// makeRequest sends body as JSON, authenticating with a bearer token when given
func (suite *BookingAcceptanceTestSuite) makeRequest(client *http.Client, method, path, token string, body interface{}) apiResponse {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, suite.server.URL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if client == nil {
		client = suite.server.Client()
	}
	resp, err := client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (suite *BookingAcceptanceTestSuite) decode(raw json.RawMessage, v interface{}) {
	suite.Require().NoError(json.Unmarshal(raw, v))
}

func (suite *BookingAcceptanceTestSuite) adminToken() string {
	return testutil.MintToken(suite.T(), suite.admin.ID, models.RoleAdmin, time.Hour)
}

// login signs a phone number in through the OTP flow and returns a client
// holding the session cookie
func (suite *BookingAcceptanceTestSuite) login(phone string) (*http.Client, string) {
	jar, err := cookiejar.New(nil)
	suite.Require().NoError(err)
	client := &http.Client{Jar: jar}

	resp := suite.makeRequest(client, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"phone_number": phone})
	suite.Require().Equal(http.StatusOK, resp.Status)
	var sent struct {
		VerificationID string `json:"verification_id"`
	}
	suite.decode(resp.Data, &sent)

	resp = suite.makeRequest(client, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"phone_number":    phone,
		"otp_code":        services.StubOTPCode,
		"verification_id": sent.VerificationID,
	})
	suite.Require().Equal(http.StatusOK, resp.Status)
	var session struct {
		User models.User `json:"user"`
	}
	suite.decode(resp.Data, &session)
	return client, session.User.ID
}

func (suite *BookingAcceptanceTestSuite) seedCatalog() (brandID, modelID, issueID uint) {
	token := suite.adminToken()

	resp := suite.makeRequest(nil, http.MethodPost, "/api/admin/brands", token, map[string]string{"name": "Samsung"})
	suite.Require().Equal(http.StatusCreated, resp.Status)
	var brand models.Brand
	suite.decode(resp.Data, &brand)

	resp = suite.makeRequest(nil, http.MethodPost, "/api/admin/issues", token, map[string]string{"name": "Screen Replacement"})
	suite.Require().Equal(http.StatusCreated, resp.Status)
	var issue models.Issue
	suite.decode(resp.Data, &issue)

	resp = suite.makeRequest(nil, http.MethodPost, "/api/admin/models", token, map[string]interface{}{
		"brand_id": brand.ID,
		"name":     "Galaxy S21",
		"issues": []map[string]interface{}{
			{"issue_id": issue.ID, "price_original": "1000", "price_aftermarket": "600"},
		},
	})
	suite.Require().Equal(http.StatusCreated, resp.Status, resp.Error)
	var model models.DeviceModel
	suite.decode(resp.Data, &model)

	return brand.ID, model.ID, issue.ID
}

func (suite *BookingAcceptanceTestSuite) checkoutBody(modelID, issueID uint, coupon string) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"model_id": modelID, "issue_id": issueID, "grade": "OEM", "price": "1000"},
		},
		"address": map[string]interface{}{
			"full_name":       "Asha Rao",
			"phone_number":    "9876543210",
			"flat_and_street": "12 MG Road, Indiranagar",
			"pincode":         "560038",
		},
		"service_mode": "doorstep",
		"time_slot":    "10:00-12:00",
		"coupon_code":  coupon,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// TestFullRepairLifecycle books, assigns, starts and completes a repair
func (suite *BookingAcceptanceTestSuite) TestFullRepairLifecycle() {
	_, modelID, issueID := suite.seedCatalog()
	admin := suite.adminToken()

	resp := suite.makeRequest(nil, http.MethodPost, "/api/admin/coupons", admin, map[string]interface{}{
		"code":        "save10",
		"name":        "Ten percent off",
		"type":        "percentage",
		"value":       "10",
		"valid_from":  time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"valid_until": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	suite.Require().Equal(http.StatusCreated, resp.Status, resp.Error)

	// anonymous preview
	resp = suite.makeRequest(nil, http.MethodPost, "/api/checkout/validate-coupon-public", "", map[string]interface{}{
		"code": "SAVE10", "order_amount": "1000", "service_mode": "doorstep",
	})
	suite.Require().Equal(http.StatusOK, resp.Status)
	var preview services.CouponResult
	suite.decode(resp.Data, &preview)
	suite.True(preview.Valid)
	suite.True(dec("100").Equal(preview.DiscountAmount))

	customer, customerID := suite.login("+91 98765 00001")

	resp = suite.makeRequest(customer, http.MethodPost, "/api/checkout/create-order", "", suite.checkoutBody(modelID, issueID, "SAVE10"))
	suite.Require().Equal(http.StatusCreated, resp.Status, resp.Error)
	var created services.CreateOrderResult
	suite.decode(resp.Data, &created)
	suite.Equal(models.OrderConfirmed, created.Status)
	suite.True(dec("100").Equal(created.DiscountAmount))
	suite.True(dec("900").Equal(created.TotalAmount))

	orderPath := fmt.Sprintf("/api/orders/%d", created.OrderID)
	resp = suite.makeRequest(customer, http.MethodGet, orderPath, "", nil)
	suite.Require().Equal(http.StatusOK, resp.Status)
	var mine services.CustomerOrder
	suite.decode(resp.Data, &mine)
	suite.Require().Len(mine.Items, 1)
	suite.Equal("Samsung Galaxy S21", mine.Items[0].ModelName)
	suite.Nil(mine.CompletionCode, "no code before assignment")

	// technician onboarding
	resp = suite.makeRequest(nil, http.MethodPost, "/api/admin/technicians", admin, map[string]interface{}{
		"phone_number": "9811100002", "name": "Ravi",
	})
	suite.Require().Equal(http.StatusCreated, resp.Status, resp.Error)
	var tech models.Technician
	suite.decode(resp.Data, &tech)
	techToken := testutil.MintToken(suite.T(), tech.UserID, models.RoleTechnician, time.Hour)

	resp = suite.makeRequest(nil, http.MethodPost, "/api/admin/assign-order", admin, map[string]interface{}{
		"order_id": created.OrderID, "technician_id": tech.UserID,
	})
	suite.Require().Equal(http.StatusOK, resp.Status, resp.Error)

	resp = suite.makeRequest(customer, http.MethodGet, orderPath, "", nil)
	suite.decode(resp.Data, &mine)
	suite.Require().NotNil(mine.CompletionCode, "customer sees the completion code once assigned")
	otp := *mine.CompletionCode

	gigPath := fmt.Sprintf("/api/technicians/gigs/%d", created.OrderID)
	resp = suite.makeRequest(nil, http.MethodGet, gigPath, techToken, nil)
	suite.Require().Equal(http.StatusOK, resp.Status)
	suite.NotContains(string(resp.Data), otp, "technicians never see the code")

	// completing before starting skips a step
	resp = suite.makeRequest(nil, http.MethodPost, gigPath+"/complete", techToken, map[string]interface{}{"otp": otp})
	suite.Equal(http.StatusConflict, resp.Status)

	resp = suite.makeRequest(nil, http.MethodPost, gigPath+"/status", techToken, map[string]string{"to": "in_progress"})
	suite.Require().Equal(http.StatusOK, resp.Status, resp.Error)

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	resp = suite.makeRequest(nil, http.MethodPost, gigPath+"/complete", techToken, map[string]interface{}{"otp": wrong})
	suite.Equal(http.StatusBadRequest, resp.Status)
	suite.Equal("INVALID_OTP", resp.Error["code"])

	resp = suite.makeRequest(nil, http.MethodPost, gigPath+"/complete", techToken, map[string]interface{}{
		"otp":    otp,
		"notes":  "Replaced display",
		"photos": []string{"https://cdn.example.com/orders/after.jpg"},
	})
	suite.Require().Equal(http.StatusOK, resp.Status, resp.Error)
	var done models.Order
	suite.decode(resp.Data, &done)
	suite.Equal(models.OrderCompleted, done.Status)
	suite.Len(done.Photos, 1)

	// costs recorded on the technician-completed order
	resp = suite.makeRequest(nil, http.MethodPost, fmt.Sprintf("/api/admin/orders/%d/complete-with-costs", created.OrderID), admin, map[string]interface{}{
		"part_price": "400", "travel_costs": "50", "miscellaneous_cost": "0",
	})
	suite.Require().Equal(http.StatusOK, resp.Status, resp.Error)
	var adminView services.AdminOrder
	suite.decode(resp.Data, &adminView)
	suite.True(dec("450").Equal(adminView.TotalCosts))
	suite.True(dec("450").Equal(adminView.Profit))

	resp = suite.makeRequest(nil, http.MethodGet, "/api/admin/dashboard?range=today&tzOffset=-330", admin, nil)
	suite.Require().Equal(http.StatusOK, resp.Status, resp.Error)
	var stats services.DashboardStats
	suite.decode(resp.Data, &stats)
	suite.Equal(int64(1), stats.CompletedJobs)
	suite.True(dec("900").Equal(stats.Revenue))

	suite.Equal([]string{
		events.OrderCreated, events.OrderAssigned, events.OrderStarted, events.OrderCompleted,
	}, suite.publisher.Types())

	resp = suite.makeRequest(customer, http.MethodGet, "/api/auth/me", "", nil)
	suite.Require().Equal(http.StatusOK, resp.Status)
	var me models.User
	suite.decode(resp.Data, &me)
	suite.Equal(customerID, me.ID)
}

// TestCouponCannotBeRedeemedTwice enforces the per-user limit at checkout
func (suite *BookingAcceptanceTestSuite) TestCouponCannotBeRedeemedTwice() {
	_, modelID, issueID := suite.seedCatalog()
	testutil.CreateCoupon(suite.T(), suite.db, "ONCE", models.CouponFixedAmount, 200, func(c *models.Coupon) {
		limit := 1
		c.PerUserUsageLimit = &limit
	})

	customer, _ := suite.login("9876500003")

	resp := suite.makeRequest(customer, http.MethodPost, "/api/checkout/create-order", "", suite.checkoutBody(modelID, issueID, "ONCE"))
	suite.Require().Equal(http.StatusCreated, resp.Status, resp.Error)

	resp = suite.makeRequest(customer, http.MethodPost, "/api/checkout/create-order", "", suite.checkoutBody(modelID, issueID, "ONCE"))
	suite.Equal(http.StatusBadRequest, resp.Status)
	suite.Equal("COUPON_INVALID", resp.Error["code"])

	var orders int64
	suite.db.Model(&models.Order{}).Count(&orders)
	suite.Equal(int64(1), orders, "the rejected checkout leaves nothing behind")
}

// TestRoleGates checks that sessions and roles guard the private surface
func (suite *BookingAcceptanceTestSuite) TestRoleGates() {
	resp := suite.makeRequest(nil, http.MethodGet, "/api/admin/orders", "", nil)
	suite.Equal(http.StatusUnauthorized, resp.Status)

	customer, _ := suite.login("9876500004")
	resp = suite.makeRequest(customer, http.MethodGet, "/api/admin/orders", "", nil)
	suite.Equal(http.StatusForbidden, resp.Status)

	resp = suite.makeRequest(customer, http.MethodGet, "/api/technicians/me/gigs", "", nil)
	suite.Equal(http.StatusForbidden, resp.Status)

	resp = suite.makeRequest(customer, http.MethodPost, "/api/auth/logout", "", nil)
	suite.Equal(http.StatusOK, resp.Status)
	resp = suite.makeRequest(customer, http.MethodGet, "/api/auth/me", "", nil)
	suite.Equal(http.StatusUnauthorized, resp.Status, "logout clears the session cookie")
}

// TestTechnicianInvite onboards a technician through an invitation link
func (suite *BookingAcceptanceTestSuite) TestTechnicianInvite() {
	admin := suite.adminToken()

	resp := suite.makeRequest(nil, http.MethodPost, "/api/admin/technician-invites", admin, map[string]interface{}{
		"phone_number": "9876500005", "name": "Meena",
	})
	suite.Require().Equal(http.StatusCreated, resp.Status, resp.Error)
	var invite models.TechnicianInvite
	suite.decode(resp.Data, &invite)

	resp = suite.makeRequest(nil, http.MethodGet, "/api/technicians/invites/"+invite.Token, "", nil)
	suite.Require().Equal(http.StatusOK, resp.Status)

	client, _ := suite.login("9876500005")
	resp = suite.makeRequest(client, http.MethodPost, "/api/technicians/invites/"+invite.Token+"/complete", "", nil)
	suite.Require().Equal(http.StatusOK, resp.Status, resp.Error)

	// the reissued cookie carries the technician role
	resp = suite.makeRequest(client, http.MethodGet, "/api/technicians/me/gigs", "", nil)
	suite.Equal(http.StatusOK, resp.Status)

	resp = suite.makeRequest(nil, http.MethodGet, "/api/technicians/invites/"+invite.Token, "", nil)
	suite.Equal(http.StatusGone, resp.Status)
}

// TestBrandsAreCacheable checks the public catalog headers
func (suite *BookingAcceptanceTestSuite) TestBrandsAreCacheable() {
	suite.seedCatalog()

	resp, err := suite.server.Client().Get(suite.server.URL + "/api/brands")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("public, max-age=86400", resp.Header.Get("Cache-Control"))
	suite.NotEmpty(resp.Header.Get("X-Request-Id"))
}

func TestBookingAcceptanceTestSuite(t *testing.T) {
	suite.Run(t, new(BookingAcceptanceTestSuite))
}
