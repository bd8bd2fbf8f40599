package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etaccess"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdevent"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svscan"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/notification"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/order"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/scan"
	"github.com/gorbenco03/curatire-backend/internal/app/server/middlewares"
)

const secret = "test-secret"

type countingDispatcher struct {
	calls atomic.Int32
}

func (d *countingDispatcher) SendReadyNotification(ctx context.Context, order *etorder.Order) error {
	d.calls.Inc()
	return nil
}

func (d *countingDispatcher) Ping(ctx context.Context) error { return nil }

type envelope struct {
	Meta struct {
		Code      int    `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
		Details   []struct {
			Path string `json:"path"`
			Info string `json:"info"`
		} `json:"details"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

type testServer struct {
	engine     *gin.Engine
	dispatcher *countingDispatcher
	notify     *svnotify.NotifyService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNopLogger()
	repo := rporder.NewMemoryOrderRepository()
	dispatcher := &countingDispatcher{}

	orders := mdorder.NewOrderModule(repo, 0, log)
	events := mdevent.NewEventModule(nil, nil, log)
	notifyModule := mdnotify.NewNotifyModule(dispatcher, nil, mdnotify.Options{Timeout: time.Second}, log)
	notifySvc := svnotify.NewNotifyService(orders, notifyModule, events, svnotify.Options{}, log)
	scanSvc := svscan.NewScanService(orders, events, notifySvc, log)
	orderSvc := svorder.NewOrderService(orders, events, nil, log)

	engine := SetupRoutes(
		Options{JWTSecret: secret, Logger: log},
		order.NewOrderHandler(orderSvc, scanSvc),
		scan.NewScanHandler(scanSvc),
		notification.NewNotificationHandler(notifySvc),
	)
	return &testServer{engine: engine, dispatcher: dispatcher, notify: notifySvc}
}

func token(t *testing.T, actor etaccess.Actor) string {
	t.Helper()
	tok, err := middlewares.IssueToken(secret, actor, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

var (
	reception = etaccess.Actor{UserID: "r1", Name: "Ioana", Role: etaccess.RoleReception, Location: "centru"}
	worker    = etaccess.Actor{UserID: "w1", Name: "Vlad", Role: etaccess.RoleProcessing, Location: "centru"}
)

func createBody() map[string]interface{} {
	return map[string]interface{}{
		"customer": map[string]interface{}{"name": "Ion Popescu", "phone": "0712345678", "email": "ion@example.com"},
		"items": []map[string]interface{}{
			{"serviceCode": "CAM", "serviceName": "Camasa", "quantity": 2, "unitPrice": 15},
		},
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middlewares.RequestIDHeader))
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, 401, env.Meta.Code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateScanAndNotify(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/orders", token(t, reception), createBody())
	require.Equal(t, http.StatusCreated, code, env.Meta.Message)

	var created struct {
		ID          string `json:"id"`
		OrderNumber string `json:"orderNumber"`
		Status      string `json:"status"`
		Items       []struct {
			ItemCode string `json:"itemCode"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Items, 2)
	assert.Equal(t, "pending", created.Status)

	workerTok := token(t, worker)
	for i, item := range created.Items {
		code, env = s.do(t, http.MethodPost, "/api/v1/orders/scan-by-code", workerTok, map[string]string{"itemCode": item.ItemCode})
		require.Equal(t, http.StatusOK, code, env.Meta.Message)

		var res struct {
			AlreadyReady bool `json:"alreadyReady"`
			Progress     int  `json:"progress"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.False(t, res.AlreadyReady)
		assert.Equal(t, (i+1)*50, res.Progress)
	}
	s.notify.Wait()
	assert.Equal(t, int32(1), s.dispatcher.calls.Load())

	code, env = s.do(t, http.MethodPost, "/api/v1/orders/scan-by-code", workerTok, map[string]string{"itemCode": created.Items[1].ItemCode})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"alreadyReady":true`)

	code, env = s.do(t, http.MethodGet, "/api/v1/notifications/"+created.OrderNumber+"/status", workerTok, nil)
	require.Equal(t, http.StatusOK, code)
	var status struct {
		EmailSent bool `json:"emailSent"`
		CanSend   bool `json:"canSend"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.EmailSent)
	assert.False(t, status.CanSend)

	// 已发送过，非强制发送不允许
	code, _ = s.do(t, http.MethodPost, "/api/v1/notifications/"+created.OrderNumber+"/send", workerTok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = s.do(t, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status", workerTok, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"completed"`)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, worker)

	code, env := s.do(t, http.MethodPost, "/api/v1/orders/scan-by-code", tok, map[string]string{"itemCode": "CMD1A2B3-1-1"})
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, env.Meta.Details, 1)
	assert.Equal(t, "itemCode", env.Meta.Details[0].Path)

	body := createBody()
	body["customer"].(map[string]interface{})["phone"] = "12345"
	code, env = s.do(t, http.MethodPost, "/api/v1/orders", tok, body)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotEmpty(t, env.Meta.Details)
	assert.Equal(t, "customer.phone", env.Meta.Details[0].Path)

	code, _ = s.do(t, http.MethodPost, "/api/v1/orders/scan-by-code", tok, map[string]string{"itemCode": "CMDZZZZZ_1_1"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/orders?limit=500", tok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatusOnlyAcceptsCompleted(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, reception)

	code, env := s.do(t, http.MethodPost, "/api/v1/orders", tok, createBody())
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		OrderNumber string `json:"orderNumber"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, _ = s.do(t, http.MethodPatch, "/api/v1/orders/"+created.OrderNumber+"/status", tok, map[string]string{"status": "ready"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPatch, "/api/v1/orders/"+created.OrderNumber+"/status", tok, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, code)

	// 取件后的订单不能再扫码
	code, env = s.do(t, http.MethodPost, "/api/v1/orders/scan-by-code", tok, map[string]string{"itemCode": created.OrderNumber + "_1_1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Meta.Retryable)
}

func TestElevatedRoutes(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/notifications/bulk", token(t, reception), nil)
	assert.Equal(t, http.StatusForbidden, code)

	admin := etaccess.Actor{UserID: "a1", Name: "Admin", Role: etaccess.RoleAdmin}
	code, env := s.do(t, http.MethodPost, "/api/v1/notifications/bulk", token(t, admin), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"sent":0`)

	code, _ = s.do(t, http.MethodGet, "/api/v1/notifications/smtp/check", token(t, admin), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestListScopedToLocation(t *testing.T) {
	s := newTestServer(t)
	admin := etaccess.Actor{UserID: "a1", Name: "Admin", Role: etaccess.RoleSuperAdmin}

	body := createBody()
	body["location"] = "nord"
	code, _ := s.do(t, http.MethodPost, "/api/v1/orders", token(t, admin), body)
	require.Equal(t, http.StatusCreated, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/orders?location=nord", token(t, reception), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":0`)

	code, env = s.do(t, http.MethodGet, "/api/v1/orders?location=nord", token(t, admin), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)
}
