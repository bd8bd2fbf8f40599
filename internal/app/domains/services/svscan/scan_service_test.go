package svscan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

type countingDispatcher struct {
	calls atomic.Int32
}

func (d *countingDispatcher) SendReadyNotification(ctx context.Context, order *etorder.Order) error {
	d.calls.Inc()
	return nil
}

func (d *countingDispatcher) Ping(ctx context.Context) error { return nil }

// countingRepo 统计按编码查询次数，用于确认格式错误时没有查询
type countingRepo struct {
	*rporder.MemoryOrderRepository
	codeLookups atomic.Int32
}

func (r *countingRepo) GetByItemCode(ctx context.Context, code string) (*etorder.Order, error) {
	r.codeLookups.Inc()
	return r.MemoryOrderRepository.GetByItemCode(ctx, code)
}

type fixture struct {
	repo       *countingRepo
	dispatcher *countingDispatcher
	notify     *svnotify.NotifyService
	svc        *ScanService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	repo := &countingRepo{MemoryOrderRepository: rporder.NewMemoryOrderRepository()}
	dispatcher := &countingDispatcher{}

	orders := mdorder.NewOrderModule(repo, 0, log)
	events := mdevent.NewEventModule(nil, nil, log)
	notifyModule := mdnotify.NewNotifyModule(dispatcher, nil, mdnotify.Options{Timeout: time.Second}, log)
	notify := svnotify.NewNotifyService(orders, notifyModule, events, svnotify.Options{}, log)

	return &fixture{
		repo:       repo,
		dispatcher: dispatcher,
		notify:     notify,
		svc:        NewScanService(orders, events, notify, log),
	}
}

func (f *fixture) createOrder(t *testing.T, number, email, location string, quantity int) *etorder.Order {
	t.Helper()
	lines := []etorder.LineInput{{ServiceCode: "CAM", ServiceName: "Camasa", Quantity: quantity, UnitPrice: decimal.NewFromInt(15)}}
	customer := etorder.Customer{Name: "Mihai Pop", Phone: "0755555555", Email: email}
	order, err := etorder.NewOrder(uuid.New().String(), number, customer, lines, location, "u1", "")
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

var (
	worker = etaccess.Actor{UserID: "w1", Name: "Vlad", Role: etaccess.RoleProcessing, Location: "centru"}
	admin  = etaccess.Actor{UserID: "a1", Name: "Admin", Role: etaccess.RoleSuperAdmin}
)

func TestScanScenarioNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createOrder(t, "CMD1A2B3", "mihai@example.com", "centru", 2)

	first, err := f.svc.ScanByCode(ctx, worker, "CMD1A2B3_1_1", "")
	require.NoError(t, err)
	assert.False(t, first.AlreadyReady)
	assert.Equal(t, etorder.StatusInProgress, first.Order.Status)
	assert.Equal(t, 50, first.Progress)
	f.notify.Wait()
	assert.Equal(t, int32(0), f.dispatcher.calls.Load())

	second, err := f.svc.ScanByCode(ctx, worker, "CMD1A2B3_1_2", "pata pe maneca")
	require.NoError(t, err)
	assert.Equal(t, etorder.StatusReady, second.Order.Status)
	assert.NotNil(t, second.Order.ReadyAt)
	assert.Equal(t, "pata pe maneca", second.Item.Notes)
	f.notify.Wait()
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())

	stored, err := f.repo.GetByOrderNumber(ctx, "CMD1A2B3")
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)

	again, err := f.svc.ScanByCode(ctx, admin, "CMD1A2B3_1_2", "")
	require.NoError(t, err)
	assert.True(t, again.AlreadyReady)
	assert.Equal(t, "Vlad", again.Item.ScannedBy)
	assert.Equal(t, *second.Item.ScannedAt, *again.Item.ScannedAt)
	f.notify.Wait()
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
}

func TestScanWithoutEmailNeverNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createOrder(t, "CMDNOEML", "", "centru", 1)

	res, err := f.svc.ScanByCode(ctx, worker, "CMDNOEML_1_1", "")
	require.NoError(t, err)
	assert.Equal(t, etorder.StatusReady, res.Order.Status)
	f.notify.Wait()
	assert.Equal(t, int32(0), f.dispatcher.calls.Load())
}

func TestScanByCodeRejectsMalformedBeforeLookup(t *testing.T) {
	f := newFixture(t)
	for _, code := range []string{"cmd1a2b3_1_1", "CMD1A2B3-1-1", "CMD1A2B3_0_1", ""} {
		_, err := f.svc.ScanByCode(context.Background(), worker, code, "")
		assert.ErrorIs(t, err, errorx.ErrInvalidItemCode, code)
	}
	assert.Equal(t, int32(0), f.repo.codeLookups.Load())
}

func TestScanByCodeUnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ScanByCode(context.Background(), worker, "CMDZZZZZ_1_1", "")
	assert.ErrorIs(t, err, errorx.ErrItemNotFound)
	assert.Equal(t, 404, errorx.HTTPStatus(err))
}

func TestScanForbiddenForOtherLocation(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "CMDNORD1", "", "nord", 1)

	_, err := f.svc.ScanByCode(context.Background(), worker, "CMDNORD1_1_1", "")
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	// 越权时即使单件不存在也只返回 forbidden
	_, err = f.svc.ScanItem(context.Background(), worker, order.ID, "missing", "")
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	_, err = f.svc.ScanByCode(context.Background(), admin, "CMDNORD1_1_1", "")
	assert.NoError(t, err)
}

func TestScanCompletedOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, "CMDDONE1", "", "centru", 2)

	loaded, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	_, err = loaded.Complete("", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.Update(ctx, loaded))

	_, err = f.svc.ScanByCode(ctx, worker, "CMDDONE1_1_1", "")
	assert.ErrorIs(t, err, errorx.ErrOrderClosed)

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, etorder.StatusCompleted, stored.Status)
	assert.Equal(t, 0, stored.ReadyItemCount())
}

func TestScanItemLegacyPath(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "CMDLEGC1", "", "centru", 1)

	res, err := f.svc.ScanItem(context.Background(), worker, order.OrderNumber, order.Items[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, etorder.ItemStatusReady, res.Item.Status)

	_, err = f.svc.ScanItem(context.Background(), worker, order.ID, "", "")
	assert.ErrorIs(t, err, errorx.ErrValidation)
}

func TestConcurrentScansKeepBothUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createOrder(t, "CMDCONC1", "c@example.com", "centru", 2)

	var wg sync.WaitGroup
	for _, code := range []string{"CMDCONC1_1_1", "CMDCONC1_1_2"} {
		code := code
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ScanByCode(ctx, worker, code, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	f.notify.Wait()

	stored, err := f.repo.GetByOrderNumber(ctx, "CMDCONC1")
	require.NoError(t, err)
	assert.Equal(t, etorder.StatusReady, stored.Status)
	assert.Equal(t, 2, stored.ReadyItemCount())
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
}

func TestFindItemAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createOrder(t, "CMDHIST1", "", "centru", 3)

	_, err := f.svc.ScanByCode(ctx, worker, "CMDHIST1_1_2", "")
	require.NoError(t, err)

	order, item, err := f.svc.FindItemByCode(ctx, worker, "CMDHIST1_1_2")
	require.NoError(t, err)
	assert.Equal(t, "CMDHIST1", order.OrderNumber)
	assert.Equal(t, etorder.ItemStatusReady, item.Status)

	_, item, err = f.svc.ItemStatus(ctx, worker, "CMDHIST1", "CMDHIST1_1_3")
	require.NoError(t, err)
	assert.Equal(t, etorder.ItemStatusPending, item.Status)

	records, total, err := f.svc.History(ctx, worker, HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, "CMDHIST1_1_2", records[0].ItemCode)
	assert.Equal(t, "Vlad", records[0].ScannedBy)

	stats, err := f.svc.Stats(ctx, worker, "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, 1, stats.ScannedItems)
	assert.Equal(t, 2, stats.PendingItems)
	assert.Equal(t, 1, stats.ByScanner["Vlad"])
}
