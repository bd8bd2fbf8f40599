package svnotify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etaccess"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etprimitive"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdevent"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

type countingDispatcher struct {
	calls atomic.Int32
	fail  atomic.Bool
	delay time.Duration
}

func (d *countingDispatcher) SendReadyNotification(ctx context.Context, order *etorder.Order) error {
	d.calls.Inc()
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if d.fail.Load() {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (d *countingDispatcher) Ping(ctx context.Context) error { return nil }

type queuePublisher struct {
	mu    sync.Mutex
	jobs  int
	steps []string
}

func (p *queuePublisher) Publish(queue string, data []byte, ttl, delay uint32) error {
	var job model.NotifyJob
	if err := json.Unmarshal(data, &job); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs++
	p.steps = append(p.steps, job.Payload.Data.Data.Step)
	return nil
}

// flakyMarkRepo 已通知标记写入失败一次
type flakyMarkRepo struct {
	*rporder.MemoryOrderRepository
	failMark atomic.Bool
}

func (r *flakyMarkRepo) MarkNotificationSent(ctx context.Context, orderID string, at time.Time, force bool) (bool, error) {
	if r.failMark.CAS(true, false) {
		return false, errors.New("write timeout")
	}
	return r.MemoryOrderRepository.MarkNotificationSent(ctx, orderID, at, force)
}

type fixture struct {
	repo       rporder.OrderRepository
	dispatcher *countingDispatcher
	publisher  *queuePublisher
	svc        *NotifyService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, rporder.NewMemoryOrderRepository(), &countingDispatcher{})
}

func newFixtureWith(t *testing.T, repo rporder.OrderRepository, dispatcher *countingDispatcher) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	publisher := &queuePublisher{}

	orders := mdorder.NewOrderModule(repo, 0, log)
	notify := mdnotify.NewNotifyModule(dispatcher, publisher, mdnotify.Options{Queue: "notify", Timeout: time.Second}, log)
	events := mdevent.NewEventModule(nil, nil, log)

	return &fixture{
		repo:       repo,
		dispatcher: dispatcher,
		publisher:  publisher,
		svc:        NewNotifyService(orders, notify, events, Options{}, log),
	}
}

// readyOrder 创建订单并把全部单件置为 ready
func (f *fixture) readyOrder(t *testing.T, number, email, location string) *etorder.Order {
	t.Helper()
	ctx := context.Background()
	lines := []etorder.LineInput{{ServiceCode: "PAL", ServiceName: "Palton", Quantity: 2, UnitPrice: decimal.NewFromInt(80)}}
	customer := etorder.Customer{Name: "Elena Radu", Phone: "+40744444444", Email: email}
	order, err := etorder.NewOrder(uuid.New().String(), number, customer, lines, location, "u1", "")
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(ctx, order))

	now := time.Now()
	for _, item := range order.Items {
		_, _, err := order.ScanItem(item.ItemCode, "u1", "", now)
		require.NoError(t, err)
	}
	order.Reconcile(now)
	require.NoError(t, f.repo.Update(ctx, order))
	return order
}

var (
	admin     = etaccess.Actor{UserID: "a1", Name: "Admin", Role: etaccess.RoleAdmin}
	reception = etaccess.Actor{UserID: "r1", Name: "Ioana", Role: etaccess.RoleReception, Location: "centru"}
)

func TestDispatchAsyncMarksSent(t *testing.T) {
	f := newFixture(t)
	order := f.readyOrder(t, "CMDNTF01", "elena@example.com", "centru")

	f.svc.DispatchAsync(context.Background(), order)
	f.svc.Wait()

	stored, err := f.repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)
	assert.NotNil(t, stored.NotifiedAt)
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
	assert.Equal(t, 0, f.publisher.jobs)
}

func TestDispatchAsyncFailureSchedulesRetry(t *testing.T) {
	f := newFixture(t)
	order := f.readyOrder(t, "CMDNTF02", "elena@example.com", "centru")
	f.dispatcher.fail.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	f.svc.DispatchAsync(ctx, order)
	cancel() // 请求结束不影响异步发送
	f.svc.Wait()

	stored, err := f.repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, stored.NotificationSent)
	assert.Equal(t, 1, f.publisher.jobs)

	// 重试任务到达时发送恢复正常
	f.dispatcher.fail.Store(false)
	require.NoError(t, f.svc.HandleRetry(context.Background(), order.ID))
	require.NoError(t, f.svc.HandleRetry(context.Background(), order.ID))
	assert.Equal(t, int32(2), f.dispatcher.calls.Load())

	stored, err = f.repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)
}

func TestHandleRetryFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	order := f.readyOrder(t, "CMDNTF03", "elena@example.com", "centru")
	f.dispatcher.fail.Store(true)

	err := f.svc.HandleRetry(context.Background(), order.ID)
	assert.ErrorIs(t, err, errorx.ErrNotificationFailed)
}

func TestResendRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.readyOrder(t, "CMDNTF04", "elena@example.com", "centru")
	noEmail := f.readyOrder(t, "CMDNTF05", "", "centru")
	other := f.readyOrder(t, "CMDNTF06", "x@example.com", "nord")

	_, err := f.svc.Resend(ctx, reception, noEmail.OrderNumber, false)
	assert.ErrorIs(t, err, errorx.ErrNotEligible)

	_, err = f.svc.Resend(ctx, reception, other.OrderNumber, false)
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	sent, err := f.svc.Resend(ctx, reception, order.OrderNumber, false)
	require.NoError(t, err)
	assert.True(t, sent.NotificationSent)

	_, err = f.svc.Resend(ctx, reception, order.OrderNumber, false)
	assert.ErrorIs(t, err, errorx.ErrNotEligible)

	_, err = f.svc.Resend(ctx, reception, order.OrderNumber, true)
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	_, err = f.svc.Resend(ctx, admin, order.OrderNumber, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.dispatcher.calls.Load())
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	order := f.readyOrder(t, "CMDNTF07", "elena@example.com", "centru")

	st, err := f.svc.Status(context.Background(), reception, order.OrderNumber)
	require.NoError(t, err)
	assert.False(t, st.EmailSent)
	assert.True(t, st.HasEmail)
	assert.True(t, st.CanSend)
	assert.Equal(t, 2, st.ReadyItems)
	assert.Equal(t, 2, st.TotalItems)
}

func TestBulkResend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.readyOrder(t, "CMDBLK01", "a@example.com", "centru")
	f.readyOrder(t, "CMDBLK02", "b@example.com", "nord")
	f.readyOrder(t, "CMDBLK03", "", "centru")

	_, err := f.svc.BulkResend(ctx, reception, nil, "")
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	res, err := f.svc.BulkResend(ctx, admin, []string{"CMDBLK01", "CMDBLK02", "CMDBLK03"}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, res.Skipped)

	pending, total, err := f.svc.ListPending(ctx, admin, "", etprimitive.Pagination{Page: 1})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, pending)
}

func TestManualSendWhileAutomaticInFlight(t *testing.T) {
	f := newFixtureWith(t, rporder.NewMemoryOrderRepository(), &countingDispatcher{delay: 200 * time.Millisecond})
	ctx := context.Background()
	order := f.readyOrder(t, "CMDRACE1", "elena@example.com", "centru")

	f.svc.DispatchAsync(ctx, order)
	time.Sleep(20 * time.Millisecond)

	_, err := f.svc.Resend(ctx, reception, order.OrderNumber, false)
	assert.ErrorIs(t, err, errorx.ErrNotEligible)

	require.NoError(t, f.svc.HandleRetry(ctx, order.ID))

	res, err := f.svc.BulkResend(ctx, admin, []string{order.OrderNumber}, "")
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Equal(t, 1, res.Skipped)

	f.svc.Wait()
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)
	assert.Zero(t, f.publisher.jobs)
}

func TestMarkFailureSchedulesMarkOnlyRetry(t *testing.T) {
	repo := &flakyMarkRepo{MemoryOrderRepository: rporder.NewMemoryOrderRepository()}
	f := newFixtureWith(t, repo, &countingDispatcher{})
	ctx := context.Background()
	order := f.readyOrder(t, "CMDMARK1", "elena@example.com", "centru")
	repo.failMark.Store(true)

	f.svc.DispatchAsync(ctx, order)
	f.svc.Wait()

	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
	assert.Equal(t, []string{model.NotifyStepMark}, f.publisher.steps)

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.NotificationSent)

	// 补写完成前占用仍然有效
	_, err = f.svc.Resend(ctx, reception, order.OrderNumber, false)
	assert.ErrorIs(t, err, errorx.ErrNotEligible)
	require.NoError(t, f.svc.HandleRetry(ctx, order.ID))
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())

	require.NoError(t, f.svc.HandleMarkRetry(ctx, order.ID))
	require.NoError(t, f.svc.HandleMarkRetry(ctx, order.ID))

	stored, err = f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)
	assert.Equal(t, int32(1), f.dispatcher.calls.Load())
}
