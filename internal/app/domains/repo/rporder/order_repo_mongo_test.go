package rporder

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
)

func TestOrderDocumentRoundTrip(t *testing.T) {
	order := newTestOrder(t, "CMDMNG01", "ion@example.com", 1, 1)
	order.Items[0].UnitPrice = decimal.RequireFromString("12.50")
	order.Items[0].TotalPrice = decimal.RequireFromString("25.00")
	order.TotalAmount = decimal.RequireFromString("40.10")

	scannedAt := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	order.Items[1].Status = etorder.ItemStatusReady
	order.Items[1].ScannedAt = &scannedAt
	order.Items[1].ScannedBy = "u2"
	order.Version = 7

	// 经过一次 BSON 编解码，确认字段标签和精度
	raw, err := bson.Marshal(toOrderDocument(order))
	require.NoError(t, err)
	var doc orderDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))

	assert.Equal(t, "12.5", doc.Items[0].UnitPrice)
	assert.Equal(t, "40.1", doc.TotalAmount)

	got, err := doc.toDomain()
	require.NoError(t, err)

	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	assert.Equal(t, order.Customer, got.Customer)
	assert.Equal(t, order.Status, got.Status)
	assert.Equal(t, order.Location, got.Location)
	assert.Equal(t, int64(7), got.Version)
	assert.True(t, order.TotalAmount.Equal(got.TotalAmount))
	assert.True(t, order.CreatedAt.Truncate(time.Millisecond).Equal(got.CreatedAt))

	// 空时间保持为 nil
	assert.Nil(t, got.ReadyAt)
	assert.Nil(t, got.CollectedAt)
	assert.Nil(t, got.NotifiedAt)
	assert.False(t, got.NotificationSent)

	require.Len(t, got.Items, 2)
	assert.True(t, decimal.RequireFromString("12.50").Equal(got.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("25").Equal(got.Items[0].TotalPrice))
	assert.Nil(t, got.Items[0].ScannedAt)
	assert.Equal(t, order.Items[0].ItemCode, got.Items[0].ItemCode)

	assert.Equal(t, etorder.ItemStatusReady, got.Items[1].Status)
	require.NotNil(t, got.Items[1].ScannedAt)
	assert.True(t, scannedAt.Equal(*got.Items[1].ScannedAt))
	assert.Equal(t, "u2", got.Items[1].ScannedBy)
}

func TestOrderDocumentRejectsBadAmounts(t *testing.T) {
	order := newTestOrder(t, "CMDMNG02", "", 1)

	doc := toOrderDocument(order)
	doc.TotalAmount = "abc"
	_, err := doc.toDomain()
	assert.Error(t, err)

	doc = toOrderDocument(order)
	doc.Items[0].UnitPrice = ""
	_, err = doc.toDomain()
	assert.Error(t, err)
}

func TestClaimFilter(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	filter := claimFilter("o1", now, time.Minute)

	assert.Equal(t, "o1", filter["_id"])
	assert.Equal(t, false, filter["notification_sent"])

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t, bson.M{claimField: nil}, or[0])
	assert.Equal(t, bson.M{claimField: bson.M{"$lt": now.Add(-time.Minute)}}, or[1])
}
