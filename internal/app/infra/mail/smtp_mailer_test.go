package mail

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

func readyOrder(t *testing.T, email string) *etorder.Order {
	t.Helper()
	order, err := etorder.NewOrder("id-1", "CMD1A2B3",
		etorder.Customer{Name: "Ana <b>Pop</b>", Phone: "0711111111", Email: email},
		[]etorder.LineInput{{ServiceCode: "ROC", ServiceName: "Rochie", Quantity: 2, UnitPrice: decimal.RequireFromString("35.5")}},
		"centru", "u1", "")
	require.NoError(t, err)
	return order
}

func TestRenderReady(t *testing.T) {
	body, err := renderReady(readyOrder(t, "ana@example.com"), "Curățătorie", "0722123456")
	require.NoError(t, err)

	assert.Contains(t, body, "#CMD1A2B3")
	assert.Contains(t, body, "CMD1A2B3_1_2")
	assert.Contains(t, body, "71.00 LEI")
	assert.Contains(t, body, "0722123456")
	assert.Contains(t, body, "Ana &lt;b&gt;Pop&lt;/b&gt;")
}

func TestNewSMTPMailerRequiresHost(t *testing.T) {
	_, err := NewSMTPMailer(Options{From: "a@b.ro"}, logger.NewNopLogger())
	assert.Error(t, err)

	m, err := NewSMTPMailer(Options{Host: "smtp.example.com", From: "a@b.ro"}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 587, m.opts.Port)
}

func TestSendWithoutEmailFails(t *testing.T) {
	m, err := NewSMTPMailer(Options{Host: "smtp.example.com", From: "a@b.ro"}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Error(t, m.SendReadyNotification(context.Background(), readyOrder(t, "")))

	d := NewLogDispatcher(logger.NewNopLogger())
	assert.Error(t, d.SendReadyNotification(context.Background(), readyOrder(t, "")))
	assert.NoError(t, d.SendReadyNotification(context.Background(), readyOrder(t, "ana@example.com")))
}
