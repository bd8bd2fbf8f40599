package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

// Options SMTP 配置
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Phone    string // 邮件页脚的联系电话
}

var readyTemplate = template.Must(template.New("ready").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #16a34a; color: white; padding: 20px; text-align: center;">
    <h1 style="margin: 0;">{{.Shop}}</h1>
  </div>
  <div style="padding: 20px; background-color: #f9fafb;">
    <h2 style="color: #1f2937;">Bună ziua, {{.Customer}}!</h2>
    <p style="color: #4b5563; line-height: 1.6;">
      Comanda dumneavoastră <strong>#{{.OrderNumber}}</strong> este gata de ridicare.
    </p>
    <ul style="color: #4b5563; line-height: 1.8;">
      {{- range .Items}}
      <li>{{.ServiceName}} ({{.ItemCode}})</li>
      {{- end}}
    </ul>
    <p style="color: #4b5563;">Total articole: <strong>{{.TotalItems}}</strong>, total de plată: <strong>{{.TotalAmount}} LEI</strong></p>
    <p style="color: #4b5563;">Punct de ridicare: <strong>{{.Location}}</strong></p>
    {{- if .Phone}}
    <p style="color: #6b7280; font-size: 14px; text-align: center;">Telefon: {{.Phone}}</p>
    {{- end}}
  </div>
</div>`))

type readyMail struct {
	Shop        string
	Customer    string
	OrderNumber string
	Items       []*etorder.Item
	TotalItems  int
	TotalAmount string
	Location    string
	Phone       string
}

// SMTPMailer 取件通知邮件（实现 mdnotify.Dispatcher）
type SMTPMailer struct {
	dialer *gomail.Dialer
	opts   Options
	logger logger.Logger
}

// NewSMTPMailer 创建 SMTP 发送器
func NewSMTPMailer(opts Options, log logger.Logger) (*SMTPMailer, error) {
	if opts.Host == "" || opts.From == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.FromName == "" {
		opts.FromName = "Curățătorie Profesională"
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password),
		opts:   opts,
		logger: log,
	}, nil
}

// SendReadyNotification 发送“订单可取件”邮件
func (m *SMTPMailer) SendReadyNotification(ctx context.Context, order *etorder.Order) error {
	if !order.HasEmail() {
		return fmt.Errorf("order %s has no customer email", order.OrderNumber)
	}

	body, err := renderReady(order, m.opts.FromName, m.opts.Phone)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.opts.From, m.opts.FromName)
	msg.SetHeader("To", order.Customer.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Comanda %s este gata de ridicare", order.OrderNumber))
	msg.SetBody("text/html", body)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", order.Customer.Email, err)
	}

	m.logger.Infof(ctx, "[SMTPMailer] ready notification for order %s sent to %s", order.OrderNumber, order.Customer.Email)
	return nil
}

// Ping 检查 SMTP 连接与认证
func (m *SMTPMailer) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	closer, err := m.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial %s:%d failed: %w", m.opts.Host, m.opts.Port, err)
	}
	return closer.Close()
}

func renderReady(order *etorder.Order, shop, phone string) (string, error) {
	var buf bytes.Buffer
	err := readyTemplate.Execute(&buf, readyMail{
		Shop:        shop,
		Customer:    order.Customer.Name,
		OrderNumber: order.OrderNumber,
		Items:       order.Items,
		TotalItems:  order.TotalItems,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Location:    order.Location,
		Phone:       phone,
	})
	if err != nil {
		return "", fmt.Errorf("render ready mail failed: %w", err)
	}
	return buf.String(), nil
}

// LogDispatcher 只记录日志的发送器，用于未配置 SMTP 的环境
type LogDispatcher struct {
	logger logger.Logger
}

// NewLogDispatcher 创建日志发送器
func NewLogDispatcher(log logger.Logger) *LogDispatcher {
	return &LogDispatcher{logger: log}
}

// SendReadyNotification 记录一条通知日志
func (d *LogDispatcher) SendReadyNotification(ctx context.Context, order *etorder.Order) error {
	if !order.HasEmail() {
		return fmt.Errorf("order %s has no customer email", order.OrderNumber)
	}
	d.logger.Infof(ctx, "[LogDispatcher] order %s ready, would notify %s", order.OrderNumber, order.Customer.Email)
	return nil
}

// Ping 总是可用
func (d *LogDispatcher) Ping(ctx context.Context) error {
	return nil
}
