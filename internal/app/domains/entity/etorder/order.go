package etorder

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 错误定义
var (
	ErrInvalidOrderID      = errors.New("order ID cannot be empty")
	ErrInvalidOrderNumber  = errors.New("order number must be CMD followed by 5 uppercase letters or digits")
	ErrInvalidCustomerName = errors.New("customer name must be between 2 and 100 characters")
	ErrInvalidPhone        = errors.New("customer phone must be a valid Romanian number")
	ErrInvalidEmail        = errors.New("customer email is not a valid address")
	ErrEmptyLocation       = errors.New("location cannot be empty")
	ErrNoItems             = errors.New("order must contain at least one item")
	ErrInvalidService      = errors.New("item service code and name are required")
	ErrInvalidQuantity     = errors.New("item quantity must be positive")
	ErrNegativePrice       = errors.New("item unit price cannot be negative")
	ErrItemNotesTooLong    = errors.New("item notes cannot exceed 500 characters")
	ErrOrderNotesTooLong   = errors.New("order notes cannot exceed 1000 characters")
	ErrItemNotFound        = errors.New("item not found in order")
	ErrOrderCompleted      = errors.New("order is completed, items are frozen")
)

const (
	maxItemNotes  = 500
	maxOrderNotes = 1000
)

var (
	phonePattern = regexp.MustCompile(`^(\+40|40|0)\d{9}$`)
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// Order 订单聚合根（领域对象）
type Order struct {
	ID               string          // 订单ID (UUID)
	OrderNumber      string          // 订单号，如 CMD1A2B3
	Customer         Customer        // 客户信息
	Items            []*Item         // 按件展开后的衣物
	TotalAmount      decimal.Decimal // 创建时计算，之后不再重算
	TotalItems       int             // 创建时计算，之后不再重算
	Status           Status          // 推导状态
	Location         string          // 所属门店
	Notes            string
	ReadyAt          *time.Time // 首次 ready 时写入，永不清空
	CollectedAt      *time.Time // 完成取件时写入
	NotificationSent bool       // 只允许 false -> true
	NotifiedAt       *time.Time
	CreatedBy        string
	Version          int64 // 乐观锁版本号
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Customer 客户信息（值对象）
type Customer struct {
	Name  string
	Phone string
	Email string
}

// Item 单件衣物（值对象，归属订单）
type Item struct {
	ID          string
	ItemCode    string
	ServiceCode string
	ServiceName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	Status      ItemStatus
	Notes       string
	ScannedAt   *time.Time
	ScannedBy   string
}

// LineInput 下单明细行（展开前）
type LineInput struct {
	ServiceCode string
	ServiceName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Notes       string
}

// NewCustomer 校验并规范化客户信息
func NewCustomer(name, phone, email string) (Customer, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return Customer{}, ErrInvalidCustomerName
	}
	phone = strings.TrimSpace(phone)
	if !IsValidPhone(phone) {
		return Customer{}, ErrInvalidPhone
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && !emailPattern.MatchString(email) {
		return Customer{}, ErrInvalidEmail
	}
	return Customer{Name: name, Phone: phone, Email: email}, nil
}

// IsValidPhone 罗马尼亚手机号：+40 / 40 / 0 开头加 9 位数字
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// NewOrder 创建订单（工厂方法）
// 明细按数量展开为单件，每件独立编码；金额和件数按展开前的明细计算
func NewOrder(id, orderNumber string, customer Customer, lines []LineInput, location, createdBy, notes string) (*Order, error) {
	if id == "" {
		return nil, ErrInvalidOrderID
	}
	if !IsOrderNumber(orderNumber) {
		return nil, ErrInvalidOrderNumber
	}
	customer, err := NewCustomer(customer.Name, customer.Phone, customer.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(location) == "" {
		return nil, ErrEmptyLocation
	}
	if utf8.RuneCountInString(notes) > maxOrderNotes {
		return nil, ErrOrderNotesTooLong
	}
	if len(lines) == 0 {
		return nil, ErrNoItems
	}

	total := decimal.Zero
	count := 0
	items := make([]*Item, 0, len(lines))
	for i, line := range lines {
		if err := line.validate(); err != nil {
			return nil, err
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		count += line.Quantity

		for unit := 1; unit <= line.Quantity; unit++ {
			items = append(items, &Item{
				ID:          uuid.New().String(),
				ItemCode:    BuildItemCode(orderNumber, i+1, unit),
				ServiceCode: line.ServiceCode,
				ServiceName: line.ServiceName,
				Quantity:    1,
				UnitPrice:   line.UnitPrice,
				TotalPrice:  line.UnitPrice,
				Status:      ItemStatusPending,
				Notes:       line.Notes,
			})
		}
	}

	now := time.Now()
	return &Order{
		ID:          id,
		OrderNumber: orderNumber,
		Customer:    customer,
		Items:       items,
		TotalAmount: total,
		TotalItems:  count,
		Status:      StatusPending,
		Location:    strings.TrimSpace(location),
		Notes:       notes,
		CreatedBy:   createdBy,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (l LineInput) validate() error {
	if strings.TrimSpace(l.ServiceCode) == "" || strings.TrimSpace(l.ServiceName) == "" {
		return ErrInvalidService
	}
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if l.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	if utf8.RuneCountInString(l.Notes) > maxItemNotes {
		return ErrItemNotesTooLong
	}
	return nil
}

// FindItem 按内部 ID 或扫码编码查找单件
func (o *Order) FindItem(ref string) *Item {
	for _, item := range o.Items {
		if item.ID == ref || item.ItemCode == ref {
			return item
		}
	}
	return nil
}

// ScanItem 将单件标记为 ready（领域行为）
// 已经 ready 的单件返回 alreadyReady=true 且不做任何修改
func (o *Order) ScanItem(ref, scannedBy, notes string, now time.Time) (item *Item, alreadyReady bool, err error) {
	item = o.FindItem(ref)
	if item == nil {
		return nil, false, ErrItemNotFound
	}
	if item.Status == ItemStatusReady {
		return item, true, nil
	}
	if o.Status == StatusCompleted {
		return nil, false, ErrOrderCompleted
	}
	if utf8.RuneCountInString(notes) > maxItemNotes {
		return nil, false, ErrItemNotesTooLong
	}

	scannedAt := now
	item.Status = ItemStatusReady
	item.ScannedAt = &scannedAt
	item.ScannedBy = scannedBy
	if notes != "" {
		item.Notes = notes
	}
	o.UpdatedAt = now
	return item, false, nil
}

// Reconcile 持久化前重新推导状态；completed 为终态，不再推导
func (o *Order) Reconcile(now time.Time) {
	if o.Status == StatusCompleted {
		return
	}
	o.Status = DeriveStatus(o.Items)
	if o.Status == StatusReady && o.ReadyAt == nil {
		readyAt := now
		o.ReadyAt = &readyAt
	}
}

// Complete 客户取件，订单进入终态（领域行为）
// 已完成的订单返回 false，不修改 CollectedAt
func (o *Order) Complete(notes string, now time.Time) (bool, error) {
	if o.Status == StatusCompleted {
		return false, nil
	}
	if utf8.RuneCountInString(notes) > maxOrderNotes {
		return false, ErrOrderNotesTooLong
	}
	collectedAt := now
	o.Status = StatusCompleted
	o.CollectedAt = &collectedAt
	if notes != "" {
		o.Notes = notes
	}
	o.UpdatedAt = now
	return true, nil
}

// HasEmail 是否有可投递的邮箱
func (o *Order) HasEmail() bool {
	return o.Customer.Email != ""
}

// ReadyItemCount 已完成件数
func (o *Order) ReadyItemCount() int {
	n := 0
	for _, item := range o.Items {
		if item.Status == ItemStatusReady {
			n++
		}
	}
	return n
}

// Progress 完成百分比（四舍五入）
func (o *Order) Progress() int {
	if len(o.Items) == 0 {
		return 0
	}
	return (o.ReadyItemCount()*100 + len(o.Items)/2) / len(o.Items)
}

// Clone 深拷贝，用于异步处理和内存存储
func (o *Order) Clone() *Order {
	c := *o
	c.ReadyAt = cloneTime(o.ReadyAt)
	c.CollectedAt = cloneTime(o.CollectedAt)
	c.NotifiedAt = cloneTime(o.NotifiedAt)
	c.Items = make([]*Item, len(o.Items))
	for i, item := range o.Items {
		ci := *item
		ci.ScannedAt = cloneTime(item.ScannedAt)
		c.Items[i] = &ci
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
