package rporder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
)

// OrdersCollection MongoDB 集合名
const OrdersCollection = "orders"

// claimField 发送占用时间，不属于领域对象，只由占用/释放/标记写入
const claimField = "notification_claimed_at"

// MongoOrderRepository 订单仓储实现（MongoDB，整单一个文档）
type MongoOrderRepository struct {
	coll *mongo.Collection
}

// NewMongoOrderRepository 创建 MongoDB 订单仓储
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{coll: db.Collection(OrdersCollection)}
}

// EnsureIndexes 创建唯一索引；items.item_code 为多键唯一索引，保证编码跨文档唯一
func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "items.item_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

// Create 创建订单
func (r *MongoOrderRepository) Create(ctx context.Context, order *etorder.Order) error {
	_, err := r.coll.InsertOne(ctx, toOrderDocument(order))
	if mongo.IsDuplicateKeyError(err) {
		return errorx.Wrap(errorx.ErrDuplicateOrder, err)
	}
	return err
}

// GetByID 根据ID查询订单
func (r *MongoOrderRepository) GetByID(ctx context.Context, orderID string) (*etorder.Order, error) {
	return r.findOne(ctx, bson.M{"_id": orderID}, orderID)
}

// GetByOrderNumber 根据订单号查询
func (r *MongoOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*etorder.Order, error) {
	return r.findOne(ctx, bson.M{"order_number": orderNumber}, orderNumber)
}

// GetByItemCode 根据单件编码查询
func (r *MongoOrderRepository) GetByItemCode(ctx context.Context, itemCode string) (*etorder.Order, error) {
	return r.findOne(ctx, bson.M{"items.item_code": itemCode}, itemCode)
}

// Update 按版本号条件更新
func (r *MongoOrderRepository) Update(ctx context.Context, order *etorder.Order) error {
	doc := toOrderDocument(order)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": order.ID, "version": order.Version},
		bson.M{
			"$set": bson.M{
				"items":        doc.Items,
				"status":       doc.Status,
				"notes":        doc.Notes,
				"ready_at":     doc.ReadyAt,
				"collected_at": doc.CollectedAt,
				"updated_at":   doc.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errorx.Newf(errorx.ErrVersionConflict, "order %s changed since version %d", order.OrderNumber, order.Version)
	}

	order.Version++
	return nil
}

// MarkNotificationSent 写入通知标记
func (r *MongoOrderRepository) MarkNotificationSent(ctx context.Context, orderID string, at time.Time, force bool) (bool, error) {
	filter := bson.M{"_id": orderID}
	if !force {
		filter["notification_sent"] = false
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{
		"$set":   bson.M{"notification_sent": true, "notified_at": at},
		"$unset": bson.M{claimField: ""},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ClaimNotification 条件写入发送占用（null 同时匹配字段不存在）
func (r *MongoOrderRepository) ClaimNotification(ctx context.Context, orderID string, now time.Time, lease time.Duration) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, claimFilter(orderID, now, lease), bson.M{
		"$set": bson.M{claimField: now},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ReleaseNotificationClaim 释放发送占用
func (r *MongoOrderRepository) ReleaseNotificationClaim(ctx context.Context, orderID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": orderID, "notification_sent": false},
		bson.M{"$unset": bson.M{claimField: ""}})
	return err
}

func claimFilter(orderID string, now time.Time, lease time.Duration) bson.M {
	return bson.M{
		"_id":               orderID,
		"notification_sent": false,
		"$or": bson.A{
			bson.M{claimField: nil},
			bson.M{claimField: bson.M{"$lt": now.Add(-lease)}},
		},
	}
}

// List 分页查询订单列表
func (r *MongoOrderRepository) List(ctx context.Context, filter ListFilter) ([]*etorder.Order, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Location != "" {
		query["location"] = filter.Location
	}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"order_number": re},
			bson.M{"customer.name": re},
			bson.M{"customer.phone": re},
		}
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		query["created_at"] = created
	}
	p := filter.Pagination.Normalize()
	return r.page(ctx, query, p.Offset(), p.Limit)
}

// ListPendingNotifications 待通知订单
func (r *MongoOrderRepository) ListPendingNotifications(ctx context.Context, filter PendingFilter) ([]*etorder.Order, int64, error) {
	query := bson.M{
		"status":            string(etorder.StatusReady),
		"notification_sent": false,
		"customer.email":    bson.M{"$ne": ""},
	}
	if filter.Location != "" {
		query["location"] = filter.Location
	}
	if len(filter.OrderNumbers) > 0 {
		query["order_number"] = bson.M{"$in": filter.OrderNumbers}
	}
	p := filter.Pagination.Normalize()
	return r.page(ctx, query, p.Offset(), p.Limit)
}

// ListAttention 需要关注的订单
func (r *MongoOrderRepository) ListAttention(ctx context.Context, location string, staleBefore time.Time) ([]*etorder.Order, error) {
	query := bson.M{
		"$or": bson.A{
			bson.M{"status": string(etorder.StatusInProgress), "created_at": bson.M{"$lt": staleBefore}},
			bson.M{"status": string(etorder.StatusReady)},
		},
	}
	if location != "" {
		query["location"] = location
	}
	return r.find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// ListActivity 指定时间后有过变更的订单
func (r *MongoOrderRepository) ListActivity(ctx context.Context, location string, since time.Time) ([]*etorder.Order, error) {
	query := bson.M{
		"status":     bson.M{"$ne": string(etorder.StatusPending)},
		"updated_at": bson.M{"$gte": since},
	}
	if location != "" {
		query["location"] = location
	}
	return r.find(ctx, query, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
}

func (r *MongoOrderRepository) findOne(ctx context.Context, filter bson.M, ref string) (*etorder.Order, error) {
	var doc orderDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errorx.Newf(errorx.ErrOrderNotFound, "order %s not found", ref)
		}
		return nil, err
	}
	return doc.toDomain()
}

func (r *MongoOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*etorder.Order, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	orders := make([]*etorder.Order, 0, len(docs))
	for i := range docs {
		order, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *MongoOrderRepository) page(ctx context.Context, filter bson.M, offset, limit int) ([]*etorder.Order, int64, error) {
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	orders, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// orderDocument MongoDB 文档结构（金额以字符串保存，避免浮点误差）
type orderDocument struct {
	ID               string           `bson:"_id"`
	OrderNumber      string           `bson:"order_number"`
	Customer         customerDocument `bson:"customer"`
	Items            []itemDocument   `bson:"items"`
	TotalAmount      string           `bson:"total_amount"`
	TotalItems       int              `bson:"total_items"`
	Status           string           `bson:"status"`
	Location         string           `bson:"location"`
	Notes            string           `bson:"notes"`
	ReadyAt          *time.Time       `bson:"ready_at"`
	CollectedAt      *time.Time       `bson:"collected_at"`
	NotificationSent bool             `bson:"notification_sent"`
	NotifiedAt       *time.Time       `bson:"notified_at"`
	CreatedBy        string           `bson:"created_by"`
	Version          int64            `bson:"version"`
	CreatedAt        time.Time        `bson:"created_at"`
	UpdatedAt        time.Time        `bson:"updated_at"`
}

type customerDocument struct {
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
	Email string `bson:"email"`
}

type itemDocument struct {
	ID          string     `bson:"id"`
	ItemCode    string     `bson:"item_code"`
	ServiceCode string     `bson:"service_code"`
	ServiceName string     `bson:"service_name"`
	Quantity    int        `bson:"quantity"`
	UnitPrice   string     `bson:"unit_price"`
	TotalPrice  string     `bson:"total_price"`
	Status      string     `bson:"status"`
	Notes       string     `bson:"notes,omitempty"`
	ScannedAt   *time.Time `bson:"scanned_at,omitempty"`
	ScannedBy   string     `bson:"scanned_by,omitempty"`
}

func toOrderDocument(order *etorder.Order) *orderDocument {
	items := make([]itemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemDocument{
			ID:          item.ID,
			ItemCode:    item.ItemCode,
			ServiceCode: item.ServiceCode,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
			TotalPrice:  item.TotalPrice.String(),
			Status:      string(item.Status),
			Notes:       item.Notes,
			ScannedAt:   item.ScannedAt,
			ScannedBy:   item.ScannedBy,
		})
	}

	return &orderDocument{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Customer: customerDocument{
			Name:  order.Customer.Name,
			Phone: order.Customer.Phone,
			Email: order.Customer.Email,
		},
		Items:            items,
		TotalAmount:      order.TotalAmount.String(),
		TotalItems:       order.TotalItems,
		Status:           string(order.Status),
		Location:         order.Location,
		Notes:            order.Notes,
		ReadyAt:          order.ReadyAt,
		CollectedAt:      order.CollectedAt,
		NotificationSent: order.NotificationSent,
		NotifiedAt:       order.NotifiedAt,
		CreatedBy:        order.CreatedBy,
		Version:          order.Version,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func (d *orderDocument) toDomain() (*etorder.Order, error) {
	total, err := decimal.NewFromString(d.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount of order %s failed: %w", d.ID, err)
	}

	items := make([]*etorder.Item, 0, len(d.Items))
	for _, item := range d.Items {
		unit, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("parse unit_price of item %s failed: %w", item.ItemCode, err)
		}
		itemTotal, err := decimal.NewFromString(item.TotalPrice)
		if err != nil {
			return nil, fmt.Errorf("parse total_price of item %s failed: %w", item.ItemCode, err)
		}
		items = append(items, &etorder.Item{
			ID:          item.ID,
			ItemCode:    item.ItemCode,
			ServiceCode: item.ServiceCode,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
			TotalPrice:  itemTotal,
			Status:      etorder.ItemStatus(item.Status),
			Notes:       item.Notes,
			ScannedAt:   item.ScannedAt,
			ScannedBy:   item.ScannedBy,
		})
	}

	return &etorder.Order{
		ID:          d.ID,
		OrderNumber: d.OrderNumber,
		Customer: etorder.Customer{
			Name:  d.Customer.Name,
			Phone: d.Customer.Phone,
			Email: d.Customer.Email,
		},
		Items:            items,
		TotalAmount:      total,
		TotalItems:       d.TotalItems,
		Status:           etorder.Status(d.Status),
		Location:         d.Location,
		Notes:            d.Notes,
		ReadyAt:          d.ReadyAt,
		CollectedAt:      d.CollectedAt,
		NotificationSent: d.NotificationSent,
		NotifiedAt:       d.NotifiedAt,
		CreatedBy:        d.CreatedBy,
		Version:          d.Version,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}
