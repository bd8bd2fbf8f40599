package bootstrap

import (
	"context"
	"fmt"

	"github.com/gorbenco03/curatire-backend/internal/app/config"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdevent"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svscan"
	"github.com/gorbenco03/curatire-backend/internal/app/infra/events"
	"github.com/gorbenco03/curatire-backend/internal/app/infra/mail"
	"github.com/gorbenco03/curatire-backend/internal/app/infra/mq/lmstfy"
	"github.com/gorbenco03/curatire-backend/internal/app/infra/persistence/mongo"
	"github.com/gorbenco03/curatire-backend/internal/app/infra/persistence/mysql"
	"github.com/gorbenco03/curatire-backend/internal/app/infra/persistence/redis"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

// Domain apiserver 和 notifier 共用的业务对象
type Domain struct {
	OrderModule   *mdorder.OrderModule
	EventModule   *mdevent.EventModule
	OrderService  *svorder.OrderService
	ScanService   *svscan.ScanService
	NotifyService *svnotify.NotifyService

	// Queue 为空表示未配置 lmstfy
	Queue *lmstfy.Client
}

// closer 按初始化的逆序释放资源
type closer struct {
	fns []func()
}

func (c *closer) add(fn func()) {
	c.fns = append(c.fns, fn)
}

func (c *closer) close() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}

// NewDomain 按配置初始化存储、消息通道和业务服务
// 返回的 cleanup 需要在进程退出前调用
func NewDomain(ctx context.Context, cfg *config.Config, log logger.Logger) (*Domain, func(), error) {
	c := &closer{}

	orderRepo, err := newOrderRepository(ctx, cfg, log, c)
	if err != nil {
		c.close()
		return nil, nil, err
	}

	// 1. 事件通道：Redis 实时频道 + Kafka 审计流，均为可选
	var broadcaster mdevent.Broadcaster
	if cfg.Redis.Addr != "" {
		pubsub, err := redis.NewPubSubClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			c.close()
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		c.add(func() { _ = pubsub.Close() })
		broadcaster = pubsub
		log.Infof(ctx, "[Bootstrap] redis connected: %s", cfg.Redis.Addr)
	}

	var audit mdevent.AuditWriter
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			c.close()
			return nil, nil, fmt.Errorf("failed to create kafka writer: %w", err)
		}
		c.add(func() { _ = writer.Close() })
		audit = writer
		log.Infof(ctx, "[Bootstrap] kafka audit topic: %s", cfg.Kafka.Topic)
	}

	// 2. 通知通道：SMTP 或日志
	var dispatcher mdnotify.Dispatcher
	if cfg.SMTP.Host != "" {
		mailer, err := mail.NewSMTPMailer(mail.Options{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			Phone:    cfg.SMTP.Phone,
		}, log)
		if err != nil {
			c.close()
			return nil, nil, fmt.Errorf("failed to create smtp mailer: %w", err)
		}
		dispatcher = mailer
	} else {
		log.Warnf(ctx, "[Bootstrap] smtp.host is empty, ready notifications are only logged")
		dispatcher = mail.NewLogDispatcher(log)
	}

	// 3. 重试队列
	var queue *lmstfy.Client
	var publisher mdnotify.JobPublisher
	if cfg.Lmstfy.Host != "" {
		queue, err = lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		if err != nil {
			c.close()
			return nil, nil, fmt.Errorf("failed to create lmstfy client: %w", err)
		}
		publisher = queue
	}

	// 4. 模块与服务
	orderModule := mdorder.NewOrderModule(orderRepo, cfg.Mutation.MaxRetries, log)
	eventModule := mdevent.NewEventModule(broadcaster, audit, log)
	notifyModule := mdnotify.NewNotifyModule(dispatcher, publisher, mdnotify.Options{
		Queue:      cfg.Lmstfy.Queue,
		Timeout:    cfg.Notification.Timeout,
		RetryDelay: cfg.Notification.RetryDelay,
		RetryTTL:   cfg.Notification.RetryTTL,
	}, log)

	notifyService := svnotify.NewNotifyService(orderModule, notifyModule, eventModule, svnotify.Options{
		BulkLimit:       cfg.Notification.BulkLimit,
		BulkConcurrency: cfg.Notification.BulkConcurrency,
		ClaimLease:      cfg.Notification.ClaimLease,
	}, log)

	// 进行中的异步通知先于连接关闭结束
	c.add(notifyService.Wait)

	return &Domain{
		OrderModule:   orderModule,
		EventModule:   eventModule,
		OrderService:  svorder.NewOrderService(orderModule, eventModule, nil, log),
		ScanService:   svscan.NewScanService(orderModule, eventModule, notifyService, log),
		NotifyService: notifyService,
		Queue:         queue,
	}, c.close, nil
}

// newOrderRepository 按 storage.driver 创建订单仓储
func newOrderRepository(ctx context.Context, cfg *config.Config, log logger.Logger, c *closer) (rporder.OrderRepository, error) {
	switch cfg.Storage.Driver {
	case config.DriverMySQL:
		db, err := mysql.Open(mysql.Options{
			DSN:             cfg.MySQL.DSN,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			Debug:           cfg.MySQL.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect mysql: %w", err)
		}
		c.add(func() { _ = mysql.Close(db) })

		if err := rporder.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate mysql schema: %w", err)
		}
		log.Infof(ctx, "[Bootstrap] storage: mysql")
		return rporder.NewOrderRepository(db), nil

	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Options{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			MaxPoolSize:    cfg.Mongo.MaxPoolSize,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect mongo: %w", err)
		}
		c.add(func() { _ = mongo.Disconnect(context.Background(), client) })

		repo := rporder.NewMongoOrderRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		log.Infof(ctx, "[Bootstrap] storage: mongo (%s)", cfg.Mongo.Database)
		return repo, nil

	case config.DriverMemory:
		log.Warnf(ctx, "[Bootstrap] storage: memory, data is lost on restart")
		return rporder.NewMemoryOrderRepository(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
