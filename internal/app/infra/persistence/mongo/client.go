package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Options MongoDB 连接配置
type Options struct {
	URI            string
	Database       string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

// Connect 建立连接并检查可用性
func Connect(ctx context.Context, opts Options) (*mongo.Client, *mongo.Database, error) {
	if opts.URI == "" || opts.Database == "" {
		return nil, nil, fmt.Errorf("mongo uri and database are required")
	}
	if opts.MaxPoolSize == 0 {
		opts.MaxPoolSize = 50
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	clientOptions := options.Client().ApplyURI(opts.URI).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetConnectTimeout(opts.ConnectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, 2*opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(opts.Database), nil
}

// Disconnect 关闭连接
func Disconnect(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
