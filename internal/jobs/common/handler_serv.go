package common

import (
	"context"
	"encoding/json"

	"github.com/gorbenco03/curatire-backend/internal/jobs/common/job"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common/response"
)

// RetryNotifier 重试通知入口（svnotify.NotifyService）
type RetryNotifier interface {
	// HandleRetry 重新判断并发送
	HandleRetry(ctx context.Context, orderID string) error
	// HandleMarkRetry 只补写已通知标记
	HandleMarkRetry(ctx context.Context, orderID string) error
}

// Deps Handler 依赖
type Deps struct {
	Notifier RetryNotifier
}

// HandlerServProc Handler 构造函数类型
type HandlerServProc func(ctx context.Context, meta *job.Meta, payload json.RawMessage, deps *Deps) (HandlerServ, error)

// HandlerServ Handler 接口
type HandlerServ interface {
	GetProcess() *response.Response
}
