package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common/job"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common/response"
)

// NotifyHandler 取件通知重试 Handler
type NotifyHandler struct {
	ctx      context.Context
	meta     *job.Meta
	data     model.NotifyBusinessData
	notifier common.RetryNotifier
}

// NewNotifyHandler 解析通知重试任务
func NewNotifyHandler(ctx context.Context, meta *job.Meta, payload json.RawMessage, deps *common.Deps) (common.HandlerServ, error) {
	if deps == nil || deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is not configured")
	}

	var data model.NotifyBusinessData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errorx.Wrap(errorx.ErrValidation, fmt.Errorf("unmarshal notify data failed: %w", err))
	}
	if data.OrderID == "" {
		data.OrderID = meta.ID
	}
	if data.OrderID == "" {
		return nil, errorx.New(errorx.ErrValidation, "order_id is required")
	}
	switch data.Step {
	case "":
		data.Step = model.NotifyStepSend
	case model.NotifyStepSend, model.NotifyStepMark:
	default:
		return nil, errorx.Newf(errorx.ErrValidation, "unknown notify step %q", data.Step)
	}

	return &NotifyHandler{
		ctx:      ctx,
		meta:     meta,
		data:     data,
		notifier: deps.Notifier,
	}, nil
}

// GetProcess 按任务步骤重新发送，或只补写已通知标记
func (h *NotifyHandler) GetProcess() *response.Response {
	result := response.NewNotifyResult(h.data.OrderNumber)

	var err error
	if h.data.Step == model.NotifyStepMark {
		err = h.notifier.HandleMarkRetry(h.ctx, h.data.OrderID)
	} else {
		err = h.notifier.HandleRetry(h.ctx, h.data.OrderID)
	}

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)
	return resp
}
