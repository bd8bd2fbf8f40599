package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common/job"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common/response"
	"github.com/gorbenco03/curatire-backend/pkg/lmstfyx"
)

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, deps *common.Deps) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		meta, payload, err := parseJob(lmstfyJob)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: job=%s, err=%v", lmstfyJob.ID, err)
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}

		// 2. 注入 TraceID 到 Context
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		ctx = context.WithValue(ctx, logger.KeyActionType, meta.ActionType)
		ctx = context.WithValue(ctx, logger.KeyOrderID, meta.ID)

		log.Infof(ctx, "[GetProcess] Processing job: job=%s, action_type=%s", meta.JobID, meta.ActionType)

		// 3. 从 HandlerMap 获取 Handler
		handlerFunc, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}

		// 4. 调用 Handler（捕获 panic）
		var resp *lmstfyx.JobResp
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
					resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
				}
			}()

			handler, err := handlerFunc(ctx, meta, payload, deps)
			if err != nil {
				log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
				resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
				return
			}

			resp = doJobReport(ctx, handler.GetProcess(), log)
		}()

		log.Infof(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))
		return resp
	}
}

// parseJob 解析 Job
func parseJob(lmstfyJob *client.Job) (*job.Meta, json.RawMessage, error) {
	var standardJob job.Job
	if err := json.Unmarshal(lmstfyJob.Data, &standardJob); err != nil {
		return nil, nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if standardJob.Payload == nil || standardJob.Payload.Data == nil {
		return nil, nil, fmt.Errorf("invalid job structure: payload.data is nil")
	}

	data := standardJob.Payload.Data
	if data.ActionType == "" {
		return nil, nil, fmt.Errorf("invalid job structure: action_type is empty")
	}

	meta := &job.Meta{
		RequestID:  data.RequestID,
		ActionType: data.ActionType,
		ID:         data.ID,
		JobID:      lmstfyJob.ID,
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}

	return meta, data.Data, nil
}

// doJobReport 根据 Response 判断 ACK/Bury/Release
// 可重试的失败不确认，等 TTR 到期后由 lmstfy 重新投递
func doJobReport(ctx context.Context, resp *response.Response, log logger.Logger) *lmstfyx.JobResp {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Errorf(ctx, "[doJobReport] marshal response failed: %v", err)
		data = nil
	}

	switch {
	case resp.Processed:
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusSuccess, Data: data}
	case resp.Error != nil && resp.Error.Retryable:
		log.Warnf(ctx, "[doJobReport] job failed, waiting for redelivery: %s", resp.Error.Message)
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusRelease, Data: data}
	default:
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury, Data: data}
	}
}
