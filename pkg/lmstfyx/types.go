package lmstfyx

import (
	"context"

	"github.com/bitleak/lmstfy/client"
)

// Proc 任务处理函数（jobs.GetProcess 的返回值）
type Proc func(ctx context.Context, job *client.Job) *JobResp

// JobRespStatus 任务处理后对消息的动作
type JobRespStatus int

const (
	// JobRespStatusSuccess 处理完成，ACK
	JobRespStatusSuccess JobRespStatus = iota
	// JobRespStatusRelease 暂时失败，不 ACK，TTR 到期后重新投递
	JobRespStatusRelease
	// JobRespStatusBury 永久失败，ACK 并记录 ERROR 日志
	JobRespStatusBury
)

// String 日志展示
func (s JobRespStatus) String() string {
	switch s {
	case JobRespStatusSuccess:
		return "success"
	case JobRespStatusRelease:
		return "release"
	case JobRespStatusBury:
		return "bury"
	default:
		return "unknown"
	}
}

// JobResp 任务处理结果
type JobResp struct {
	Action JobRespStatus
	Data   []byte // 序列化后的处理结果，只用于日志
}
