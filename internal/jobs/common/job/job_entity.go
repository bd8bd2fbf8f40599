package job

import "encoding/json"

// Job 标准 Job 结构（生产方见 common/model.NotifyJob）
type Job struct {
	Payload *JobPayload `json:"payload"`
}

// JobPayload Job 负载
type JobPayload struct {
	Data *JobPayloadData `json:"data"`
}

// JobPayloadData Job 数据
// 业务数据保留原始 JSON，由具体 Handler 解析
type JobPayloadData struct {
	RequestID  string          `json:"request_id"`  // 请求 ID（TraceID）
	ActionType string          `json:"action_type"` // 动作类型（路由键）
	ID         string          `json:"id"`          // 业务 ID（订单 ID）
	Data       json.RawMessage `json:"data"`
}

// Meta 元数据
type Meta struct {
	RequestID  string
	ActionType string
	ID         string
	JobID      string // lmstfy job id
}
