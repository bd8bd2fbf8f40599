package model

// ActionNotifyReady 取件通知重试任务
const ActionNotifyReady = "order_notify_ready"

// 通知重试任务步骤
const (
	NotifyStepSend = "send" // 重新判断并发送（缺省）
	NotifyStepMark = "mark" // 邮件已发出，只补写已通知标记
)

// NotifyJob 通知重试任务消息（标准化）
// 用于 apiserver → notifier 的消息传递
type NotifyJob struct {
	Payload NotifyPayload `json:"payload"`
}

// NotifyPayload Job 负载
type NotifyPayload struct {
	Data NotifyData `json:"data"`
}

// NotifyData Job 数据层
type NotifyData struct {
	// 元信息
	RequestID  string `json:"request_id"`  // 请求 ID（全链路追踪）
	ActionType string `json:"action_type"` // 动作类型
	ID         string `json:"id"`          // 订单 ID

	// 业务数据
	Data NotifyBusinessData `json:"data"`
}

// NotifyBusinessData 通知业务数据
// notifier 会重新读取订单判断是否仍需发送，这里只携带定位信息
type NotifyBusinessData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Step        string `json:"step,omitempty"`   // NotifyStepSend | NotifyStepMark，为空按 send 处理
	Reason      string `json:"reason,omitempty"` // 上一次失败原因
}
