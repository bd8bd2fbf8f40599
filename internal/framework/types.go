package framework

import "time"

// Message 消息结构（框架内部流转）
type Message struct {
	ID    string // 消息 ID
	Queue string // 队列名称
	Data  []byte // 原始 Job 数据
}

// MessageSource 消息源（infra/mq/lmstfy.Client）
type MessageSource interface {
	// Consume 长轮询拉取一条消息，超时未拉到返回 nil, nil
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 确认消息（删除消息）
	Ack(queue string, jobID string) error
}
