package framework

import "time"

const (
	defaultConsumeTimeout = 3 * time.Second
	defaultTTR            = time.Minute
	defaultErrorBackoff   = time.Second
	defaultProcessTimeout = 30 * time.Second
)

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	QueueName    string        // 队列名称
	Concurrency  int           // 并发拉取数
	Timeout      time.Duration // 拉取超时（lmstfy 长轮询）
	TTR          time.Duration // 超过该时间未 ACK 会重新投递
	Rate         time.Duration // 两次拉取间隔
	ErrorBackoff time.Duration // 错误退避时间
}

// Normalize 补齐默认值
func (c *SubscriberConfig) Normalize() {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultConsumeTimeout
	}
	if c.TTR <= 0 {
		c.TTR = defaultTTR
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = defaultErrorBackoff
	}
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Concurrency int           // 并发处理数
	BufferSize  int           // inputChan 缓冲区大小
	Timeout     time.Duration // 单个消息处理超时，应小于 TTR
}

// Normalize 补齐默认值
func (c *ProcessorConfig) Normalize() {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.BufferSize < 0 {
		c.BufferSize = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultProcessTimeout
	}
}
