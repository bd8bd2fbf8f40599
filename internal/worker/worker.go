package worker

import (
	"context"
	"fmt"

	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
	"github.com/gorbenco03/curatire-backend/internal/framework"
	"github.com/gorbenco03/curatire-backend/pkg/lmstfyx"
)

// Worker 一个队列对应一个 Worker
type Worker interface {
	Start()
	Shutdown()
	GetName() string
}

// WorkerInstance Subscriber -> inputChan -> Processor
type WorkerInstance struct {
	ctx        context.Context
	name       string
	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message
	done       chan struct{}
	logger     logger.Logger
}

// NewWorkerInstance 创建 Worker 实例
func NewWorkerInstance(
	ctx context.Context,
	name string,
	subscriberCfg *framework.SubscriberConfig,
	processorCfg *framework.ProcessorConfig,
	source framework.MessageSource,
	proc lmstfyx.Proc,
	log logger.Logger,
) (Worker, error) {
	if subscriberCfg.QueueName == "" {
		return nil, fmt.Errorf("worker %s: queue name is required", name)
	}
	subscriberCfg.Normalize()
	processorCfg.Normalize()

	return &WorkerInstance{
		ctx:        ctx,
		name:       name,
		subscriber: framework.NewSubscriber(subscriberCfg, source, log),
		processor:  framework.NewProcessor(processorCfg, source, proc, log),
		inputChan:  make(chan *framework.Message, processorCfg.BufferSize),
		done:       make(chan struct{}),
		logger:     log,
	}, nil
}

// Start 先启动消费端再启动拉取端，阻塞到 Shutdown 完成
func (w *WorkerInstance) Start() {
	w.logger.Infof(w.ctx, "[Worker] %s started", w.name)

	w.processor.Start(w.ctx, w.inputChan)
	w.subscriber.Start(w.ctx, w.inputChan)

	<-w.done
}

// Shutdown 停止拉取 -> 等拉取协程退出 -> Processor 处理完缓冲区 -> 退出
func (w *WorkerInstance) Shutdown() {
	w.logger.Infof(w.ctx, "[Worker] %s began to close", w.name)

	w.subscriber.Stop()
	w.subscriber.Wait()

	w.processor.SignalShutdown()
	w.processor.Wait()

	close(w.done)
	w.logger.Infof(w.ctx, "[Worker] %s shutdown complete", w.name)
}

// GetName 获取 Worker 名称
func (w *WorkerInstance) GetName() string {
	return w.name
}
