package framework

import (
	"context"
	"sync"
	"time"

	"github.com/bitleak/lmstfy/client"

	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
	"github.com/gorbenco03/curatire-backend/pkg/lmstfyx"
)

// Processor 处理器：接收消息，调用业务处理函数，按结果确认消息
type Processor struct {
	cfg        *ProcessorConfig
	source     MessageSource // 用于 ACK
	proc       lmstfyx.Proc  // 业务处理函数（注入的 GetProcess）
	logger     logger.Logger
	shutdownCh chan struct{} // 专门的退出信号通道
	wg         sync.WaitGroup
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, source MessageSource, proc lmstfyx.Proc, log logger.Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		source:     source,
		proc:       proc,
		logger:     log,
		shutdownCh: make(chan struct{}),
	}
}

// Start 启动处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) {
	p.logger.Infof(ctx, "[Processor] Starting with %d workers", p.cfg.Concurrency)

	for i := 0; i < p.cfg.Concurrency; i++ {
		workerID := i
		p.wg.Add(1)
		go p.loop(ctx, workerID, inputChan)
	}
}

// SignalShutdown 通知 Processor 准备退出（进入 Drain 模式）
func (p *Processor) SignalShutdown() {
	p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	p.logger.Infof(context.Background(), "[Processor] All workers exited")
}

// loop 处理循环（单个 Worker）
func (p *Processor) loop(ctx context.Context, workerID int, inputChan <-chan *Message) {
	defer p.wg.Done()
	ctx = context.WithValue(ctx, logger.KeyWorkerID, workerID)
	p.logger.Infof(ctx, "[Processor-%d] Started", workerID)

	for {
		select {
		// A. 正常业务处理
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)

		// B. Drain 模式：处理完剩余消息再退出
		case <-p.shutdownCh:
			p.logger.Infof(ctx, "[Processor-%d] Entering DRAIN mode", workerID)
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.process(ctx, msg, workerID)
					count++
				default:
					p.logger.Infof(ctx, "[Processor-%d] Drained %d messages, exiting", workerID, count)
					return
				}
			}
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message, workerID int) {
	if msg == nil {
		return
	}

	startTime := time.Now()

	procCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	p.logger.Debugf(procCtx, "[Processor-%d] Processing message: %s", workerID, msg.ID)

	resp := p.proc(procCtx, &client.Job{
		ID:    msg.ID,
		Queue: msg.Queue,
		Data:  msg.Data,
	})
	if resp == nil {
		resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusRelease}
	}

	p.logger.Infof(procCtx, "[Processor-%d] Message processed: %s, action: %s, duration: %v",
		workerID, msg.ID, resp.Action, time.Since(startTime))

	p.report(ctx, msg, resp.Action)
}

// report 执行 ACK/Bury/Release
// lmstfy 客户端没有 bury 接口：不可重试的消息直接确认，只保留 ERROR 日志
// Release 不做任何操作，TTR 到期后重新投递
func (p *Processor) report(ctx context.Context, msg *Message, action lmstfyx.JobRespStatus) {
	switch action {
	case lmstfyx.JobRespStatusSuccess:
		if err := p.source.Ack(msg.Queue, msg.ID); err != nil {
			p.logger.Errorf(ctx, "[Processor] ack message %s failed: %v", msg.ID, err)
		}
	case lmstfyx.JobRespStatusBury:
		p.logger.Errorf(ctx, "[Processor] burying message %s from queue %s: %s", msg.ID, msg.Queue, string(msg.Data))
		if err := p.source.Ack(msg.Queue, msg.ID); err != nil {
			p.logger.Errorf(ctx, "[Processor] ack buried message %s failed: %v", msg.ID, err)
		}
	case lmstfyx.JobRespStatusRelease:
		p.logger.Infof(ctx, "[Processor] message %s released for redelivery", msg.ID)
	}
}
