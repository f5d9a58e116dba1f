package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type jobKind int

const (
	jobPDF jobKind = iota
	jobEmail
)

type job struct {
	kind       jobKind
	artifactID string
}

// Processor 单个产物的执行器
type Processor interface {
	Process(ctx context.Context, artifactID string) error
}

// Dispatcher 产物执行调度器
// 固定大小的 goroutine 池消费一条缓冲队列；队列满时丢弃并告警，
// 被丢弃的产物保持 pending，可由管理端重试补投。
type Dispatcher struct {
	jobs   chan job
	pdf    Processor
	email  Processor
	logger *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher 创建调度器
func NewDispatcher(pdfWorker, emailWorker Processor, queueSize int, logger *zap.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 64
	}
	return &Dispatcher{
		jobs:   make(chan job, queueSize),
		pdf:    pdfWorker,
		email:  emailWorker,
		logger: logger,
	}
}

// Start 启动工作池；ctx 取消后不再接收新任务，存量任务继续执行完
func (d *Dispatcher) Start(ctx context.Context, poolSize int) {
	if poolSize < 1 {
		poolSize = 1
	}
	for i := 0; i < poolSize; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
	d.logger.Info("产物工作池已启动",
		zap.Int("pool_size", poolSize), zap.Int("queue_size", cap(d.jobs)))
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for j := range d.jobs {
		var (
			processor Processor
			kind      string
		)
		switch j.kind {
		case jobPDF:
			processor, kind = d.pdf, "pdf"
		case jobEmail:
			processor, kind = d.email, "email"
		default:
			continue
		}

		if err := processor.Process(ctx, j.artifactID); err != nil {
			d.logger.Error("产物执行失败",
				zap.String("kind", kind),
				zap.String("artifact_id", j.artifactID),
				zap.Error(err))
		}
	}
}

// Stop 关闭队列并等待存量任务处理完毕
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

// EnqueuePDF 投递 PDF 生成任务（非阻塞）
func (d *Dispatcher) EnqueuePDF(artifactID string) {
	d.enqueue(job{kind: jobPDF, artifactID: artifactID})
}

// EnqueueEmail 投递邮件发送任务（非阻塞）
func (d *Dispatcher) EnqueueEmail(artifactID string) {
	d.enqueue(job{kind: jobEmail, artifactID: artifactID})
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case d.jobs <- j:
	default:
		d.logger.Warn("产物队列已满，任务被丢弃，可在管理端重试",
			zap.String("artifact_id", j.artifactID))
	}
}
