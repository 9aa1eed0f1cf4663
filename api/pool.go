package api

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"trello-cloney/domain"
)

var (
	activitiesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_activities_published_total",
			Help: "Board activities handed to the activity sink, by result",
		},
		[]string{"result"},
	)
	activityInlinePublishes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "board_activity_inline_publishes_total",
			Help: "Activity batches published inline because the worker buffer was full",
		},
	)
)

const (
	workersPerCPU      = 4
	minWorkers         = 4
	maxWorkers         = 64
	bufferPerWorker    = 64
	defaultTimeout     = 30 * time.Second
	defaultHandoffWait = 15 * time.Millisecond
)

// PublisherConfig sizes the activity worker pool. Zero values fall back to
// defaults derived from the CPU count; a negative HandoffTimeout disables
// waiting for buffer space.
type PublisherConfig struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

type publishJob struct {
	userID string
	acts   []domain.Activity
}

// ActivityPublisher hands activities to a bounded pool of workers that
// forward them to the sink. When the buffer stays full past the handoff
// timeout the caller publishes inline instead.
type ActivityPublisher struct {
	sink           ActivitySink
	log            *log.Logger
	jobs           chan publishJob
	timeout        time.Duration
	handoffTimeout time.Duration

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewActivityPublisher starts the worker pool.
func NewActivityPublisher(sink ActivitySink, logger *log.Logger, cfg PublisherConfig) *ActivityPublisher {
	if sink == nil {
		panic("api.NewActivityPublisher: sink is nil")
	}
	if logger == nil {
		panic("api.NewActivityPublisher: logger is nil")
	}
	workers, buffer := computeWorkerDefaults(runtime.NumCPU())
	if cfg.Workers > 0 {
		workers = cfg.Workers
	}
	if cfg.Buffer > 0 {
		buffer = cfg.Buffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch {
	case cfg.HandoffTimeout == 0:
		cfg.HandoffTimeout = defaultHandoffWait
	case cfg.HandoffTimeout < 0:
		cfg.HandoffTimeout = 0
	}

	p := &ActivityPublisher{
		sink:           sink,
		log:            logger,
		jobs:           make(chan publishJob, buffer),
		timeout:        cfg.Timeout,
		handoffTimeout: cfg.HandoffTimeout,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Infof("activity publisher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", workers, buffer, p.timeout, p.handoffTimeout)
	return p
}

func computeWorkerDefaults(cpu int) (workers, buffer int) {
	if cpu < 1 {
		cpu = 1
	}
	workers = cpu * workersPerCPU
	if workers < minWorkers {
		workers = minWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	return workers, workers * bufferPerWorker
}

// Publish schedules acts for delivery. It never fails the caller: errors are
// logged.
func (p *ActivityPublisher) Publish(userID string, acts []domain.Activity) {
	if len(acts) == 0 {
		return
	}
	job := publishJob{userID: userID, acts: acts}
	if p.tryEnqueue(job) {
		return
	}
	activityInlinePublishes.Inc()
	p.log.Warn("activity buffer saturated; publishing inline")
	p.publish(0, job)
}

// Close stops accepting work and waits for queued activities to be sent.
func (p *ActivityPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

func (p *ActivityPublisher) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.publish(id, j)
	}
}

func (p *ActivityPublisher) publish(worker int, j publishJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	err := p.sink.PublishActivities(ctx, j.userID, j.acts)
	cancel()
	if err != nil {
		activitiesPublished.WithLabelValues("error").Add(float64(len(j.acts)))
		p.log.Errorf("publish activities failed, err: %v, user: %s, count: %d, worker: %d", err, j.userID, len(j.acts), worker)
		return
	}
	activitiesPublished.WithLabelValues("ok").Add(float64(len(j.acts)))
}

func (p *ActivityPublisher) tryEnqueue(job publishJob) bool {
	if ok, closed := trySendNonBlocking(p.jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if p.handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(p.handoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(p.jobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan publishJob, job publishJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan publishJob, job publishJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}

// LogActivitySink writes activities to the structured log. It is used when no
// activity queue is configured.
type LogActivitySink struct {
	Log *log.Logger
}

func (s LogActivitySink) PublishActivities(_ context.Context, userID string, acts []domain.Activity) error {
	for _, a := range acts {
		s.Log.WithFields(log.Fields{
			"user":       userID,
			"view":       a.ViewID,
			"activity":   a.ID,
			"type":       a.Type,
			"entityType": a.EntityType,
			"entityId":   a.EntityID,
			"timestamp":  a.Timestamp,
		}).Info("board.activity")
	}
	return nil
}
