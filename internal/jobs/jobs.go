package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
	"github.com/quyennt2020/device-repair-management-system-sub002/internal/service"
)

const (
	TaskCycle    = "approval:cycle"
	TaskDispatch = "notifications:dispatch"
)

type JobServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	client    *asynq.Client
	cycle     *service.Cycle
	notifs    *service.NotificationService
	interval  time.Duration
	log       *zap.Logger
}

func NewJobServer(redisAddr string, cycle *service.Cycle, notifs *service.NotificationService, interval time.Duration, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server:    server,
		scheduler: scheduler,
		client:    client,
		cycle:     cycle,
		notifs:    notifs,
		interval:  interval,
		log:       log,
	}, client
}

func (js *JobServer) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCycle, js.handleCycle)
	mux.HandleFunc(TaskDispatch, js.handleDispatch)

	spec := fmt.Sprintf("@every %s", js.interval)
	if _, err := js.scheduler.Register(spec, asynq.NewTask(TaskCycle, nil), asynq.Queue("default")); err != nil {
		return fmt.Errorf("failed to register cycle schedule: %w", err)
	}
	if err := js.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	return js.server.Start(mux)
}

func (js *JobServer) Stop() {
	js.scheduler.Shutdown()
	js.server.Shutdown()
	js.client.Close()
}

// EnqueueStartupCycle runs the full cycle once eagerly at process start.
func (js *JobServer) EnqueueStartupCycle() error {
	_, err := js.client.Enqueue(asynq.NewTask(TaskCycle, nil), asynq.Queue("critical"))
	return err
}

// Job handlers

func (js *JobServer) handleCycle(ctx context.Context, t *asynq.Task) error {
	js.cycle.Run(ctx, time.Now())
	return nil
}

func (js *JobServer) handleDispatch(ctx context.Context, t *asynq.Task) error {
	if err := js.notifs.ProcessPending(ctx, time.Now()); err != nil {
		return fmt.Errorf("dispatch pass failed: %w", err)
	}
	return nil
}

// AsynqJobClient implements service.JobClient using asynq. It nudges the
// dispatcher right after notifications are enqueued so urgent instances do
// not wait for the next scheduled cycle.
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

func (c *AsynqJobClient) EnqueueDispatch(urgency model.Urgency) error {
	_, err := c.client.Enqueue(
		asynq.NewTask(TaskDispatch, nil),
		asynq.Queue(queueForUrgency(urgency)),
	)
	return err
}

func queueForUrgency(urgency model.Urgency) string {
	switch urgency {
	case model.UrgencyCritical, model.UrgencyHigh:
		return "critical"
	case model.UrgencyLow:
		return "low"
	default:
		return "default"
	}
}
