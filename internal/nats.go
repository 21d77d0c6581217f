package internal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

const gatherSubject = "lol.match.gather"

type NATSClient struct {
	Conn   *nats.Conn
	logger *Logger
}

func NewNATSClient(cfg *Config, logger *Logger) (*NATSClient, error) {
	conn, err := nats.Connect(cfg.NATSUrl,
		nats.Name(cfg.NATSClientID),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSClient{Conn: conn, logger: logger}, nil
}

func (nc *NATSClient) Publish(subject string, data []byte) error {
	return nc.Conn.Publish(subject, data)
}

func (nc *NATSClient) PublishGatherTask(task GatherTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return nc.Publish(gatherSubject, data)
}

// StartGatherWorker consumes gather tasks and drives the query runner. Tasks
// are queue-subscribed so multiple instances share the load.
func (nc *NATSClient) StartGatherWorker(runner *QueryRunner, profiler *Profiler) (*nats.Subscription, error) {
	handler := func(msg *nats.Msg) {
		nc.processGatherTask(msg, runner, profiler)
	}

	sub, err := nc.Conn.QueueSubscribe(gatherSubject, "gather-workers", handler)
	if err != nil {
		return nil, err
	}

	nc.logger.Info("gather_worker_started").
		Component("nats").
		Operation("start_worker").
		Worker("gather-workers", "gather").
		Log()
	return sub, nil
}

func (nc *NATSClient) processGatherTask(msg *nats.Msg, runner *QueryRunner, profiler *Profiler) {
	var task GatherTask
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		nc.logger.Error("gather_task_unmarshal_failed").
			Component("nats").
			Operation("process_task").
			Worker("gather-workers", "gather").
			Err(err).
			Log()
		return
	}

	rank, err := RankFromTier(task.Tier, task.Division)
	if err != nil {
		nc.logger.Error("gather_task_invalid_rank").
			Component("nats").
			Operation("process_task").
			Worker("gather-workers", "gather").
			Game("", task.Platform, task.Tier).
			Err(err).
			Log()
		return
	}

	nc.logger.Info("gather_task_received").
		Component("nats").
		Operation("process_task").
		Worker("gather-workers", "gather").
		Game("", task.Platform, task.Tier).
		Meta("target", task.TargetMatches).
		Log()

	ctx := context.Background()
	var processed int
	err = profiler.ProfileFunction(ctx, "query_matches", func() error {
		var runErr error
		processed, runErr = runner.QueryMatches(ctx, task.Platform, rank, task.StartTime, task.EndTime, task.TargetMatches)
		return runErr
	})
	if err != nil {
		nc.logger.Error("gather_task_failed").
			Component("nats").
			Operation("process_task").
			Worker("gather-workers", "gather").
			Game("", task.Platform, task.Tier).
			Err(err).
			Log()
		return
	}

	nc.logger.Info("gather_task_completed").
		Component("nats").
		Operation("process_task").
		Worker("gather-workers", "gather").
		Game("", task.Platform, task.Tier).
		Meta("processed", processed).
		Meta("target", task.TargetMatches).
		Log()
}
