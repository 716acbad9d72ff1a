package worker

import (
	"github.com/hibiken/asynq"
)

// Client wraps the asynq client for enqueueing notification tasks
type Client struct {
	client *asynq.Client
}

func NewClient(addr string, password string, db int) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: c}
}

func (c *Client) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.Enqueue(task, opts...)
}

func (c *Client) Close() error {
	return c.client.Close()
}
