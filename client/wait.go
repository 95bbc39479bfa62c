package client

import (
	"context"
	"fmt"
	"time"

	"bluegreen-api/domain"
)

// WaitForTask polls ListTasks until a task with id shows up. The interval
// doubles after each miss, capped at one second.
func (c *Client) WaitForTask(ctx context.Context, id int64, interval time.Duration) (domain.Task, error) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	var lastErr error
	for {
		list, err := c.ListTasks(ctx)
		if err == nil {
			for _, t := range list.Tasks {
				if t.ID == id {
					return t, nil
				}
			}
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return domain.Task{}, fmt.Errorf("task %d not visible: %w (last error: %v)", id, ctx.Err(), lastErr)
			}
			return domain.Task{}, fmt.Errorf("task %d not visible: %w", id, ctx.Err())
		case <-time.After(interval):
		}
		interval = min(interval*2, time.Second)
	}
}
