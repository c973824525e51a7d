package messaging

import (
	"context"
	"fmt"
	"time"
)

// JobProcessor 执行单个异步分析任务，由 analysis.JobService 实现
type JobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

// AnalysisJobHandler 将分析任务消息交给 JobProcessor，timeout > 0 时限制单任务耗时
func AnalysisJobHandler(jobs JobProcessor, timeout time.Duration) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		var payload AnalysisJobMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decode analysis job payload: %w", err)
		}
		if payload.JobID == "" {
			return fmt.Errorf("analysis job message %s has no job id", msg.ID)
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return jobs.Process(ctx, payload.JobID)
	}
}
