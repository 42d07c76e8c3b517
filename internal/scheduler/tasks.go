package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCampaignTick = "campaign.tick"

const TaskReplyCheck = "replies.check"

const TaskDailyReset = "campaign.daily_reset"

const TaskDailyReport = "report.daily"

type DailyResetPayload struct {
	Date string `json:"date"`
}

type DailyReportPayload struct {
	To string `json:"to,omitempty"`
}

func NewCampaignTickTask() *asynq.Task {
	return asynq.NewTask(TaskCampaignTick, nil)
}

func NewReplyCheckTask() *asynq.Task {
	return asynq.NewTask(TaskReplyCheck, nil)
}

func NewDailyResetTask(payload DailyResetPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailyReset, data), nil
}

func ParseDailyResetPayload(task *asynq.Task) (DailyResetPayload, error) {
	var payload DailyResetPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DailyResetPayload{}, err
	}
	return payload, nil
}

func NewDailyReportTask(payload DailyReportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailyReport, data), nil
}

func ParseDailyReportPayload(task *asynq.Task) (DailyReportPayload, error) {
	var payload DailyReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DailyReportPayload{}, err
	}
	return payload, nil
}
