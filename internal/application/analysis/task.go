package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Task 分析任务类型
type Task string

const (
	TaskCharacters Task = "characters"
	TaskLanguage   Task = "language"
	TaskSentiment  Task = "sentiment"
	TaskSummary    Task = "summary"
)

var taskPrompts = map[Task]string{
	TaskCharacters: "List the characters mentioned in the following text, with a short description of each.",
	TaskLanguage:   "Identify the language the following text is written in.",
	TaskSentiment:  "Describe the overall sentiment of the following text as positive, negative or neutral.",
	TaskSummary:    "Summarize the following text.",
}

// Tasks 返回全部支持的任务，顺序固定
func Tasks() []Task {
	return []Task{TaskCharacters, TaskLanguage, TaskSentiment, TaskSummary}
}

// ParseTask 解析任务名（大小写不敏感）
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := taskPrompts[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
	return t, nil
}

// Prompt 返回任务对应的指令
func (t Task) Prompt() string {
	return taskPrompts[t]
}

// Valid 判断任务是否受支持
func (t Task) Valid() bool {
	_, ok := taskPrompts[t]
	return ok
}

// ValidateBookID 校验图书 ID 为正整数
func ValidateBookID(id string) error {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidBookID, id)
	}
	return nil
}
