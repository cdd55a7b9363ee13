package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// TaskKind is one of the closed set of hands-on task shapes.
type TaskKind string

const (
	TaskConfigEdit     TaskKind = "config_edit"
	TaskCommand        TaskKind = "command"
	TaskLogSearch      TaskKind = "log_search"
	TaskMultipleChoice TaskKind = "multiple_choice"
)

// TaskRequest describes the work an operator is doing when a task is requested.
type TaskRequest struct {
	IncidentID          string `json:"incidentId,omitempty"`
	IncidentName        string `json:"incidentName"`
	IncidentDescription string `json:"incidentDescription"`
	ActionName          string `json:"actionName"`
	ActionDescription   string `json:"actionDescription"`
	TargetNodeID        string `json:"targetNodeId"`
}

// ConfigEdit asks the operator to change one value in a file.
type ConfigEdit struct {
	FileName      string `json:"fileName"`
	Content       string `json:"content"`
	Key           string `json:"key"`
	CurrentValue  string `json:"currentValue"`
	ExpectedValue string `json:"expectedValue"`
}

// CommandTask asks for a shell command matching a pattern.
type CommandTask struct {
	Prompt          string   `json:"prompt"`
	ExpectedPattern string   `json:"expectedPattern"`
	Hints           []string `json:"hints,omitempty"`
}

// LogSearch asks the operator to find the offending line in a log excerpt.
type LogSearch struct {
	Lines       []string `json:"lines"`
	AnswerIndex int      `json:"answerIndex"`
}

// MultipleChoice is a plain question with one correct option.
type MultipleChoice struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
}

// Task is a validated interactive task. Exactly one kind-specific field is set.
type Task struct {
	Kind           TaskKind        `json:"kind"`
	Title          string          `json:"title"`
	Explanation    string          `json:"explanation,omitempty"`
	ConfigEdit     *ConfigEdit     `json:"configEdit,omitempty"`
	Command        *CommandTask    `json:"command,omitempty"`
	LogSearch      *LogSearch      `json:"logSearch,omitempty"`
	MultipleChoice *MultipleChoice `json:"multipleChoice,omitempty"`
}

// ErrAnswerType is returned by Check when the answer has the wrong shape.
var ErrAnswerType = errors.New("answer does not fit task kind")

// Validate checks that a task is internally consistent.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task: missing title")
	}
	switch t.Kind {
	case TaskConfigEdit:
		c := t.ConfigEdit
		if c == nil {
			return fmt.Errorf("task %q: missing config edit data", t.Title)
		}
		if c.Key == "" || c.CurrentValue == "" || c.ExpectedValue == "" {
			return fmt.Errorf("task %q: empty config expectation", t.Title)
		}
		if c.CurrentValue == c.ExpectedValue {
			return fmt.Errorf("task %q: expected value equals current value", t.Title)
		}
		if !strings.Contains(c.Content, c.CurrentValue) {
			return fmt.Errorf("task %q: content does not contain current value %q", t.Title, c.CurrentValue)
		}
	case TaskCommand:
		c := t.Command
		if c == nil || c.Prompt == "" || c.ExpectedPattern == "" {
			return fmt.Errorf("task %q: missing command expectation", t.Title)
		}
		if _, err := regexp.Compile(c.ExpectedPattern); err != nil {
			return fmt.Errorf("task %q: bad command pattern: %w", t.Title, err)
		}
	case TaskLogSearch:
		l := t.LogSearch
		if l == nil || len(l.Lines) == 0 {
			return fmt.Errorf("task %q: missing log lines", t.Title)
		}
		if l.AnswerIndex < 0 || l.AnswerIndex >= len(l.Lines) {
			return fmt.Errorf("task %q: answer %d out of range", t.Title, l.AnswerIndex)
		}
	case TaskMultipleChoice:
		m := t.MultipleChoice
		if m == nil || m.Question == "" || len(m.Options) < 2 {
			return fmt.Errorf("task %q: need a question and at least two options", t.Title)
		}
		if m.AnswerIndex < 0 || m.AnswerIndex >= len(m.Options) {
			return fmt.Errorf("task %q: answer %d out of range", t.Title, m.AnswerIndex)
		}
	default:
		return fmt.Errorf("task %q: unknown kind %q", t.Title, t.Kind)
	}
	return nil
}

// Check grades an operator answer. Config edits take the edited file content,
// commands take the typed command, the other kinds take the chosen index.
func (t *Task) Check(answer any) (bool, error) {
	switch t.Kind {
	case TaskConfigEdit:
		s, ok := answer.(string)
		if !ok {
			return false, ErrAnswerType
		}
		c := t.ConfigEdit
		return s != c.Content && strings.Contains(s, c.ExpectedValue), nil
	case TaskCommand:
		s, ok := answer.(string)
		if !ok {
			return false, ErrAnswerType
		}
		re, err := regexp.Compile(t.Command.ExpectedPattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(strings.TrimSpace(s)), nil
	case TaskLogSearch:
		i, ok := answer.(int)
		if !ok {
			return false, ErrAnswerType
		}
		return i == t.LogSearch.AnswerIndex, nil
	case TaskMultipleChoice:
		i, ok := answer.(int)
		if !ok {
			return false, ErrAnswerType
		}
		return i == t.MultipleChoice.AnswerIndex, nil
	}
	return false, fmt.Errorf("task: unknown kind %q", t.Kind)
}

// ParseTask decodes and validates model output.
func ParseTask(b []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &t, nil
}

func taskPrompt(req TaskRequest) string {
	var b strings.Builder
	b.WriteString("You design short hands-on exercises for on-call engineers.\n")
	fmt.Fprintf(&b, "Incident: %s. %s\n", req.IncidentName, req.IncidentDescription)
	fmt.Fprintf(&b, "Remediation being applied: %s. %s\n", req.ActionName, req.ActionDescription)
	fmt.Fprintf(&b, "Target node: %s\n", req.TargetNodeID)
	b.WriteString("Reply with JSON only: one task with kind config_edit, command, log_search or multiple_choice, a title, ")
	b.WriteString("an explanation and exactly one matching object: configEdit{fileName,content,key,currentValue,expectedValue}, ")
	b.WriteString("command{prompt,expectedPattern,hints}, logSearch{lines,answerIndex} or multipleChoice{question,options,answerIndex}.\n")
	b.WriteString("For config_edit the content must literally contain currentValue.\n")
	return b.String()
}
