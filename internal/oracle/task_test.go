package oracle

import (
	"errors"
	"testing"
)

func TestTaskValidate(t *testing.T) {
	good := []Task{
		{Kind: TaskConfigEdit, Title: "Raise pool", ConfigEdit: &ConfigEdit{
			FileName: "db.yaml", Content: "pool_size: 20\ntimeout: 5s\n", Key: "pool_size", CurrentValue: "20", ExpectedValue: "80"}},
		{Kind: TaskCommand, Title: "Restart", Command: &CommandTask{Prompt: "restart the app", ExpectedPattern: `^systemctl restart app$`}},
		{Kind: TaskLogSearch, Title: "Find it", LogSearch: &LogSearch{Lines: []string{"ok", "OOM killed"}, AnswerIndex: 1}},
		{Kind: TaskMultipleChoice, Title: "Why", MultipleChoice: &MultipleChoice{Question: "?", Options: []string{"a", "b"}, AnswerIndex: 0}},
	}
	for _, task := range good {
		if err := task.Validate(); err != nil {
			t.Fatalf("%s: unexpected error %v", task.Kind, err)
		}
	}

	bad := map[string]Task{
		"content lacks current": {Kind: TaskConfigEdit, Title: "x", ConfigEdit: &ConfigEdit{
			Content: "pool_size: 10", Key: "pool_size", CurrentValue: "20", ExpectedValue: "80"}},
		"no change":        {Kind: TaskConfigEdit, Title: "x", ConfigEdit: &ConfigEdit{Content: "a: 1", Key: "a", CurrentValue: "1", ExpectedValue: "1"}},
		"bad pattern":      {Kind: TaskCommand, Title: "x", Command: &CommandTask{Prompt: "p", ExpectedPattern: "("}},
		"log out of range": {Kind: TaskLogSearch, Title: "x", LogSearch: &LogSearch{Lines: []string{"a"}, AnswerIndex: 1}},
		"one option":       {Kind: TaskMultipleChoice, Title: "x", MultipleChoice: &MultipleChoice{Question: "q", Options: []string{"a"}}},
		"kind mismatch":    {Kind: TaskLogSearch, Title: "x", Command: &CommandTask{Prompt: "p", ExpectedPattern: "p"}},
		"unknown kind":     {Kind: "essay", Title: "x"},
		"no title":         {Kind: TaskMultipleChoice, MultipleChoice: &MultipleChoice{Question: "q", Options: []string{"a", "b"}}},
	}
	for name, task := range bad {
		if err := task.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestTaskCheck(t *testing.T) {
	edit := Task{Kind: TaskConfigEdit, Title: "Raise pool", ConfigEdit: &ConfigEdit{
		Content: "pool_size: 20\n", Key: "pool_size", CurrentValue: "20", ExpectedValue: "80"}}
	if ok, _ := edit.Check("pool_size: 80\n"); !ok {
		t.Fatalf("expected edited content to pass")
	}
	if ok, _ := edit.Check("pool_size: 20\n"); ok {
		t.Fatalf("unchanged content should fail")
	}
	if _, err := edit.Check(3); err == nil {
		t.Fatalf("expected answer type error")
	}

	cmd := Task{Kind: TaskCommand, Title: "r", Command: &CommandTask{Prompt: "p", ExpectedPattern: `^kubectl rollout undo deploy/app$`}}
	if ok, _ := cmd.Check("  kubectl rollout undo deploy/app "); !ok {
		t.Fatalf("expected command to match")
	}

	mc := Task{Kind: TaskMultipleChoice, Title: "q", MultipleChoice: &MultipleChoice{Question: "q", Options: []string{"a", "b"}, AnswerIndex: 1}}
	if ok, _ := mc.Check(1); !ok {
		t.Fatalf("expected right answer to pass")
	}
	if ok, _ := mc.Check(0); ok {
		t.Fatalf("expected wrong answer to fail")
	}
}

func TestParseTask(t *testing.T) {
	task, err := ParseTask([]byte(`{"kind":"log_search","title":"Spot the panic","logSearch":{"lines":["GET /","panic: nil map"],"answerIndex":1}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if task.LogSearch.AnswerIndex != 1 {
		t.Fatalf("unexpected task %+v", task)
	}
	if _, err := ParseTask([]byte(`{"kind":"config_edit","title":"x","configEdit":{"content":"a","key":"k","currentValue":"b","expectedValue":"c"}}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
