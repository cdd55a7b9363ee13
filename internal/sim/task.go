package sim

import (
	"context"
	"errors"

	"uptime-sim/internal/game"
	"uptime-sim/internal/logging"
	"uptime-sim/internal/oracle"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/telemetry"
)

// ErrNoTask is returned when an answer arrives while no task is open.
var ErrNoTask = errors.New("no task open")

// Task returns the open hands-on task, if any.
func (s *Simulator) Task() (oracle.Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return oracle.Assignment{}, false
	}
	return *s.task, true
}

// AnswerTask grades answer against the open task and closes it. The outcome
// is written as a task event.
func (s *Simulator) AnswerTask(ctx context.Context, answer any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return false, ErrNoTask
	}
	a := *s.task
	correct, err := a.Task.Check(answer)
	if err != nil {
		return false, err
	}
	s.task = nil

	msg := "solved: " + a.Task.Title
	if !correct {
		msg = "missed: " + a.Task.Title
		if a.Task.Explanation != "" {
			msg += ". " + a.Task.Explanation
		}
	}
	logging.FromContext(ctx).Info("task answered", "title", a.Task.Title, "correct", correct)
	s.writeEvents(ctx, []telemetry.EventRow{{
		SessionID: s.sessionID,
		Kind:      EventKindTask,
		Seq:       s.state.EventSeq,
		Message:   msg,
		Node:      a.Request.TargetNodeID,
		Incident:  a.Request.IncidentID,
		Timestamp: telemetry.Timestamp(s.state),
	}})
	return correct, nil
}

// requestTask asks the collaborator for a task when cmd started a timed
// remediation against an incident.
func (s *Simulator) requestTask(ctx context.Context, prev *game.State, cmd reducer.Command) {
	if s.oracle == nil || s.task != nil {
		return
	}
	var actionID, incidentID string
	switch c := cmd.(type) {
	case reducer.ExecuteAction:
		actionID, incidentID = c.ActionID, c.IncidentID
	case reducer.MitigateIncident:
		actionID, incidentID = c.ActionID, c.IncidentID
	default:
		return
	}
	if incidentID == "" || len(s.state.Actions) <= len(prev.Actions) {
		return
	}
	inc, ok := prev.Incident(incidentID)
	if !ok {
		return
	}
	def, ok := s.env.Catalog.Action(actionID)
	if !ok {
		return
	}
	started := s.state.Actions[len(s.state.Actions)-1]
	req := oracle.TaskRequest{
		IncidentID:          incidentID,
		IncidentName:        inc.Name,
		IncidentDescription: inc.Description,
		ActionName:          def.Name,
		ActionDescription:   def.Description,
		TargetNodeID:        started.Target,
	}
	if s.oracle.RequestTask(ctx, req) {
		logging.FromContext(ctx).Debug("task requested", "action", actionID, "incident", incidentID)
	}
}

// drainTasks opens an arrived task and closes one whose incident is gone.
func (s *Simulator) drainTasks(ctx context.Context) {
	if s.oracle == nil {
		return
	}
	log := logging.FromContext(ctx)
	select {
	case a := <-s.oracle.Tasks():
		if s.task == nil {
			s.task = &a
			log.Info("task ready", "title", a.Task.Title, "kind", a.Task.Kind)
		}
	default:
	}
	if s.task == nil || s.task.Request.IncidentID == "" {
		return
	}
	if _, ok := s.state.Incident(s.task.Request.IncidentID); !ok {
		log.Info("task closed with its incident", "title", s.task.Task.Title)
		s.task = nil
	}
}
