package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/randalmurphal/weft/internal/loom"
)

// ErrUnknownEvent is returned by Decode for topics or change types this
// client does not understand. Callers log and drop such frames.
var ErrUnknownEvent = fmt.Errorf("unknown event")

// envelope is the outer wire shape of every push notification.
type envelope struct {
	Topic       string          `json:"topic"`
	WorkspaceID string          `json:"workspace_id,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// change is the {type, payload} shape used by entity-scoped topics.
type change struct {
	Type    string          `json:"type"` // CREATED, UPDATED, DELETED
	Payload json.RawMessage `json:"payload"`
}

// Decode discriminates the wire tagged union at the channel-ingestion
// boundary and normalizes every accepted shape into one Notification.
// This is the only place payload shape variance is tolerated; everything
// past here sees a single internal form.
func Decode(raw []byte) (Notification, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Notification{}, fmt.Errorf("decode envelope: %w", err)
	}

	n := Notification{WorkspaceID: env.WorkspaceID}

	switch env.Topic {
	case "mission":
		return decodeMission(n, env.Data)
	case "todo":
		return decodeTodo(n, env.Data)
	case "step":
		return decodeStep(n, env.Data)
	case "timeline":
		return decodeTimeline(n, env.Data)
	case "question":
		return decodeQuestion(n, env.Data)
	case "dependency":
		return decodeDependency(n, env.Data)
	case "analysis":
		return decodeAnalysis(n, env.Data)
	default:
		return Notification{}, fmt.Errorf("%w: topic %q", ErrUnknownEvent, env.Topic)
	}
}

func decodeMission(n Notification, data []byte) (Notification, error) {
	var c change
	if err := json.Unmarshal(data, &c); err != nil {
		return Notification{}, fmt.Errorf("decode mission change: %w", err)
	}

	switch strings.ToUpper(c.Type) {
	case "CREATED", "UPDATED":
		var m loom.Mission
		if err := json.Unmarshal(c.Payload, &m); err != nil {
			return Notification{}, fmt.Errorf("decode mission payload: %w", err)
		}
		m.Status = loom.NormalizeStatus(m.Status)
		n.Mission = &m
		if strings.EqualFold(c.Type, "CREATED") {
			n.Type = MissionCreated
		} else {
			n.Type = MissionUpdated
		}
		return n, nil
	case "DELETED":
		n.Type = MissionDeleted
		n.EntityID = payloadID(c.Payload)
		return n, nil
	default:
		return Notification{}, fmt.Errorf("%w: mission change %q", ErrUnknownEvent, c.Type)
	}
}

func decodeTodo(n Notification, data []byte) (Notification, error) {
	var c change
	if err := json.Unmarshal(data, &c); err != nil {
		return Notification{}, fmt.Errorf("decode todo change: %w", err)
	}

	switch strings.ToUpper(c.Type) {
	case "CREATED", "UPDATED":
		var t loom.Todo
		if err := json.Unmarshal(c.Payload, &t); err != nil {
			return Notification{}, fmt.Errorf("decode todo payload: %w", err)
		}
		t.Normalize()
		n.Todo = &t
		if strings.EqualFold(c.Type, "CREATED") {
			n.Type = TodoCreated
		} else {
			n.Type = TodoUpdated
		}
		return n, nil
	case "DELETED":
		n.Type = TodoDeleted
		n.EntityID = payloadID(c.Payload)
		return n, nil
	default:
		return Notification{}, fmt.Errorf("%w: todo change %q", ErrUnknownEvent, c.Type)
	}
}

// decodeStep accepts both the nested {type, payload} shape and the flat
// shape some backend versions emit.
func decodeStep(n Notification, data []byte) (Notification, error) {
	var c change
	if err := json.Unmarshal(data, &c); err == nil && len(c.Payload) > 0 {
		data = c.Payload
	}

	var sp StepProgress
	if err := json.Unmarshal(data, &sp); err != nil {
		return Notification{}, fmt.Errorf("decode step progress: %w", err)
	}
	if sp.TodoID == "" || !loom.IsValidStepType(sp.StepType) {
		return Notification{}, fmt.Errorf("%w: step progress missing todo or step type", ErrUnknownEvent)
	}

	n.Type = StepProgressed
	n.Step = &sp
	return n, nil
}

func decodeTimeline(n Notification, data []byte) (Notification, error) {
	var e TimelineEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return Notification{}, fmt.Errorf("decode timeline entry: %w", err)
	}
	n.Type = TimelineAppended
	n.Timeline = &e
	return n, nil
}

func decodeQuestion(n Notification, data []byte) (Notification, error) {
	var c change
	if err := json.Unmarshal(data, &c); err != nil {
		return Notification{}, fmt.Errorf("decode question change: %w", err)
	}

	var q loom.AIQuestion
	if err := json.Unmarshal(c.Payload, &q); err != nil {
		return Notification{}, fmt.Errorf("decode question payload: %w", err)
	}

	switch strings.ToUpper(c.Type) {
	case "CREATED":
		n.Type = QuestionCreated
	case "UPDATED":
		n.Type = QuestionUpdated
	default:
		return Notification{}, fmt.Errorf("%w: question change %q", ErrUnknownEvent, c.Type)
	}
	n.Question = &q
	return n, nil
}

func decodeDependency(n Notification, data []byte) (Notification, error) {
	var c struct {
		Type string `json:"type"` // READY or CHANGED
		TodoReadyData
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Notification{}, fmt.Errorf("decode dependency event: %w", err)
	}

	switch strings.ToUpper(c.Type) {
	case "READY":
		rd := c.TodoReadyData
		rd.Status = loom.NormalizeStatus(rd.Status)
		n.Type = TodoReady
		n.Ready = &rd
		return n, nil
	case "CHANGED":
		n.Type = DependenciesChanged
		n.Dependencies = &DependencyFlags{
			TodoID:         c.TodoID,
			IsBlocked:      c.IsBlocked,
			IsReadyToStart: c.IsReadyToStart,
		}
		return n, nil
	default:
		return Notification{}, fmt.Errorf("%w: dependency change %q", ErrUnknownEvent, c.Type)
	}
}

func decodeAnalysis(n Notification, data []byte) (Notification, error) {
	var au AnalysisUpdate
	if err := json.Unmarshal(data, &au); err != nil {
		return Notification{}, fmt.Errorf("decode analysis update: %w", err)
	}
	if au.RequestID == "" {
		return Notification{}, fmt.Errorf("%w: analysis update missing request id", ErrUnknownEvent)
	}
	n.Type = AnalysisUpdated
	n.Analysis = &au
	return n, nil
}

// payloadID extracts the id from a DELETED payload, which may be either
// a bare string or an object carrying an id field.
func payloadID(payload json.RawMessage) string {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil {
		return obj.ID
	}
	return ""
}
