package websocket

import (
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer        Action = "answer"
	ActionNavigate      Action = "navigate"
	ActionRequestSubmit Action = "request_submit"
	ActionConfirmSubmit Action = "confirm_submit"
	ActionRetake        Action = "retake"
	ActionPing          Action = "ping"
)

// Navigation directions for ActionNavigate.
const (
	NavNext     = "next"
	NavPrevious = "previous"
	NavJump     = "jump"
)

// RequestPayload is the single client message shape; fields beyond Action
// apply only to the actions that need them.
type RequestPayload struct {
	Action     Action             `json:"action"`
	QuestionID string             `json:"questionId,omitempty"`
	Answer     *model.AnswerValue `json:"answer,omitempty"`
	Direction  string             `json:"direction,omitempty"`
	Index      *int               `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState          Event = "state"
	EventTick           Event = "tick"
	EventConfirmPending Event = "confirm_pending"
	EventGraded         Event = "graded"
	EventSuccess        Event = "success"
	EventError          Event = "error"
	EventPong           Event = "pong"
)

// StateResponse carries the full recoverable snapshot, sent on connect.
type StateResponse struct {
	Event    Event              `json:"event"`
	Snapshot session.Snapshot   `json:"snapshot"`
	Form     *model.FormPayload `json:"form"`
	Answers  model.AnswerSet    `json:"answers"`
}

// TickResponse is pushed every countdown second and after every
// state-affecting action. AutoSubmitSoon doubles as the advisory signal.
type TickResponse struct {
	Event    Event            `json:"event"`
	Progress session.Progress `json:"progress"`
}

// ConfirmPendingResponse asks the client to confirm submission.
type ConfirmPendingResponse struct {
	Event    Event `json:"event"`
	Answered int   `json:"answered"`
	Total    int   `json:"total"`
}

// GradedResponse carries the candidate-facing result after submission.
type GradedResponse struct {
	Event  Event         `json:"event"`
	Result *model.Result `json:"result"`
}

// SuccessResponse is a typed acknowledgement.
type SuccessResponse struct {
	Event        Event  `json:"event"`
	Status       string `json:"status"`
	CurrentIndex *int   `json:"currentIndex,omitempty"`
}

// ErrorResponse carries a machine-readable code and a message.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
