package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/talentflow/talentflow-backend/internal/middleware"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/response"
	"github.com/talentflow/talentflow-backend/internal/service"
	"github.com/talentflow/talentflow-backend/internal/session"
	ws "github.com/talentflow/talentflow-backend/internal/websocket"
)

const actionTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a taking session over WebSocket: answers, navigation,
// the submit handshake, and the server-owned countdown ticks.
type WSHandler struct {
	manager           *session.Manager
	assessmentService *service.AssessmentService
	attemptService    *service.AttemptService
	log               zerolog.Logger
	upgrader          websocket.Upgrader

	mu    sync.Mutex
	conns map[uuid.UUID]*ws.Conn
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	manager *session.Manager,
	assessmentService *service.AssessmentService,
	attemptService *service.AttemptService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		manager:           manager,
		assessmentService: assessmentService,
		attemptService:    attemptService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
		conns:             make(map[uuid.UUID]*ws.Conn),
	}
}

// Progress implements session.Notifier: countdown ticks and state changes
// are pushed to whichever connection currently serves the attempt.
func (h *WSHandler) Progress(attemptID uuid.UUID, p session.Progress) {
	if conn := h.lookup(attemptID); conn != nil {
		_ = conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, Progress: p})
	}
}

// Completed implements session.Notifier: the graded result is pushed with
// reference answers redacted for correctly answered questions.
func (h *WSHandler) Completed(attemptID uuid.UUID, result *model.Result) {
	conn := h.lookup(attemptID)
	if conn == nil {
		return
	}
	_ = conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Result: candidateResultView(result)})
}

func (h *WSHandler) lookup(attemptID uuid.UUID) *ws.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[attemptID]
}

func (h *WSHandler) attach(attemptID uuid.UUID, conn *ws.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[attemptID] = conn
}

func (h *WSHandler) detach(attemptID uuid.UUID, conn *ws.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[attemptID] == conn {
		delete(h.conns, attemptID)
	}
}

// AssessmentStream godoc
// WS /ws/v1/candidate/assessments/:assessment_id/stream
// Upgrades to WebSocket for the live taking session.
func (h *WSHandler) AssessmentStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment ID"})
		return
	}

	candidateID := claims.UserID

	attempt, err := h.attemptService.VerifyActiveAttempt(c.Request.Context(), assessmentID, candidateID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no active attempt for this assessment"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("candidate_id", candidateID).
		Str("assessment_id", assessmentID.String()).
		Logger()

	sess, created, err := h.manager.GetOrCreate(attempt.ID, func() (*session.Session, error) {
		return h.buildSession(c.Request.Context(), attempt)
	})
	if err != nil {
		wsLog.Error().Err(err).Msg("Session build failed")
		conn.WriteError(string(response.ErrInternal), "could not open taking session")
		return
	}

	h.attach(attempt.ID, conn)
	defer h.detach(attempt.ID, conn)

	if created {
		sess.StartTimer()
	}

	form, err := h.assessmentService.GetFormPayload(c.Request.Context(), assessmentID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Form payload fetch failed")
		conn.WriteError(string(response.ErrAssessmentNotAvailable), "assessment form unavailable")
		return
	}

	_ = conn.WriteTyped(ws.StateResponse{
		Event:    ws.EventState,
		Snapshot: sess.Snapshot(),
		Form:     form,
		Answers:  sess.Answers(),
	})

	wsLog.Info().Bool("resumed", !created).Msg("Candidate connected")

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, wsLog, sess, attempt, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, sess, &msg)
		case ws.ActionRequestSubmit:
			h.handleRequestSubmit(conn, sess)
		case ws.ActionConfirmSubmit:
			h.handleConfirmSubmit(conn, wsLog, sess)
		case ws.ActionRetake:
			h.handleRetake(conn, wsLog, sess, attempt)
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

// buildSession recovers an attempt into a live session: definition from the
// store, autosaved answers and authoritative remaining time from Redis (with
// PostgreSQL failover).
func (h *WSHandler) buildSession(ctx context.Context, attempt *model.Attempt) (*session.Session, error) {
	def, err := h.assessmentService.GetByID(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	state, err := h.attemptService.GetAttemptState(ctx, attempt.AssessmentID, attempt.CandidateID)
	if err != nil {
		return nil, err
	}

	answers := make(model.AnswerSet, len(state.AutosavedAnswers))
	for qidStr, v := range state.AutosavedAnswers {
		qid, parseErr := uuid.Parse(qidStr)
		if parseErr != nil {
			continue
		}
		answers[qid] = v
	}

	remaining := state.RemainingSeconds
	if remaining <= 0 {
		// Time ran out while the candidate was away; the first tick
		// auto-submits whatever was autosaved.
		remaining = 1
	}

	return session.New(session.Config{
		AttemptID:        attempt.ID,
		CandidateID:      attempt.CandidateID,
		Definition:       def,
		Answers:          answers,
		RemainingSeconds: remaining,
		Sink:             h.attemptService,
		Notifier:         h,
	}), nil
}

func (h *WSHandler) handleAnswer(conn *ws.Conn, wsLog zerolog.Logger, sess *session.Session, attempt *model.Attempt, msg *ws.RequestPayload) {
	if msg.QuestionID == "" || msg.Answer == nil {
		conn.WriteError(string(response.ErrInvalidPayload), "questionId and answer are required")
		return
	}

	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError(string(response.ErrInvalidID), "invalid questionId format")
		return
	}

	if err := sess.Answer(questionID, *msg.Answer); err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownQuestion):
			conn.WriteError(string(response.ErrQuestionNotFound), "question is not part of this assessment")
		default:
			conn.WriteError(string(response.ErrAttemptFinished), "attempt is no longer accepting answers")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := h.attemptService.AutosaveAnswer(ctx, attempt, questionID, *msg.Answer); err != nil {
		// The in-memory session holds the answer; only recovery is degraded.
		wsLog.Warn().Err(err).Str("question_id", msg.QuestionID).Msg("Autosave failed")
	}

	_ = conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Status: "saved"})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, sess *session.Session, msg *ws.RequestPayload) {
	var index int
	switch msg.Direction {
	case ws.NavNext:
		index = sess.Next()
	case ws.NavPrevious:
		index = sess.Previous()
	case ws.NavJump:
		if msg.Index == nil {
			conn.WriteError(string(response.ErrInvalidPayload), "jump requires an index")
			return
		}
		index = sess.JumpTo(*msg.Index)
	default:
		conn.WriteError(string(response.ErrInvalidPayload), "unknown navigation direction")
		return
	}

	_ = conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Status: "moved", CurrentIndex: &index})
}

func (h *WSHandler) handleRequestSubmit(conn *ws.Conn, sess *session.Session) {
	answered, total, err := sess.RequestSubmit()
	if err != nil {
		if errors.Is(err, session.ErrSubmitInFlight) {
			// A submit is running; the outcome arrives as its own event.
			return
		}
		conn.WriteError(string(response.ErrAttemptFinished), "attempt is already submitted")
		return
	}

	_ = conn.WriteTyped(ws.ConfirmPendingResponse{
		Event:    ws.EventConfirmPending,
		Answered: answered,
		Total:    total,
	})
}

func (h *WSHandler) handleConfirmSubmit(conn *ws.Conn, wsLog zerolog.Logger, sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if _, err := sess.ConfirmSubmit(ctx); err != nil {
		if errors.Is(err, session.ErrSubmitInFlight) {
			// Duplicate confirm while grading; silently ignored.
			return
		}
		wsLog.Error().Err(err).Msg("Submission persist failed")
		conn.WriteError(string(response.ErrSubmissionFailed),
			response.GetMessage(response.ErrSubmissionFailed))
		return
	}
	// The graded event is delivered through the Completed notifier.
}

func (h *WSHandler) handleRetake(conn *ws.Conn, wsLog zerolog.Logger, sess *session.Session, attempt *model.Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if _, err := h.attemptService.Retake(ctx, attempt.AssessmentID, attempt.CandidateID); err != nil {
		conn.WriteError(string(response.ErrRetakeUnavailable),
			response.GetMessage(response.ErrRetakeUnavailable))
		return
	}

	if err := sess.Retake(); err != nil {
		conn.WriteError(string(response.ErrRetakeUnavailable),
			response.GetMessage(response.ErrRetakeUnavailable))
		return
	}

	wsLog.Info().Msg("Retake started")
	_ = conn.WriteTyped(ws.StateResponse{
		Event:    ws.EventState,
		Snapshot: sess.Snapshot(),
		Answers:  sess.Answers(),
	})
}

// candidateResultView deep-copies a result and strips the reference answers
// for questions the candidate got right.
func candidateResultView(result *model.Result) *model.Result {
	raw, err := json.Marshal(result)
	if err != nil {
		return result
	}
	view := &model.Result{}
	if err := json.Unmarshal(raw, view); err != nil {
		return result
	}
	view.RedactCorrectAnswers()
	return view
}
