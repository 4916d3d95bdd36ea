package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type WSHandler struct {
	service  *app.QuizService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type answerPayload struct {
	Index int             `json:"index"`
	Value json.RawMessage `json:"value"`
}

type startedPayload struct {
	SessionID   string               `json:"sessionId"`
	QuizID      string               `json:"quizId"`
	QuizTitle   string               `json:"quizTitle"`
	Config      domain.SessionConfig `json:"config"`
	QuestionIDs []string             `json:"questionIds"`
}

type markPayload struct {
	Index  int  `json:"index"`
	Marked bool `json:"marked"`
}

type completedPayload struct {
	Status     domain.SessionStatus `json:"status"`
	Completion *domain.Completion   `json:"completion,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	quizID := query.Get("quizId")
	userID := query.Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}
	cfg, err := sessionConfig(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Start(ctx, userID, quizID, cfg)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorMessage(err)})
		return
	}
	log := h.log.WithFields(logrus.Fields{"session_id": session.ID(), "user_id": userID})

	updates, cancel, err := h.service.Subscribe(ctx, session.ID())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorMessage(err)})
		h.service.Release(ctx, session.ID())
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	completionDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				// unblock the read loop
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: update}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(completionDone)
		select {
		case <-session.Done():
			msg := outboundMessage[any]{Type: "completed", Payload: completedPayload{
				Status:     session.Status(),
				Completion: session.Completion(),
			}}
			select {
			case send <- msg:
			case <-closeSignals:
			case <-writerDone:
			}
		case <-closeSignals:
		}
	}()

	open := queueMessage(send, writerDone, outboundMessage[any]{Type: "started", Payload: startedPayload{
		SessionID:   session.ID(),
		QuizID:      quizID,
		QuizTitle:   session.Quiz().Title,
		Config:      session.Config(),
		QuestionIDs: session.QuestionIDs(),
	}})
	if view, err := h.service.Display(ctx, session.ID(), 0); open && err == nil {
		open = queueMessage(send, writerDone, outboundMessage[any]{Type: "question", Payload: view})
	}

	for open {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handle(r, session.ID(), inbound) {
			if open = queueMessage(send, writerDone, msg); !open {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	<-completionDone
	close(send)
	<-writerDone
	cancel()
	h.service.Release(ctx, session.ID())
}

// queueMessage hands msg to the writer. It reports false once the writer has
// stopped, so callers never block on a connection nobody drains.
func queueMessage(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// handle applies one inbound message and returns the replies to send.
func (h *WSHandler) handle(r *http.Request, sessionID string, inbound inboundMessage) []outboundMessage[any] {
	ctx := r.Context()
	fail := func(err error) []outboundMessage[any] {
		return []outboundMessage[any]{{Type: "error", Payload: errorMessage(err)}}
	}
	invalid := func() []outboundMessage[any] {
		return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "invalid " + inbound.Type + " payload", Code: "invalid_payload"}}}
	}

	switch inbound.Type {
	case "display":
		var p indexPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return invalid()
		}
		view, err := h.service.Display(ctx, sessionID, p.Index)
		if err != nil {
			return fail(err)
		}
		return []outboundMessage[any]{{Type: "question", Payload: view}}
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil || len(p.Value) == 0 {
			return invalid()
		}
		outcome, err := h.service.Submit(ctx, sessionID, p.Index, p.Value)
		if err != nil {
			return fail(err)
		}
		return []outboundMessage[any]{{Type: "answerResult", Payload: outcome}}
	case "advance":
		result, err := h.service.Advance(ctx, sessionID)
		if err != nil {
			return fail(err)
		}
		if result.Finished || result.Incomplete {
			return nil
		}
		view, err := h.service.Display(ctx, sessionID, result.Index)
		if err != nil {
			return fail(err)
		}
		return []outboundMessage[any]{{Type: "question", Payload: view}}
	case "mark":
		var p indexPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return invalid()
		}
		marked, err := h.service.Mark(ctx, sessionID, p.Index)
		if err != nil {
			return fail(err)
		}
		return []outboundMessage[any]{{Type: "marked", Payload: markPayload{Index: p.Index, Marked: marked}}}
	case "pause":
		if err := h.service.Pause(ctx, sessionID); err != nil {
			return fail(err)
		}
	case "resume":
		if err := h.service.Resume(ctx, sessionID); err != nil {
			return fail(err)
		}
	case "cancel":
		if err := h.service.Cancel(ctx, sessionID); err != nil {
			return fail(err)
		}
	default:
		return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "unsupported message type", Code: "unsupported"}}}
	}
	return nil
}

// sessionConfig reads the session options from the connection query.
func sessionConfig(query map[string][]string) (domain.SessionConfig, error) {
	get := func(key string) string {
		if v := query[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	cfg := domain.SessionConfig{Mode: domain.Mode(get("mode"))}
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeAll
	}

	var err error
	flags := map[string]*bool{
		"instantFeedback": &cfg.InstantFeedback,
		"allowBack":       &cfg.AllowBack,
		"showExplanation": &cfg.ShowExplanation,
	}
	for key, dst := range flags {
		if raw := get(key); raw != "" {
			if *dst, err = strconv.ParseBool(raw); err != nil {
				return cfg, errors.New("invalid " + key)
			}
		}
	}
	ints := map[string]*int{
		"count":         &cfg.QuestionCount,
		"errorSessions": &cfg.ErrorSessions,
	}
	for key, dst := range ints {
		if raw := get(key); raw != "" {
			if *dst, err = strconv.Atoi(raw); err != nil {
				return cfg, errors.New("invalid " + key)
			}
		}
	}
	if raw := get("timeLimit"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			return cfg, errors.New("invalid timeLimit")
		}
		cfg.TimeLimit = time.Duration(seconds) * time.Second
	}
	return cfg, nil
}

func errorMessage(err error) errorPayload {
	payload := errorPayload{Message: err.Error()}
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		payload.Code = "configuration"
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSessionNotFound):
		payload.Code = "not_found"
	case errors.Is(err, domain.ErrSubmissionRejected):
		payload.Code = "rejected"
	case errors.Is(err, domain.ErrSessionPaused):
		payload.Code = "paused"
	case errors.Is(err, domain.ErrSessionNotActive):
		payload.Code = "not_active"
	}
	return payload
}
