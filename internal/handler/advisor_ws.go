package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"farmwise/internal/app"
	"farmwise/internal/chat"
)

const (
	advisorWSWriteWait = 10 * time.Second
	advisorWSPongWait  = 60 * time.Second
	advisorWSPingEvery = (advisorWSPongWait * 9) / 10
)

var advisorWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type advisorWSInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type advisorWSOutbound struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleAdvisorWS streams one advisor turn at a time: a pending marker
// before the first fragment, each fragment in arrival order, then a
// terminal final or failed frame. Submissions while a turn is in flight
// are rejected without touching the transcript.
func (s *Service) HandleAdvisorWS(w http.ResponseWriter, r *http.Request) {
	conn, err := advisorWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(advisorWSPongWait)); err != nil {
		log.Printf("advisor ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(advisorWSPongWait))
	})

	writeCh := make(chan advisorWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(advisorWSPingEvery)
		defer ticker.Stop()
		for {
			select {
			case out, ok := <-writeCh:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(advisorWSWriteWait))
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(advisorWSWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
	defer close(writeCh)

	// A dead writer must not keep the turn alive: cancel the turn's
	// context so an in-flight stream terminates into Failed instead of
	// streaming to nobody.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		<-writerDone
		cancel()
	}()

	for {
		var in advisorWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(advisorWSPongWait))
		if in.Type != "message" {
			continue
		}

		final, err := s.app.Converse(ctx, in.Text, func() {
			pushAdvisorWS(writeCh, advisorWSOutbound{Type: "pending"})
		}, func(text string) {
			pushAdvisorWS(writeCh, advisorWSOutbound{Type: "fragment", Text: text})
		})
		if err != nil {
			if app.Classify(err) == app.FailureInvalidInput {
				pushAdvisorWS(writeCh, advisorWSOutbound{Type: "error", Message: "message rejected"})
				continue
			}
			// The transcript already holds the placeholder turn.
			pushAdvisorWS(writeCh, advisorWSOutbound{Type: "failed", Text: chat.FailureText})
			continue
		}
		pushAdvisorWS(writeCh, advisorWSOutbound{Type: "final", Text: final.Text})

		select {
		case <-writerDone:
			return
		default:
		}
	}
}

// pushAdvisorWS never blocks: a full buffer drops the oldest frame to
// make room, so a stalled or dead writer cannot stall the turn.
func pushAdvisorWS(writeCh chan advisorWSOutbound, out advisorWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
