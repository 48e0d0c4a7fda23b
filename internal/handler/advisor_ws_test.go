package handler

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"farmwise/internal/app"
	"farmwise/internal/chat"
	"farmwise/internal/llm"
	"farmwise/internal/store"
)

func dialAdvisor(t *testing.T, fake *llm.FakeClient) *websocket.Conn {
	t.Helper()
	st := store.New(t.TempDir())
	svc := app.New(fake, st, nil)
	srv := httptest.NewServer(NewMux(NewService(svc)))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/advisor"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) advisorWSOutbound {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out advisorWSOutbound
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func TestAdvisorWS_StreamedTurn(t *testing.T) {
	fake := &llm.FakeClient{Fragments: []string{"Rotate ", "your ", "crops."}}
	conn := dialAdvisor(t, fake)

	if err := conn.WriteJSON(advisorWSInbound{Type: "message", Text: "Any tips?"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if frame := readFrame(t, conn); frame.Type != "pending" {
		t.Fatalf("first frame = %+v, want pending", frame)
	}
	var text strings.Builder
	for i := 0; i < 3; i++ {
		frame := readFrame(t, conn)
		if frame.Type != "fragment" {
			t.Fatalf("frame %d = %+v, want fragment", i, frame)
		}
		text.WriteString(frame.Text)
	}
	final := readFrame(t, conn)
	if final.Type != "final" || final.Text != "Rotate your crops." {
		t.Fatalf("final frame = %+v", final)
	}
	if text.String() != final.Text {
		t.Fatalf("fragments %q do not assemble the final text %q", text.String(), final.Text)
	}
}

func TestAdvisorWS_FailedTurn(t *testing.T) {
	fake := &llm.FakeClient{
		Fragments: []string{"Rotate yo"},
		StreamErr: errors.New("stream cut"),
	}
	conn := dialAdvisor(t, fake)

	if err := conn.WriteJSON(advisorWSInbound{Type: "message", Text: "Any tips?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "pending" {
		t.Fatalf("first frame = %+v", frame)
	}
	if frame := readFrame(t, conn); frame.Type != "fragment" {
		t.Fatalf("second frame = %+v", frame)
	}
	frame := readFrame(t, conn)
	if frame.Type != "failed" || frame.Text != chat.FailureText {
		t.Fatalf("terminal frame = %+v", frame)
	}
}

func TestAdvisorWS_RejectedMessage(t *testing.T) {
	fake := &llm.FakeClient{Fragments: []string{"ok"}}
	conn := dialAdvisor(t, fake)

	if err := conn.WriteJSON(advisorWSInbound{Type: "message", Text: "   "}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Type != "error" {
		t.Fatalf("frame = %+v, want error", frame)
	}
	// No pending frame preceded the rejection; the next turn works.
	if err := conn.WriteJSON(advisorWSInbound{Type: "message", Text: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "pending" {
		t.Fatalf("frame after rejection = %+v, want pending", frame)
	}
}

func TestAdvisorWS_ClientDisconnectMidStreamEndsTurn(t *testing.T) {
	// A slow or vanished client kills the writer goroutine; the turn
	// must still reach a terminal state instead of blocking forever on
	// frame delivery and wedging the session.
	chunk := strings.Repeat("x", 64*1024)
	fragments := make([]string, 200)
	for i := range fragments {
		fragments[i] = chunk
	}
	fake := &llm.FakeClient{Fragments: fragments}

	st := store.New(t.TempDir())
	svc := app.New(fake, st, nil)
	srv := httptest.NewServer(NewMux(NewService(svc)))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/advisor"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.WriteJSON(advisorWSInbound{Type: "message", Text: "Any tips?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readFrame(t, conn)
	_ = conn.Close()

	deadline := time.Now().Add(20 * time.Second)
	for svc.ChatInFlight() {
		if time.Now().After(deadline) {
			t.Fatal("turn still in flight after client disconnect")
		}
		time.Sleep(20 * time.Millisecond)
	}
	// The session is usable again once the turn terminated.
	if err := svc.ResetChat(); err != nil {
		t.Fatalf("reset after disconnect: %v", err)
	}
}

func TestAdvisorWS_IgnoresUnknownTypes(t *testing.T) {
	fake := &llm.FakeClient{Fragments: []string{"hi"}}
	conn := dialAdvisor(t, fake)

	if err := conn.WriteJSON(advisorWSInbound{Type: "typing"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(advisorWSInbound{Type: "message", Text: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The unknown frame produced no output; the first reply belongs to
	// the message.
	if frame := readFrame(t, conn); frame.Type != "pending" {
		t.Fatalf("frame = %+v", frame)
	}
}
