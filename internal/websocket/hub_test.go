package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/fluenty/server/adapters/audio"
	"github.com/satriahrh/fluenty/server/adapters/llm"
	"github.com/satriahrh/fluenty/server/adapters/memory"
	"github.com/satriahrh/fluenty/server/adapters/stt"
	"github.com/satriahrh/fluenty/server/adapters/tts"
	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/domain/repositories"
	"github.com/satriahrh/fluenty/server/internal/errx"
	"github.com/satriahrh/fluenty/server/usecase"
)

const readTimeout = 3 * time.Second

type inbound struct {
	Type    MessageType    `json:"type"`
	Screen  usecase.Screen `json:"screen"`
	Message string         `json:"message"`
	Data    string         `json:"data"`
	Code    string         `json:"error_code"`
}

func setupTestServer(t *testing.T, defaultAPIKey string) (*Hub, *httptest.Server) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	recognizer := stt.NewMockSpeechToText(logger)
	recognizer.BytesPerWord = 1
	synthesizer := tts.NewMockTextToSpeech(logger)
	synthesizer.WordInterval = 0

	recorder, err := audio.NewFileRecorder(audio.RecorderConfig{CacheDir: t.TempDir(), Extension: "wav"}, logger)
	if err != nil {
		t.Fatalf("NewFileRecorder failed: %v", err)
	}

	settings := usecase.NewSettingsService(memory.NewSettingsStore(), llm.NewMockGeminiClient(logger), defaultAPIKey, "", logger)
	hub := NewHub(&usecase.SessionFactory{
		Settings:     settings,
		SpeechToText: recognizer,
		TextToSpeech: synthesizer,
		Recorder:     recorder,
		NewPlayer: func() repositories.Player {
			return audio.NewFilePlayer(audio.PlayerConfig{ChunkSize: 1024}, logger)
		},
		Transcripts: memory.NewTranscriptRepository(),
		AudioConfig: repositories.AudioConfig{SampleRate: 16000, Language: "en-IN", Encoding: "LINEAR16"},
		Logger:      logger,
	}, logger)
	go hub.Run()

	e := echo.New()
	e.GET("/ws/:mode", func(c echo.Context) error {
		err := hub.HandleWebSocket(c, "client-1", entities.Mode(c.Param("mode")))
		if err != nil {
			return echo.NewHTTPError(errx.Status(err), errx.SafeMessage(err))
		}
		return nil
	})

	server := httptest.NewServer(e)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		if err := hub.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
		server.Close()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, mode entities.Mode) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + string(mode)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, message string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
}

// readUntil reads text frames until match accepts one. Binary frames are counted.
func readUntil(t *testing.T, conn *websocket.Conn, match func(inbound) bool) (inbound, int) {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	binary := 0
	for {
		conn.SetReadDeadline(deadline)
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		if messageType == websocket.BinaryMessage {
			binary++
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Invalid JSON from server: %v", err)
		}
		if match(msg) {
			return msg, binary
		}
	}
}

func screenWith(state string, messages int) func(inbound) bool {
	return func(msg inbound) bool {
		if msg.Type != MessageTypeScreen || msg.Screen.State != state || len(msg.Screen.Messages) != messages {
			return false
		}
		last := msg.Screen.Messages[messages-1]
		return last.Text != "" && !last.IsEditable
	}
}

func TestHub_ConversationTurn(t *testing.T) {
	hub, server := setupTestServer(t, "server-key")
	conn := dial(t, server, entities.ModeConversation)

	// The tutor opens the conversation without user input.
	msg, audioFrames := readUntil(t, conn, screenWith(string(entities.StateIdle), 1))
	if msg.Screen.Messages[0].IsUser {
		t.Error("Expected the opening message to come from the tutor")
	}
	if audioFrames == 0 {
		t.Error("Expected the opening to be spoken")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 registered client, got %d", hub.ClientCount())
	}

	send(t, conn, `{"type": "start_listening"}`)
	readUntil(t, conn, func(msg inbound) bool {
		return msg.Type == MessageTypeScreen && msg.Screen.State == string(entities.StateListeningToUser)
	})

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	partial, _ := readUntil(t, conn, func(msg inbound) bool {
		return msg.Type == MessageTypeScreen && len(msg.Screen.Messages) == 2 && msg.Screen.Messages[1].Text != ""
	})
	if partial.Screen.Messages[1].Text != "Yesterday I go" {
		t.Errorf("Expected partial transcript, got %q", partial.Screen.Messages[1].Text)
	}

	send(t, conn, `{"type": "stop_listening"}`)
	msg, _ = readUntil(t, conn, screenWith(string(entities.StateIdle), 3))

	user := msg.Screen.Messages[1]
	if !user.IsUser || user.Text != "Yesterday I go" || user.IsEditable {
		t.Errorf("Unexpected user message: %+v", user)
	}
	if reply := msg.Screen.Messages[2].Text; !strings.HasPrefix(reply, "You said: Yesterday I go.") {
		t.Errorf("Unexpected tutor reply: %q", reply)
	}
}

func TestHub_PracticeTurnAndPlayback(t *testing.T) {
	_, server := setupTestServer(t, "server-key")
	conn := dial(t, server, entities.ModePractice)

	readUntil(t, conn, func(msg inbound) bool {
		return msg.Type == MessageTypeScreen && msg.Screen.State == string(entities.PracticeInitial)
	})

	send(t, conn, `{"type": "start_recording"}`)
	readUntil(t, conn, func(msg inbound) bool {
		return msg.Type == MessageTypeScreen && msg.Screen.State == string(entities.PracticeRecordingAudio)
	})
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 2048)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	send(t, conn, `{"type": "stop_recording"}`)

	msg, _ := readUntil(t, conn, screenWith(string(entities.PracticeInitial), 2))
	recording := msg.Screen.Messages[0]
	if !recording.IsUser || recording.AudioPath == "" {
		t.Fatalf("Expected a user recording, got %+v", recording)
	}

	send(t, conn, `{"type": "play_recording", "message_id": "`+recording.ID+`"}`)
	playing, _ := readUntil(t, conn, func(msg inbound) bool {
		return msg.Type == MessageTypeScreen && msg.Screen.Playback == entities.PlaybackPlayingRecording
	})
	if !playing.Screen.Messages[0].IsPlaying {
		t.Error("Expected the recording to be marked as playing")
	}

	_, audioFrames := readUntil(t, conn, func(msg inbound) bool {
		return msg.Type == MessageTypeScreen && msg.Screen.Playback == entities.PlaybackStopped
	})
	if audioFrames == 0 {
		t.Error("Expected recording audio to be streamed back")
	}
}

func TestHub_PingAndInvalidCommands(t *testing.T) {
	_, server := setupTestServer(t, "server-key")
	conn := dial(t, server, entities.ModePractice)

	send(t, conn, `{"type": "ping", "data": "hello"}`)
	pong, _ := readUntil(t, conn, func(msg inbound) bool { return msg.Type == MessageTypePong })
	if pong.Data != "hello" {
		t.Errorf("Expected pong data hello, got %q", pong.Data)
	}

	send(t, conn, `{"type": "start_listening"}`)
	errMsg, _ := readUntil(t, conn, func(msg inbound) bool { return msg.Type == MessageTypeError })
	if errMsg.Code != "invalid_message" {
		t.Errorf("Expected invalid_message, got %q", errMsg.Code)
	}
}

func TestHub_RejectsUnconfiguredClient(t *testing.T) {
	_, server := setupTestServer(t, "")

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/conversation"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("Expected bad handshake, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("Expected 412, got %d", resp.StatusCode)
	}
}

func TestHub_ShutdownEndsSessions(t *testing.T) {
	hub, server := setupTestServer(t, "server-key")
	dial(t, server, entities.ModePractice)
	dial(t, server, entities.ModePractice)

	deadline := time.Now().Add(readTimeout)
	for hub.ClientCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected no clients after shutdown, got %d", hub.ClientCount())
	}
}

func TestHub_UnknownMode(t *testing.T) {
	hub := NewHub(&usecase.SessionFactory{}, zap.NewNop())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws/karaoke", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := hub.HandleWebSocket(c, "client-1", entities.Mode("karaoke")); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
