package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultLiveURL   = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice     = "Fenrir"

	// Microphone audio is 16 kHz mono PCM16; replies are 24 kHz.
	InputMimeType = "audio/pcm;rate=16000"
)

const LiveInstruction = `You are the Voxelyard studio assistant, a friendly voice on the build yard.
Chat with visitors about the blocks and the studio's work. Be brief, clear and helpful. Speak in English.`

var ErrLiveClosed = errors.New("live session closed")

type LiveConfig struct {
	URL    string
	APIKey string
	Model  string
	Voice  string
}

// LiveSession is one upstream bidirectional audio stream. Close is
// idempotent, so the session can be attached to a world as a resource.
type LiveSession struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

type liveSetup struct {
	Setup struct {
		Model            string `json:"model"`
		GenerationConfig struct {
			ResponseModalities []string `json:"responseModalities"`
			SpeechConfig       struct {
				VoiceConfig struct {
					PrebuiltVoiceConfig struct {
						VoiceName string `json:"voiceName"`
					} `json:"prebuiltVoiceConfig"`
				} `json:"voiceConfig"`
			} `json:"speechConfig"`
		} `json:"generationConfig"`
		SystemInstruction content `json:"systemInstruction"`
	} `json:"setup"`
}

type mediaChunk struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInput struct {
	RealtimeInput struct {
		MediaChunks []mediaChunk `json:"mediaChunks"`
	} `json:"realtimeInput"`
}

type liveServerMessage struct {
	ServerContent *struct {
		ModelTurn *struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"modelTurn"`
		TurnComplete bool `json:"turnComplete"`
	} `json:"serverContent"`
}

// DialLive opens the stream and sends the setup message.
func DialLive(ctx context.Context, cfg LiveConfig) (*LiveSession, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: no api key", ErrUnavailable)
	}
	raw := cfg.URL
	if raw == "" {
		raw = DefaultLiveURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse live url: %w", err)
	}
	q := u.Query()
	q.Set("key", cfg.APIKey)
	u.RawQuery = q.Encode()

	model := cfg.Model
	if model == "" {
		model = DefaultLiveModel
	}
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrUnavailable, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	var setup liveSetup
	setup.Setup.Model = "models/" + model
	setup.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	setup.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice
	setup.Setup.SystemInstruction = content{Parts: []part{{Text: LiveInstruction}}}

	s := &LiveSession{conn: conn, closed: make(chan struct{})}
	if err := s.writeJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: setup: %v", ErrUnavailable, err)
	}
	return s, nil
}

func (s *LiveSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.closed:
		return ErrLiveClosed
	default:
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteJSON(v)
}

// SendAudio forwards one chunk of 16 kHz PCM16 microphone audio.
func (s *LiveSession) SendAudio(pcm []byte) error {
	var in realtimeInput
	in.RealtimeInput.MediaChunks = []mediaChunk{{
		MimeType: InputMimeType,
		Data:     base64.StdEncoding.EncodeToString(pcm),
	}}
	return s.writeJSON(in)
}

// ReceiveAudio blocks for the next upstream message and returns its decoded
// audio. Messages without audio return a nil slice.
func (s *LiveSession) ReceiveAudio() ([]byte, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		select {
		case <-s.closed:
			return nil, ErrLiveClosed
		default:
		}
		return nil, err
	}
	var m liveServerMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, nil
	}
	if m.ServerContent == nil || m.ServerContent.ModelTurn == nil {
		return nil, nil
	}
	var out []byte
	for _, p := range m.ServerContent.ModelTurn.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		b, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode audio: %w", err)
		}
		out = append(out, b...)
	}
	return out, nil
}

func (s *LiveSession) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		close(s.closed)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
