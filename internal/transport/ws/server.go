package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelyard.dev/internal/chat"
	"voxelyard.dev/internal/contact"
	"voxelyard.dev/internal/protocol"
	"voxelyard.dev/internal/sim/manifest"
	"voxelyard.dev/internal/sim/world"
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
	requestTimeout   = 5 * time.Second
	outQueue         = 64
)

// ConnMetrics receives connection and chat counters. Optional.
type ConnMetrics interface {
	ClientConnected()
	ClientDisconnected()
	CountChat(result string)
}

// VoiceLink is an upstream audio stream. Binary client frames are forwarded
// to it and its audio comes back as binary frames.
type VoiceLink interface {
	SendAudio(pcm []byte) error
	ReceiveAudio() ([]byte, error)
}

type Options struct {
	Desk    contact.Desk
	Relay   *chat.Relay
	Voice   VoiceLink
	Metrics ConnMetrics
}

// Server hosts the single player of one world. A second connection is
// refused while the first is open.
type Server struct {
	world     *world.World
	log       *log.Logger
	validator *protocol.Validator
	opts      Options

	upgrader websocket.Upgrader
	busy     atomic.Bool

	voiceOnce sync.Once
	voiceOut  chan []byte
}

func NewServer(w *world.World, logger *log.Logger, opts Options) (*Server, error) {
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Server{
		world:     w,
		log:       logger,
		validator: v,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		voiceOut: make(chan []byte, outQueue),
	}, nil
}

type frame struct {
	kind int
	b    []byte
}

type session struct {
	conn  *websocket.Conn
	id    string
	touch bool
	ctx   context.Context
	out   chan frame
}

func (ss *session) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case ss.out <- frame{kind: websocket.TextMessage, b: b}:
	case <-ss.ctx.Done():
	}
}

// trySend drops the frame when the queue is full.
func (ss *session) trySend(f frame) {
	select {
	case ss.out <- f:
	default:
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}
		if !s.busy.CompareAndSwap(false, true) {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrSessionBusy, "a player is already connected"))
			closeWith(conn, websocket.CloseTryAgainLater, "busy")
			return
		}
		defer s.busy.Store(false)
		if s.opts.Metrics != nil {
			s.opts.Metrics.ClientConnected()
			defer s.opts.Metrics.ClientDisconnected()
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		ss := &session{
			conn:  conn,
			id:    uuid.NewString(),
			touch: hello.Touch,
			ctx:   ctx,
			out:   make(chan frame, outQueue),
		}
		s.logf("client %s connected (%s)", ss.id, hello.ClientName)

		if err := writeJSON(conn, s.welcome()); err != nil {
			return
		}

		snaps, err := s.world.Subscribe(ctx, ss.id)
		if err != nil {
			return
		}
		defer s.world.Unsubscribe(ss.id)
		// Keys still down when the client goes away must not keep the player walking.
		defer s.world.SubmitInput(world.Input{})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case pcm := <-s.voiceOut:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
						cancel()
						return
					}
				case f := <-ss.out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(f.kind, f.b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Snapshot pump.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-snaps:
					if !ok {
						cancel()
						return
					}
					b, err := json.Marshal(protocol.SnapshotMsg{
						Type:            protocol.TypeSnapshot,
						ProtocolVersion: protocol.Version,
						Tick:            snap.Tick,
						State:           snap,
					})
					if err != nil {
						continue
					}
					ss.trySend(frame{kind: websocket.TextMessage, b: b})
				}
			}
		}()

		// Reader loop.
		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if kind == websocket.BinaryMessage {
				if s.opts.Voice != nil {
					if err := s.opts.Voice.SendAudio(msg); err != nil {
						s.logf("voice: %v", err)
					}
				}
				continue
			}
			if !s.handleMessage(ss, msg) {
				break
			}
		}
		cancel()
		s.logf("client %s disconnected", ss.id)
	}
}

// handleMessage returns false when the session should end.
func (s *Server) handleMessage(ss *session, msg []byte) bool {
	base, err := s.validator.Validate(msg)
	if err != nil {
		ss.send(protocol.NewError(protocol.ErrBadRequest, err.Error()))
		return true
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		ss.send(protocol.NewError(protocol.ErrProtoVersion, "unsupported protocol_version"))
		return true
	}

	switch base.Type {
	case protocol.TypeInput:
		var in protocol.InputMsg
		if err := json.Unmarshal(msg, &in); err != nil {
			ss.send(protocol.NewError(protocol.ErrBadRequest, err.Error()))
			return true
		}
		s.world.SubmitInput(WorldInput(in.Input))

	case protocol.TypeFinish:
		ctx, cancel := context.WithTimeout(ss.ctx, requestTimeout)
		m, err := s.world.RequestManifest(ctx)
		cancel()
		switch {
		case errors.Is(err, manifest.ErrNothingPlaced):
			ss.send(protocol.NewError(protocol.ErrEmptyManifest, "place at least one block before finishing"))
		case err != nil:
			ss.send(protocol.NewError(protocol.ErrInternal, err.Error()))
		default:
			ss.send(s.manifestMsg(ss, m))
		}

	case protocol.TypeReset:
		ctx, cancel := context.WithTimeout(ss.ctx, requestTimeout)
		err := s.world.RequestReset(ctx)
		cancel()
		if err != nil {
			ss.send(protocol.NewError(protocol.ErrInternal, err.Error()))
		}

	case protocol.TypeExit:
		s.logf("client %s exited, stopping world %s", ss.id, s.world.ID())
		s.world.Stop()
		select {
		case <-s.world.Done():
		case <-time.After(requestTimeout):
			s.logf("world %s did not stop within %s", s.world.ID(), requestTimeout)
		}
		closeWith(ss.conn, websocket.CloseNormalClosure, "exit")
		return false

	case protocol.TypeChat:
		var c protocol.ChatMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			ss.send(protocol.NewError(protocol.ErrBadRequest, err.Error()))
			return true
		}
		s.chat(ss, c.Text)

	default:
		ss.send(protocol.NewError(protocol.ErrBadRequest, "unexpected message type"))
	}
	return true
}

func (s *Server) chat(ss *session, text string) {
	if s.opts.Relay == nil {
		s.countChat("error")
		ss.send(protocol.NewError(protocol.ErrChatUnavailable, "chat is not configured"))
		return
	}
	accepted := s.opts.Relay.Ask(text, func(rep chat.Reply, err error) {
		if err != nil {
			s.logf("chat: %v", err)
			s.countChat("error")
			ss.send(protocol.NewError(protocol.ErrChatUnavailable, "the assistant is not responding, try again later"))
			return
		}
		if rep.Demo {
			s.countChat("demo")
		} else {
			s.countChat("ok")
		}
		ss.send(protocol.ChatReplyMsg{
			Type:            protocol.TypeChatReply,
			ProtocolVersion: protocol.Version,
			Text:            rep.Text,
			Demo:            rep.Demo,
		})
	})
	if !accepted {
		s.countChat("busy")
		ss.send(protocol.NewError(protocol.ErrChatUnavailable, "the assistant is busy"))
	}
}

func (s *Server) countChat(result string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.CountChat(result)
	}
}

func (s *Server) manifestMsg(ss *session, m manifest.Manifest) protocol.ManifestMsg {
	sub := s.opts.Desk.Submit(m)
	msg := protocol.ManifestMsg{
		Type:            protocol.TypeManifest,
		ProtocolVersion: protocol.Version,
		Recipient:       sub.Recipient,
		Subject:         sub.Subject,
		Text:            sub.Body,
		Total:           sub.Total,
	}
	if ss.touch {
		msg.Mailto = sub.Mailto
	}
	for _, e := range m.Entries {
		msg.Entries = append(msg.Entries, protocol.ManifestEntry{TypeID: e.TypeID, Name: e.Name, Count: e.Count})
	}
	return msg
}

func (s *Server) welcome() protocol.WelcomeMsg {
	cfg := s.world.Config()
	cat := s.world.Catalog()
	msg := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.world.ID(),
		WorldParams: protocol.WorldParams{
			TickRateHz: cfg.TickRateHz,
			RoomSize:   int(math.Round(cfg.Room.Max.X() - cfg.Room.Min.X() + 1)),
			Height:     int(math.Round(cfg.Room.Max.Y() - cfg.Room.Min.Y())),
			MaxRange:   cfg.MaxRange,
		},
		Catalog: protocol.DigestRef{Digest: cat.Digest, Count: cat.Len()},
	}
	for _, d := range cat.All() {
		msg.Blocks = append(msg.Blocks, protocol.BlockInfo{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Color:       d.Color.Hex(),
		})
	}
	return msg
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, false
	}

	base, err := s.validator.Validate(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "expected HELLO"))
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return hello, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "bad protocol_version"))
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return hello, false
	}
	if hello.ClientName == "" {
		hello.ClientName = "player"
	}
	return hello, true
}

// StartVoice pumps upstream audio to whichever client is connected. Audio
// arriving while nobody is connected or the queue is full is dropped.
func (s *Server) StartVoice() {
	if s.opts.Voice == nil {
		return
	}
	s.voiceOnce.Do(func() {
		go func() {
			for {
				pcm, err := s.opts.Voice.ReceiveAudio()
				if err != nil {
					s.logf("voice stream ended: %v", err)
					return
				}
				if len(pcm) == 0 {
					continue
				}
				select {
				case s.voiceOut <- pcm:
				default:
				}
			}
		}()
	})
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// WorldInput maps the wire input record onto the world's input.
func WorldInput(in protocol.InputState) world.Input {
	return world.Input{
		MoveForward:     in.Forward,
		MoveBack:        in.Back,
		MoveLeft:        in.Left,
		MoveRight:       in.Right,
		Sprint:          in.Sprint,
		AnalogX:         in.AnalogX,
		AnalogY:         in.AnalogY,
		LookDeltaYaw:    in.LookYaw,
		LookDeltaPitch:  in.LookPitch,
		InteractPressed: in.Interact,
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
