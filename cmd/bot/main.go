package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"voxelyard.dev/internal/protocol"
	"voxelyard.dev/internal/sim/world"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		target = flag.Int("place", 5, "blocks to place before sending FINISH")
		exit   = flag.Bool("exit", false, "send EXIT after the manifest arrives")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{rng: rand.New(rand.NewSource(time.Now().UnixNano())), target: *target}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s tick_rate=%d blocks=%d", w.SessionID, w.WorldParams.TickRateHz, len(w.Blocks))

		case protocol.TypeSnapshot:
			var s struct {
				State world.Snapshot `json:"state"`
			}
			if err := json.Unmarshal(msg, &s); err != nil {
				continue
			}
			if out, ok := b.next(s.State); ok {
				_ = conn.WriteJSON(out)
			}

		case protocol.TypeManifest:
			var m protocol.ManifestMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logger.Printf("MANIFEST total=%d to=%s\n%s", m.Total, m.Recipient, m.Text)
			if *exit {
				_ = conn.WriteJSON(protocol.CommandMsg{Type: protocol.TypeExit, ProtocolVersion: protocol.Version})
				return
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			}
		}
	}
}

// bot wanders the room, picks up whatever it aims at and places it wherever
// a ghost preview shows up.
type bot struct {
	rng      *rand.Rand
	target   int
	placed   int
	finished bool
	cooldown int
	turn     float64
}

func (b *bot) next(s world.Snapshot) (any, bool) {
	if s.Result != nil && s.Result.Outcome == world.OutcomePlaced {
		b.placed++
	}
	if !b.finished && b.placed >= b.target {
		b.finished = true
		return protocol.CommandMsg{Type: protocol.TypeFinish, ProtocolVersion: protocol.Version}, true
	}
	if b.finished {
		return nil, false
	}

	in := protocol.InputState{}
	if b.cooldown > 0 {
		b.cooldown--
	} else {
		pick := s.Held == "" && s.Hover != nil && s.Hover.Hint == world.HintPickUp
		place := s.Held != "" && s.Preview != nil
		if pick || place {
			in.Interact = true
			b.cooldown = 10
		}
	}

	if b.rng.Intn(40) == 0 {
		b.turn = (b.rng.Float64()*2 - 1) * 0.05
	}
	in.LookYaw = b.turn
	// Ease the pitch toward a target: level while searching, down at the
	// floor while holding a block.
	wantPitch := (b.rng.Float64()*2 - 1) * 0.3
	if s.Held != "" {
		wantPitch = -0.6
	}
	in.LookPitch = (wantPitch - s.Player.Pitch) * 0.2
	in.Forward = b.rng.Intn(3) == 0
	return protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version, Input: in}, true
}
