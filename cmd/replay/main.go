package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "voxelyard.dev/internal/persistence/log"
	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/ids"
	"voxelyard.dev/internal/sim/tuning"
	"voxelyard.dev/internal/sim/world"
)

func main() {
	var (
		sessionDir = flag.String("session_dir", "", "session dir containing events/ and audit/")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *sessionDir == "" {
		fmt.Fprintln(os.Stderr, "missing -session_dir")
		os.Exit(2)
	}

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	res, err := replay(*sessionDir, cat, tune, *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks resets=%d last_tick=%d placed=%d\n", res.Checked, res.Resets, res.LastTick, res.Placed)
}

var errStopReplay = errors.New("stop replay")

type result struct {
	Checked  uint64
	Resets   int
	LastTick uint64
	Placed   int
}

// replay rebuilds the session from its tick log on a fresh world and checks
// every logged digest. RESET audit entries are applied before the tick they
// were recorded at, as they happened between ticks.
func replay(sessionDir string, cat *catalogs.BlockCatalog, tune tuning.Tuning, verifyFrom, toTick uint64) (result, error) {
	var res result

	resets, err := resetTicks(sessionDir)
	if err != nil {
		return res, err
	}

	files, err := persistlog.StreamFiles(sessionDir, persistlog.EventsStream)
	if err != nil {
		return res, fmt.Errorf("list events: %w", err)
	}
	if len(files) == 0 {
		return res, fmt.Errorf("no events files found in %s", sessionDir)
	}

	w, err := world.New(world.ConfigFromTuning("replay", tune), cat, world.WithIDs(ids.NewSequential("replay")))
	if err != nil {
		return res, fmt.Errorf("world: %w", err)
	}

	for _, path := range files {
		err := persistlog.ReadTicks(path, func(entry world.TickLogEntry) error {
			if toTick != 0 && entry.Tick > toTick {
				return errStopReplay
			}
			if entry.Tick != w.CurrentTick() {
				return fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", w.CurrentTick(), entry.Tick, filepath.Base(path))
			}
			if resets[entry.Tick] {
				w.Reset()
				res.Resets++
			}
			snap := w.Tick(entry.Delta, entry.Input)
			res.LastTick = snap.Tick
			if snap.Tick >= verifyFrom {
				res.Checked++
				if snap.Digest != entry.Digest {
					return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", snap.Tick, snap.Digest, entry.Digest)
				}
			}
			return nil
		})
		if errors.Is(err, errStopReplay) {
			break
		}
		if err != nil {
			return res, err
		}
	}
	res.Placed = len(w.PlacedBlocks())
	return res, nil
}

func resetTicks(sessionDir string) (map[uint64]bool, error) {
	out := map[uint64]bool{}
	files, err := persistlog.StreamFiles(sessionDir, persistlog.AuditStream)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("list audit: %w", err)
	}
	for _, path := range files {
		err := persistlog.ReadAudits(path, func(e world.AuditEntry) error {
			if e.Action == "RESET" {
				out[e.Tick] = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
