package backtest

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/marginsim/margin"
	"github.com/rustyeddy/marginsim/sim"
)

type ActionKind string

const (
	OpenLong  ActionKind = "open_long"
	OpenShort ActionKind = "open_short"
	Close     ActionKind = "close"
)

// Action is one scripted step. Close refers to the n-th position the
// script opened (0-based), not to an engine id.
type Action struct {
	Candle   int
	Kind     ActionKind
	Input    *margin.TradeInput
	Position int
}

// ScriptedStrategy replays a fixed list of actions.
type ScriptedStrategy struct {
	actions map[int][]Action
	opened  []int
}

func NewScriptedStrategy(actions []Action) (*ScriptedStrategy, error) {
	s := &ScriptedStrategy{actions: make(map[int][]Action)}
	for i, a := range actions {
		switch a.Kind {
		case OpenLong, OpenShort, Close:
		default:
			return nil, fmt.Errorf("action %d: unknown kind %q", i, a.Kind)
		}
		if a.Candle < 0 {
			return nil, fmt.Errorf("action %d: negative candle %d", i, a.Candle)
		}
		s.actions[a.Candle] = append(s.actions[a.Candle], a)
	}
	return s, nil
}

func (s *ScriptedStrategy) Name() string { return "scripted" }

// Opened returns the engine ids of the positions opened so far.
func (s *ScriptedStrategy) Opened() []int {
	out := make([]int, len(s.opened))
	copy(out, s.opened)
	return out
}

func (s *ScriptedStrategy) OnCandle(e *sim.Engine, idx int) error {
	for _, a := range s.actions[idx] {
		switch a.Kind {
		case OpenLong, OpenShort:
			dir := margin.Long
			if a.Kind == OpenShort {
				dir = margin.Short
			}
			pid, err := e.OpenPosition(dir, a.Input)
			if err != nil {
				return err
			}
			s.opened = append(s.opened, pid)

		case Close:
			if a.Position < 0 || a.Position >= len(s.opened) {
				return fmt.Errorf("close: script has opened %d positions, no #%d", len(s.opened), a.Position)
			}
			pid := s.opened[a.Position]
			pos, err := e.Position(pid)
			if err != nil {
				return err
			}
			// Already liquidated by the engine.
			if pos.Closed {
				continue
			}
			if err := e.ClosePosition(pid); err != nil {
				return err
			}
		}
	}
	return nil
}

// LastCandle is the highest candle index any action refers to, or -1.
func (s *ScriptedStrategy) LastCandle() int {
	idx := make([]int, 0, len(s.actions))
	for c := range s.actions {
		idx = append(idx, c)
	}
	if len(idx) == 0 {
		return -1
	}
	sort.Ints(idx)
	return idx[len(idx)-1]
}
