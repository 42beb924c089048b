package market

import (
	"context"

	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/service/simulation"
)

// Operator commands accepted by Command
const (
	CmdSet        = "set"
	CmdToggleAuto = "toggleAuto"
	CmdTick       = "tick"
	CmdNudge      = "nudge"
)

// CommandRequest is the body of an operator command. Fields not used by a
// command are ignored.
type CommandRequest struct {
	Ticker    string          `json:"ticker"`
	Timeframe model.Timeframe `json:"tf"`
	Drift     *float64        `json:"drift"`
	Vol       *float64        `json:"vol"`
	Dir       model.Direction `json:"dir"`
	Amount    *float64        `json:"amount"`
}

// StateView is the operator-facing view of a simulation state
type StateView struct {
	LastTime  int64   `json:"lastTime"`
	LastClose float64 `json:"lastClose"`
	Drift     float64 `json:"drift"`
	Vol       float64 `json:"vol"`
	IsPaused  bool    `json:"isPaused"`
}

// CommandResponse carries the field relevant to the executed command
type CommandResponse struct {
	OK        bool          `json:"ok"`
	IsPaused  *bool         `json:"isPaused,omitempty"`
	Candle    *model.Candle `json:"candle,omitempty"`
	State     *StateView    `json:"state,omitempty"`
	LastClose *float64      `json:"lastClose,omitempty"`
}

// Command applies an operator override to the selected series
func (s *Service) Command(ctx context.Context, cmd string, req *CommandRequest) (*CommandResponse, error) {
	switch cmd {
	case CmdSet, CmdToggleAuto, CmdTick, CmdNudge:
	default:
		return nil, apperr.InvalidInput("invalid cmd")
	}

	st, err := s.state(ctx, req.Ticker, req.Timeframe)
	if err != nil {
		return nil, err
	}
	key := st.Key().String()

	// anything but DOWN ticks or nudges up
	dir := model.DirectionUp
	if req.Dir == model.DirectionDown {
		dir = model.DirectionDown
	}

	switch cmd {
	case CmdToggleAuto:
		paused := s.sim.ToggleAuto(st)
		s.logger.Info("simulation toggled", "key", key, "paused", paused)
		return &CommandResponse{OK: true, IsPaused: &paused}, nil

	case CmdTick:
		candle := s.sim.ManualTick(st, dir)
		s.logger.Info("manual tick", "key", key, "dir", dir, "close", candle.Close)
		return &CommandResponse{OK: true, Candle: &candle}, nil

	case CmdSet:
		snap := s.sim.SetParams(st, req.Drift, req.Vol)
		s.logger.Info("simulation params set", "key", key, "drift", snap.Drift, "vol", snap.Volatility)
		return &CommandResponse{OK: true, State: stateView(snap)}, nil

	default:
		amount := float64(simulation.DefaultNudge)
		if req.Amount != nil {
			amount = *req.Amount
		}
		lastClose := s.sim.Nudge(st, dir, amount)
		s.logger.Info("simulation nudged", "key", key, "dir", dir, "last_close", lastClose)
		return &CommandResponse{OK: true, LastClose: &lastClose}, nil
	}
}

func stateView(snap simulation.Snapshot) *StateView {
	return &StateView{
		LastTime:  snap.LastTime,
		LastClose: snap.LastClose,
		Drift:     snap.Drift,
		Vol:       snap.Volatility,
		IsPaused:  snap.Paused,
	}
}
