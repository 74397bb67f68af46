package instruction

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

// SysOp selects what a SystemOp does.
type SysOp int

const (
	SysDefine SysOp = iota
	SysSet
	SysJump
	SysPlayMusic
	SysPlaySE
	SysWait
	SysCall
	SysSetPlayer
)

var sysOpNames = [...]string{
	SysDefine:    "define",
	SysSet:       "set",
	SysJump:      "nextphase",
	SysPlayMusic: "playmusic",
	SysPlaySE:    "playse",
	SysWait:      "waitfor",
	SysCall:      "call",
	SysSetPlayer: "playeris",
}

func (o SysOp) String() string {
	if o < 0 || int(o) >= len(sysOpNames) {
		return fmt.Sprintf("sysop(%d)", int(o))
	}
	return sysOpNames[o]
}

// SystemOp covers variables, phase jumps, audio, waits, host callbacks and
// the player alias.
type SystemOp struct {
	Op       SysOp
	Key      string
	Value    string
	Phase    int
	Duration time.Duration
}

func (s *SystemOp) Kind() Kind { return KindSystem }

func (s *SystemOp) Requires() capability.Set {
	switch s.Op {
	case SysDefine, SysSet:
		return capability.Variable
	case SysPlayMusic, SysPlaySE:
		return capability.Audio
	case SysCall:
		return capability.ExternalAction
	default:
		return capability.None
	}
}

func (s *SystemOp) Suspends() bool { return s.Op == SysWait }

func (s *SystemOp) String() string {
	switch s.Op {
	case SysDefine, SysSet:
		return fmt.Sprintf("%s %s %q", s.Op, s.Key, s.Value)
	case SysJump:
		return fmt.Sprintf("%s %d", s.Op, s.Phase)
	case SysWait:
		return fmt.Sprintf("%s %s", s.Op, s.Duration)
	default:
		return fmt.Sprintf("%s %s", s.Op, s.Key)
	}
}

func (s *SystemOp) Execute(ctx context.Context, rt Runtime) error {
	host := rt.Host()
	switch s.Op {
	case SysDefine:
		if !host.Variables.Create(s.Key, s.Value) {
			rt.Logger().Debug("variable already defined", "key", s.Key)
		}
	case SysSet:
		if err := host.Variables.Set(s.Key, s.Value); err != nil {
			return fmt.Errorf("set %q: %w", s.Key, err)
		}
	case SysJump:
		rt.SetPhase(s.Phase)
	case SysPlayMusic:
		return host.Audio.PlayMusic(ctx, s.Key)
	case SysPlaySE:
		return host.Audio.PlaySE(ctx, s.Key)
	case SysWait:
		if host.Clock != nil {
			return host.Clock.Sleep(ctx, s.Duration)
		}
		timer := time.NewTimer(s.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	case SysCall:
		if err := host.Actions.Call(ctx, s.Key); err != nil {
			return fmt.Errorf("call %q: %w", s.Key, err)
		}
	case SysSetPlayer:
		rt.SetPlayerKeyword(s.Key)
	default:
		return fmt.Errorf("unsupported system op %s", s.Op)
	}
	return nil
}
