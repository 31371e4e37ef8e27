package selfplay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shogi/pkg/shogi"
	"shogi/pkg/usi"
)

const (
	randomPlayer = "random"
	enginePrefix = "usi:"
)

// ErrResign is returned by Player.Move when the player gives up.
var ErrResign = errors.New("resign")

// Decision is a chosen move and, for engines that report one, the score of
// the position from sente's point of view.
type Decision struct {
	Move     shogi.Move
	Score    usi.Score
	HasScore bool
}

// Player chooses moves for one side. A Player plays one game at a time.
type Player interface {
	Name() string
	NewGame(ctx context.Context) error
	Move(ctx context.Context, g *shogi.Game) (Decision, error)
	Close() error
}

// Random plays uniformly random legal moves from the game's seeded source.
type Random struct{}

func (Random) Name() string { return randomPlayer }

func (Random) NewGame(ctx context.Context) error { return nil }

func (Random) Close() error { return nil }

func (Random) Move(ctx context.Context, g *shogi.Game) (Decision, error) {
	m, err := g.RandomMove()
	return Decision{Move: m}, err
}

// Engine asks an external USI engine for each move.
type Engine struct {
	session    *usi.Session
	label      string
	moveTimeMs int
}

// StartEngine launches the engine at path and completes the handshake.
func StartEngine(ctx context.Context, path string, options map[string]string, moveTimeMs int) (*Engine, error) {
	session, err := usi.StartSession(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	if err := session.Handshake(ctx, options); err != nil {
		session.Close()
		return nil, fmt.Errorf("handshake %s: %w", path, err)
	}
	return &Engine{session: session, label: enginePrefix + path, moveTimeMs: moveTimeMs}, nil
}

func (e *Engine) Name() string {
	if name := e.session.Name(); name != "" {
		return name
	}
	return e.label
}

func (e *Engine) NewGame(ctx context.Context) error {
	return e.session.NewGame()
}

func (e *Engine) Move(ctx context.Context, g *shogi.Game) (Decision, error) {
	res, err := e.session.Search(ctx, g, e.moveTimeMs)
	if err != nil {
		return Decision{}, err
	}
	switch res.Kind {
	case usi.EventResign, usi.EventDeclareWin:
		return Decision{}, ErrResign
	}
	return Decision{Move: res.Move, Score: res.Score, HasScore: res.HasScore}, nil
}

func (e *Engine) Close() error {
	return e.session.Close()
}

func validPlayer(name string) bool {
	return name == randomPlayer || (strings.HasPrefix(name, enginePrefix) && len(name) > len(enginePrefix))
}

// NewPlayer builds the named player: "random" or "usi:<engine path>".
func NewPlayer(ctx context.Context, name string, cfg Config) (Player, error) {
	switch {
	case name == randomPlayer:
		return Random{}, nil
	case validPlayer(name):
		engine, err := StartEngine(ctx, strings.TrimPrefix(name, enginePrefix), cfg.EngineOptions, cfg.MoveTimeMs)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
	return nil, &InvalidConfig{fmt.Sprintf("unknown player %q", name)}
}
