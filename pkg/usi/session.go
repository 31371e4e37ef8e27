package usi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"shogi/pkg/shogi"
)

var (
	ErrClosed       = errors.New("engine is closed")
	ErrEngineExited = errors.New("engine stdout closed")
)

// SearchResult is the engine's answer to one go command. Kind is
// EventBestMove, EventResign or EventDeclareWin. Score is from black's
// point of view; HasScore is false when the engine printed none.
type SearchResult struct {
	Kind     EventType
	Move     shogi.Move
	Ponder   shogi.Move
	Score    Score
	HasScore bool
	Depth    int
}

// Session is a running engine process. It serves one game at a time.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu     sync.Mutex
	closed bool

	name   string
	events chan Event
	errCh  chan error
}

// StartSession launches the engine at path in its own directory, where
// engines expect their eval files, and starts reading its output.
func StartSession(ctx context.Context, path string, args ...string) (*Session, error) {
	if path == "" {
		return nil, errors.New("engine path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, abs, args...)
	cmd.Dir = filepath.Dir(abs)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan Event, 64),
		errCh:  make(chan error, 1),
	}
	go s.readEvents(stdout)
	return s, nil
}

// readEvents forwards parsed lines until stdout closes. Malformed lines are
// dropped; engines print free-form diagnostics.
func (s *Session) readEvents(stdout io.Reader) {
	defer close(s.events)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		event, err := ParseLine(scanner.Text())
		if err != nil {
			continue
		}
		s.events <- event
	}
	if err := scanner.Err(); err != nil {
		s.errCh <- err
	}
}

func (s *Session) send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := io.WriteString(s.stdin, line+"\n")
	return err
}

// Close sends quit and waits briefly before killing the process.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	if err := s.send("quit"); errors.Is(err, ErrClosed) {
		return nil
	}
	s.mu.Lock()
	s.closed = true
	_ = s.stdin.Close()
	s.mu.Unlock()
	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		_ = s.cmd.Process.Kill()
		return errors.New("engine did not exit in time")
	}
}

// Name is the engine's "id name", known after Handshake.
func (s *Session) Name() string {
	return s.name
}

// Handshake runs usi/isready, setting options in name order in between.
func (s *Session) Handshake(ctx context.Context, options map[string]string) error {
	if err := s.send("usi"); err != nil {
		return err
	}
	for {
		event, err := s.nextEvent(ctx)
		if err != nil {
			return err
		}
		if event.Type == EventID && event.Key == "name" {
			s.name = event.Value
		}
		if event.Type == EventUSIOK {
			break
		}
	}
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.send(fmt.Sprintf("setoption name %s value %s", name, options[name])); err != nil {
			return err
		}
	}
	if err := s.send("isready"); err != nil {
		return err
	}
	for {
		event, err := s.nextEvent(ctx)
		if err != nil {
			return err
		}
		if event.Type == EventReadyOK {
			return nil
		}
	}
}

// NewGame tells the engine a new game is starting.
func (s *Session) NewGame() error {
	return s.send("usinewgame")
}

// PositionCommand builds the position command for moves played from
// startSFEN. An empty startSFEN means the standard opening.
func PositionCommand(startSFEN string, moves []shogi.Move) string {
	var b strings.Builder
	if startSFEN == "" {
		b.WriteString("position startpos")
	} else {
		b.WriteString("position sfen ")
		b.WriteString(startSFEN)
	}
	if len(moves) > 0 {
		b.WriteString(" moves")
		for _, m := range moves {
			b.WriteString(" ")
			b.WriteString(shogi.FormatMove(m))
		}
	}
	return b.String()
}

// Search sends the game's position and searches for moveTimeMs
// milliseconds.
func (s *Session) Search(ctx context.Context, g *shogi.Game, moveTimeMs int) (SearchResult, error) {
	start := g.StartSFEN()
	if start == shogi.StandardSFEN {
		start = ""
	}
	return s.Go(ctx, PositionCommand(start, g.Moves()), g.Turn() == shogi.White, moveTimeMs)
}

// Go sends position and a go command and waits for bestmove. The last
// reported score is flipped to black's point of view when white is to
// move.
func (s *Session) Go(ctx context.Context, position string, whiteToMove bool, moveTimeMs int) (SearchResult, error) {
	if err := s.send(position); err != nil {
		return SearchResult{}, err
	}
	if moveTimeMs <= 0 {
		moveTimeMs = 1
	}
	if err := s.send(fmt.Sprintf("go movetime %d", moveTimeMs)); err != nil {
		return SearchResult{}, err
	}

	var result SearchResult
	for {
		event, err := s.nextEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = s.send("stop")
			}
			return SearchResult{}, err
		}
		switch event.Type {
		case EventInfo:
			if event.Info.HasScore {
				result.Score = event.Info.Score
				result.HasScore = true
			}
			if event.Info.Depth > 0 {
				result.Depth = event.Info.Depth
			}
		case EventBestMove, EventResign, EventDeclareWin:
			result.Kind = event.Type
			result.Move = event.Move
			result.Ponder = event.Ponder
			if result.HasScore && whiteToMove {
				result.Score = result.Score.negate()
			}
			return result, nil
		}
	}
}

func (s *Session) nextEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case event, ok := <-s.events:
		if ok {
			return event, nil
		}
		select {
		case err := <-s.errCh:
			return Event{}, fmt.Errorf("%w: %v", ErrEngineExited, err)
		default:
			return Event{}, ErrEngineExited
		}
	}
}
