// Package usi plays shogi against external engines over the USI protocol.
package usi

import (
	"fmt"
	"strconv"
	"strings"

	"shogi/pkg/shogi"
)

type EventType int

const (
	EventUnknown EventType = iota
	EventID
	EventOption
	EventUSIOK
	EventReadyOK
	EventInfo
	EventBestMove
	// EventResign and EventDeclareWin are the bestmove replies that end
	// the game instead of moving.
	EventResign
	EventDeclareWin
)

// Score is an engine evaluation in centipawns ("cp") or moves to mate
// ("mate"). Positive values favor the side the score is relative to.
type Score struct {
	Kind  string
	Value int
}

func (s Score) String() string {
	switch s.Kind {
	case "cp":
		return fmt.Sprintf("cp %d", s.Value)
	case "mate":
		return fmt.Sprintf("mate %d", s.Value)
	}
	return "unknown"
}

func (s Score) negate() Score {
	s.Value = -s.Value
	return s
}

// Info is the parsed payload of an info line. Score is relative to the
// side to move, as engines report it. PV stops at the first token that is
// not a move.
type Info struct {
	Depth    int
	Nodes    int64
	Score    Score
	HasScore bool
	PV       []shogi.Move
}

// Event is one parsed engine line.
type Event struct {
	Type EventType
	// ID name/author pairs and option names.
	Key   string
	Value string
	// Move and Ponder are set for EventBestMove; Ponder may be nil.
	Move   shogi.Move
	Ponder shogi.Move
	Info   Info
	Raw    string
}

// ParseLine converts a line of engine output into an event. Lines the
// protocol does not define become EventUnknown.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, fmt.Errorf("empty engine line")
	}
	e := Event{Raw: line}
	switch fields[0] {
	case "id":
		if len(fields) < 3 {
			return Event{}, fmt.Errorf("invalid id: %q", line)
		}
		e.Type, e.Key, e.Value = EventID, fields[1], strings.Join(fields[2:], " ")
	case "option":
		e.Type = EventOption
		if len(fields) >= 3 && fields[1] == "name" {
			e.Key = fields[2]
		}
	case "usiok":
		e.Type = EventUSIOK
	case "readyok":
		e.Type = EventReadyOK
	case "info":
		e.Type = EventInfo
		e.Info = parseInfo(fields[1:])
	case "bestmove":
		if len(fields) < 2 {
			return Event{}, fmt.Errorf("invalid bestmove: %q", line)
		}
		switch fields[1] {
		case "resign":
			e.Type = EventResign
			return e, nil
		case "win":
			e.Type = EventDeclareWin
			return e, nil
		}
		m, err := shogi.ParseMove(fields[1])
		if err != nil {
			return Event{}, fmt.Errorf("bestmove: %w", err)
		}
		e.Type, e.Move = EventBestMove, m
		if len(fields) >= 4 && fields[2] == "ponder" {
			if ponder, err := shogi.ParseMove(fields[3]); err == nil {
				e.Ponder = ponder
			}
		}
	default:
		e.Type = EventUnknown
	}
	return e, nil
}

func parseInfo(fields []string) Info {
	var info Info
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				info.Depth, _ = strconv.Atoi(fields[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(fields) {
				info.Nodes, _ = strconv.ParseInt(fields[i+1], 10, 64)
				i++
			}
		case "score":
			if i+2 < len(fields) {
				kind := fields[i+1]
				value, err := strconv.Atoi(fields[i+2])
				if err == nil && (kind == "cp" || kind == "mate") {
					info.Score = Score{Kind: kind, Value: value}
					info.HasScore = true
				}
				i += 2
			}
		case "pv":
			for _, text := range fields[i+1:] {
				m, err := shogi.ParseMove(text)
				if err != nil {
					break
				}
				info.PV = append(info.PV, m)
			}
			return info
		case "string":
			return info
		}
	}
	return info
}
