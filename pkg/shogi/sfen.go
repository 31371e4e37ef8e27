package shogi

import (
	"fmt"
	"strconv"
	"strings"
)

// StandardSFEN is the even-game opening position.
const StandardSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

// ParseSFEN parses a position record. The ply field is optional and
// defaults to 1.
func ParseSFEN(sfen string) (Position, int, error) {
	fields := strings.Fields(sfen)
	if len(fields) < 3 || len(fields) > 4 {
		return Position{}, 0, parseErr(sfen, "", fmt.Sprintf("expected 3 or 4 fields, got %d", len(fields)))
	}
	pos := NewPosition()
	switch fields[1] {
	case "b":
		pos.turn = Black
	case "w":
		pos.turn = White
	default:
		return Position{}, 0, parseErr(sfen, fields[1], "invalid side to move")
	}
	if err := parseBoardSFEN(sfen, fields[0], &pos); err != nil {
		return Position{}, 0, err
	}
	if err := parseHandsSFEN(sfen, fields[2], &pos); err != nil {
		return Position{}, 0, err
	}
	ply := 1
	if len(fields) == 4 {
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 1 {
			return Position{}, 0, parseErr(sfen, fields[3], "invalid move number")
		}
		ply = n
	}
	return pos, ply, nil
}

func parseBoardSFEN(input, board string, pos *Position) error {
	ranks := strings.Split(board, "/")
	if len(ranks) != 9 {
		return parseErr(input, board, fmt.Sprintf("expected 9 ranks, got %d", len(ranks)))
	}
	for row, rankText := range ranks {
		col := 0
		for i := 0; i < len(rankText); i++ {
			r := rankText[i]
			if r >= '1' && r <= '9' {
				col += int(r - '0')
				if col > 9 {
					return parseErr(input, rankText, "too many files in rank")
				}
				continue
			}
			promoted := false
			if r == '+' {
				promoted = true
				i++
				if i >= len(rankText) {
					return parseErr(input, rankText, "dangling promotion marker")
				}
				r = rankText[i]
			}
			color := Black
			if r >= 'a' && r <= 'z' {
				color = White
				r -= 'a' - 'A'
			}
			kind, ok := pieceTypeFromLetter(r)
			if !ok {
				return parseErr(input, string(rankText[i]), "unknown piece")
			}
			if promoted {
				if !kind.CanPromote() {
					return parseErr(input, "+"+string(rankText[i]), "piece cannot promote")
				}
				kind = kind.Promoted()
			}
			if col > 8 {
				return parseErr(input, rankText, "too many files in rank")
			}
			pos.board[row][col] = Piece{Type: kind, Color: color}
			col++
		}
		if col != 9 {
			return parseErr(input, rankText, fmt.Sprintf("rank %d does not have 9 files", row+1))
		}
	}
	return nil
}

func parseHandsSFEN(input, hand string, pos *Position) error {
	if hand == "-" {
		return nil
	}
	count := 0
	start := -1
	for i := 0; i < len(hand); i++ {
		r := hand[i]
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			count = count*10 + int(r-'0')
			continue
		}
		if start >= 0 && hand[start] == '0' {
			return parseErr(input, hand[start:i+1], "invalid hand count")
		}
		if count == 0 {
			count = 1
		}
		color := Black
		if r >= 'a' && r <= 'z' {
			color = White
			r -= 'a' - 'A'
		}
		kind, ok := pieceTypeFromLetter(r)
		if !ok || !kind.Droppable() {
			return parseErr(input, string(hand[i]), "unknown hand piece")
		}
		pos.hands[color][kind] += count
		count = 0
		start = -1
	}
	if count != 0 {
		return parseErr(input, hand, "trailing hand count")
	}
	return nil
}

// SFEN serializes the position with the given move number.
func (p *Position) SFEN(moveNumber int) string {
	return fmt.Sprintf("%s %s %s %d", p.boardSFEN(), p.turnSFEN(), p.handsSFEN(), moveNumber)
}

func (p *Position) boardSFEN() string {
	rows := make([]string, 0, 9)
	for row := 0; row < 9; row++ {
		rows = append(rows, p.rankToSFEN(row))
	}
	return strings.Join(rows, "/")
}

func (p *Position) turnSFEN() string {
	if p.turn == White {
		return "w"
	}
	return "b"
}

func (p *Position) rankToSFEN(row int) string {
	var b strings.Builder
	empty := 0
	flushEmpty := func() {
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
			empty = 0
		}
	}
	for col := 0; col < 9; col++ {
		piece := p.board[row][col]
		if piece.Empty() {
			empty++
			continue
		}
		flushEmpty()
		b.WriteString(piece.String())
	}
	flushEmpty()
	return b.String()
}

func (p *Position) handsSFEN() string {
	var b strings.Builder
	for _, color := range []Color{Black, White} {
		for _, kind := range DroppableTypes {
			count := p.hands[color][kind]
			if count == 0 {
				continue
			}
			if count > 1 {
				b.WriteString(strconv.Itoa(count))
			}
			b.WriteString(Piece{Type: kind, Color: color}.String())
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}
