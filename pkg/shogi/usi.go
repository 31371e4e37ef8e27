package shogi

import (
	"fmt"
	"strings"
)

// FormatMove renders m in USI notation, e.g. "7g7f", "8h2b+" or "P*5e".
func FormatMove(m Move) string {
	switch m := m.(type) {
	case BoardMove:
		text := m.From().String() + m.To().String()
		if m.Promote {
			text += "+"
		}
		return text
	case DropMove:
		return fmt.Sprintf("%s*%s", pieceLetters[m.Piece], m.To())
	default:
		return ""
	}
}

// ParseMove parses a USI move. It checks syntax only, not legality.
func ParseMove(text string) (Move, error) {
	if strings.Contains(text, "*") {
		parts := strings.SplitN(text, "*", 2)
		if len(parts[0]) != 1 {
			return nil, parseErr(text, parts[0], "invalid drop piece")
		}
		kind, ok := pieceTypeFromLetter(parts[0][0])
		if !ok || !kind.Droppable() {
			return nil, parseErr(text, parts[0], "invalid drop piece")
		}
		to, err := parseUSISquare(text, parts[1])
		if err != nil {
			return nil, err
		}
		return DropMove{ToRow: to.Row, ToCol: to.Col, Piece: kind}, nil
	}
	if len(text) != 4 && len(text) != 5 {
		return nil, parseErr(text, text, "invalid move length")
	}
	from, err := parseUSISquare(text, text[0:2])
	if err != nil {
		return nil, err
	}
	to, err := parseUSISquare(text, text[2:4])
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, parseErr(text, text[0:4], "source equals destination")
	}
	promote := false
	if len(text) == 5 {
		if text[4] != '+' {
			return nil, parseErr(text, text[4:], "invalid promotion marker")
		}
		promote = true
	}
	return BoardMove{FromRow: from.Row, FromCol: from.Col, ToRow: to.Row, ToCol: to.Col, Promote: promote}, nil
}

func parseUSISquare(input, text string) (Square, error) {
	if len(text) != 2 {
		return Square{}, parseErr(input, text, "invalid square")
	}
	file := int(text[0]) - '0'
	if file < 1 || file > 9 {
		return Square{}, parseErr(input, text, "invalid file")
	}
	rank := int(text[1]) - 'a'
	if rank < 0 || rank > 8 {
		return Square{}, parseErr(input, text, "invalid rank")
	}
	return Square{Row: rank, Col: 9 - file}, nil
}
