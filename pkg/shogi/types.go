package shogi

import "fmt"

type Color uint8

const (
	Black Color = iota
	White
	// NoColor marks an absent winner or an unspecified perspective.
	NoColor
)

func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return NoColor
	}
}

func (c Color) Valid() bool {
	return c == Black || c == White
}

func (c Color) String() string {
	switch c {
	case Black:
		return "sente"
	case White:
		return "gote"
	default:
		return "none"
	}
}

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	ProPawn
	ProLance
	ProKnight
	ProSilver
	Horse
	Dragon
)

// NumPieceTypes counts the real piece kinds (NoPieceType excluded).
const NumPieceTypes = 14

// DroppableTypes lists the hand piece kinds in canonical SFEN hand order.
var DroppableTypes = []PieceType{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

var promotedOf = map[PieceType]PieceType{
	Pawn:   ProPawn,
	Lance:  ProLance,
	Knight: ProKnight,
	Silver: ProSilver,
	Bishop: Horse,
	Rook:   Dragon,
}

var baseOf = map[PieceType]PieceType{
	ProPawn:   Pawn,
	ProLance:  Lance,
	ProKnight: Knight,
	ProSilver: Silver,
	Horse:     Bishop,
	Dragon:    Rook,
}

var pieceLetters = map[PieceType]string{
	Pawn:   "P",
	Lance:  "L",
	Knight: "N",
	Silver: "S",
	Gold:   "G",
	Bishop: "B",
	Rook:   "R",
	King:   "K",
}

// CanPromote reports whether the type has a promoted form.
func (t PieceType) CanPromote() bool {
	_, ok := promotedOf[t]
	return ok
}

func (t PieceType) IsPromoted() bool {
	_, ok := baseOf[t]
	return ok
}

// Promoted returns the promoted form, or t itself when t cannot promote.
func (t PieceType) Promoted() PieceType {
	if p, ok := promotedOf[t]; ok {
		return p
	}
	return t
}

// Base returns the unpromoted form of t.
func (t PieceType) Base() PieceType {
	if b, ok := baseOf[t]; ok {
		return b
	}
	return t
}

// Droppable reports whether pieces of this type may be held in hand.
func (t PieceType) Droppable() bool {
	return t >= Pawn && t <= Rook
}

// Letter returns the SFEN letter of the base type, with a "+" prefix for promoted kinds.
func (t PieceType) Letter() string {
	if t.IsPromoted() {
		return "+" + pieceLetters[t.Base()]
	}
	return pieceLetters[t]
}

func (t PieceType) String() string {
	if t == NoPieceType {
		return "-"
	}
	return t.Letter()
}

func pieceTypeFromLetter(r byte) (PieceType, bool) {
	switch r {
	case 'P':
		return Pawn, true
	case 'L':
		return Lance, true
	case 'N':
		return Knight, true
	case 'S':
		return Silver, true
	case 'G':
		return Gold, true
	case 'B':
		return Bishop, true
	case 'R':
		return Rook, true
	case 'K':
		return King, true
	default:
		return NoPieceType, false
	}
}

// Piece is a value; the zero Piece is an empty square.
type Piece struct {
	Type  PieceType
	Color Color
}

func (p Piece) Empty() bool {
	return p.Type == NoPieceType
}

func (p Piece) Promote() Piece {
	return Piece{Type: p.Type.Promoted(), Color: p.Color}
}

func (p Piece) Demote() Piece {
	return Piece{Type: p.Type.Base(), Color: p.Color}
}

func (p Piece) String() string {
	if p.Empty() {
		return "."
	}
	text := p.Type.Letter()
	if p.Color == White {
		return toLowerASCII(text)
	}
	return text
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Square is a board coordinate: Row 0 is rank "a", Col 0 is file 9.
type Square struct {
	Row int
	Col int
}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 9 && s.Col >= 0 && s.Col < 9
}

func (s Square) File() int {
	return 9 - s.Col
}

func (s Square) Rank() int {
	return s.Row + 1
}

func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
	}
	return fmt.Sprintf("%d%c", s.File(), 'a'+s.Row)
}

func checkSquare(row, col int) error {
	if row < 0 || row > 8 || col < 0 || col > 8 {
		return fmt.Errorf("square (%d,%d): %w", row, col, ErrOutOfBounds)
	}
	return nil
}
