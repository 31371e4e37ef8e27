package shogi

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Packed256 is a 256-bit Huffman encoding of a position with all forty
// pieces present. Move numbers are not stored.
type Packed256 struct {
	Words [4]uint64
}

type bitStream256 struct {
	words [4]uint64
	pos   int
}

type pieceCode struct {
	kind   PieceType
	bits   uint64
	bitLen int
}

// Board codes; NoPieceType marks an empty square.
var boardCodes = []pieceCode{
	{kind: NoPieceType, bits: 0b0, bitLen: 1},
	{kind: Pawn, bits: 0b01, bitLen: 2},
	{kind: Lance, bits: 0b0011, bitLen: 4},
	{kind: Knight, bits: 0b1011, bitLen: 4},
	{kind: Silver, bits: 0b0111, bitLen: 4},
	{kind: Gold, bits: 0b01111, bitLen: 5},
	{kind: Bishop, bits: 0b011111, bitLen: 6},
	{kind: Rook, bits: 0b111111, bitLen: 6},
}

// Hand codes are the board codes with the leading empty bit dropped, so a
// piece costs the same number of bits wherever it is.
var handCodes = []pieceCode{
	{kind: Pawn, bits: 0b0, bitLen: 1},
	{kind: Lance, bits: 0b001, bitLen: 3},
	{kind: Knight, bits: 0b101, bitLen: 3},
	{kind: Silver, bits: 0b011, bitLen: 3},
	{kind: Gold, bits: 0b0111, bitLen: 4},
	{kind: Bishop, bits: 0b01111, bitLen: 5},
	{kind: Rook, bits: 0b11111, bitLen: 5},
}

var errBitstream = errors.New("packed position bitstream exhausted")

// Pack256 encodes the position. It fails unless both kings are on the board
// and every other piece of a full set is on the board or in a hand.
func (p *Position) Pack256() (Packed256, error) {
	w := &bitStream256{}

	turnBit := uint64(0)
	if p.turn == White {
		turnBit = 1
	}
	if err := w.writeBit(turnBit); err != nil {
		return Packed256{}, err
	}

	blackKing, whiteKing, err := p.kingIndices()
	if err != nil {
		return Packed256{}, err
	}
	if err := w.writeBits(uint64(blackKing), 7); err != nil {
		return Packed256{}, err
	}
	if err := w.writeBits(uint64(whiteKing), 7); err != nil {
		return Packed256{}, err
	}

	for sq := 0; sq < 81; sq++ {
		if sq == blackKing || sq == whiteKing {
			continue
		}
		piece := p.board[sq/9][sq%9]
		if piece.Empty() {
			if err := w.writeCode(boardCodes, NoPieceType); err != nil {
				return Packed256{}, err
			}
			continue
		}
		if err := w.writePiece(boardCodes, piece.Type.Base(), piece.Color, piece.Type.IsPromoted()); err != nil {
			return Packed256{}, err
		}
	}

	for _, color := range []Color{Black, White} {
		for _, kind := range []PieceType{Pawn, Lance, Knight, Silver, Gold, Bishop, Rook} {
			for i := 0; i < p.hands[color][kind]; i++ {
				if err := w.writePiece(handCodes, kind, color, false); err != nil {
					return Packed256{}, err
				}
			}
		}
	}

	if w.pos != 256 {
		return Packed256{}, fmt.Errorf("packed length is %d bits, expected 256: %w", w.pos, ErrInvalidArgument)
	}
	return Packed256{Words: w.words}, nil
}

// UnpackPosition256 decodes a position written by Pack256.
func UnpackPosition256(packed Packed256) (Position, error) {
	r := &bitStream256{words: packed.Words}

	turnBit, err := r.readBit()
	if err != nil {
		return Position{}, err
	}
	pos := NewPosition()
	if turnBit == 1 {
		pos.turn = White
	}

	blackKing, err := r.readBits(7)
	if err != nil {
		return Position{}, err
	}
	whiteKing, err := r.readBits(7)
	if err != nil {
		return Position{}, err
	}
	if blackKing >= 81 || whiteKing >= 81 || blackKing == whiteKing {
		return Position{}, fmt.Errorf("bad king squares %d, %d: %w", blackKing, whiteKing, ErrInvalidArgument)
	}
	pos.board[blackKing/9][blackKing%9] = Piece{Type: King, Color: Black}
	pos.board[whiteKing/9][whiteKing%9] = Piece{Type: King, Color: White}

	for sq := 0; sq < 81; sq++ {
		if sq == int(blackKing) || sq == int(whiteKing) {
			continue
		}
		kind, err := r.readCode(boardCodes)
		if err != nil {
			return Position{}, err
		}
		if kind == NoPieceType {
			continue
		}
		color, promoted, err := r.readAttributes(kind)
		if err != nil {
			return Position{}, err
		}
		if promoted {
			kind = kind.Promoted()
		}
		pos.board[sq/9][sq%9] = Piece{Type: kind, Color: color}
	}

	for r.pos < 256 {
		kind, err := r.readCode(handCodes)
		if err != nil {
			return Position{}, err
		}
		color, promoted, err := r.readAttributes(kind)
		if err != nil {
			return Position{}, err
		}
		if promoted {
			return Position{}, fmt.Errorf("promoted %s in hand: %w", kind, ErrInvalidArgument)
		}
		pos.hands[color][kind]++
	}
	return pos, nil
}

// String returns the packed words as 64 hex digits.
func (p Packed256) String() string {
	return hex.EncodeToString(p.Bytes())
}

// Bytes returns the packed words little-endian, 32 bytes in total.
func (p Packed256) Bytes() []byte {
	out := make([]byte, 32)
	for i, word := range p.Words {
		for b := 0; b < 8; b++ {
			out[i*8+b] = byte(word >> (8 * b))
		}
	}
	return out
}

// Packed256FromBytes is the inverse of Packed256.Bytes.
func Packed256FromBytes(data []byte) (Packed256, error) {
	if len(data) != 32 {
		return Packed256{}, fmt.Errorf("packed position has %d bytes, expected 32: %w", len(data), ErrInvalidArgument)
	}
	var p Packed256
	for i := range p.Words {
		for b := 0; b < 8; b++ {
			p.Words[i] |= uint64(data[i*8+b]) << (8 * b)
		}
	}
	return p, nil
}

func (p *Position) kingIndices() (int, int, error) {
	black, white := -1, -1
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			piece := p.board[r][c]
			if piece.Type != King {
				continue
			}
			idx := r*9 + c
			switch {
			case piece.Color == Black && black == -1:
				black = idx
			case piece.Color == White && white == -1:
				white = idx
			default:
				return 0, 0, fmt.Errorf("multiple %s kings: %w", piece.Color, ErrInvalidArgument)
			}
		}
	}
	if black == -1 || white == -1 {
		return 0, 0, fmt.Errorf("missing king: %w", ErrInvalidArgument)
	}
	return black, white, nil
}

func (w *bitStream256) writeBit(bit uint64) error {
	if w.pos >= 256 {
		return fmt.Errorf("too much material: %w", errBitstream)
	}
	if bit != 0 {
		w.words[w.pos/64] |= 1 << uint(w.pos%64)
	}
	w.pos++
	return nil
}

func (w *bitStream256) writeBits(value uint64, bitLen int) error {
	for i := 0; i < bitLen; i++ {
		if err := w.writeBit((value >> i) & 1); err != nil {
			return err
		}
	}
	return nil
}

func (w *bitStream256) writeCode(codes []pieceCode, kind PieceType) error {
	for _, code := range codes {
		if code.kind == kind {
			return w.writeBits(code.bits, code.bitLen)
		}
	}
	return fmt.Errorf("no code for %s: %w", kind, ErrInvalidArgument)
}

// writePiece writes the code, a color bit and, for promotable kinds, a
// promotion bit.
func (w *bitStream256) writePiece(codes []pieceCode, kind PieceType, color Color, promoted bool) error {
	if err := w.writeCode(codes, kind); err != nil {
		return err
	}
	colorBit := uint64(0)
	if color == White {
		colorBit = 1
	}
	if err := w.writeBit(colorBit); err != nil {
		return err
	}
	if !kind.CanPromote() {
		return nil
	}
	promoBit := uint64(0)
	if promoted {
		promoBit = 1
	}
	return w.writeBit(promoBit)
}

func (r *bitStream256) readBit() (uint64, error) {
	if r.pos >= 256 {
		return 0, errBitstream
	}
	bit := (r.words[r.pos/64] >> uint(r.pos%64)) & 1
	r.pos++
	return bit, nil
}

func (r *bitStream256) readBits(bitLen int) (uint64, error) {
	var value uint64
	for i := 0; i < bitLen; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		value |= bit << i
	}
	return value, nil
}

func (r *bitStream256) readCode(codes []pieceCode) (PieceType, error) {
	var value uint64
	for length := 1; length <= 6; length++ {
		bit, err := r.readBit()
		if err != nil {
			return NoPieceType, err
		}
		value |= bit << (length - 1)
		for _, code := range codes {
			if code.bitLen == length && code.bits == value {
				return code.kind, nil
			}
		}
	}
	return NoPieceType, fmt.Errorf("invalid piece code %b: %w", value, ErrInvalidArgument)
}

func (r *bitStream256) readAttributes(kind PieceType) (Color, bool, error) {
	colorBit, err := r.readBit()
	if err != nil {
		return NoColor, false, err
	}
	color := Black
	if colorBit == 1 {
		color = White
	}
	if !kind.CanPromote() {
		return color, false, nil
	}
	promoBit, err := r.readBit()
	if err != nil {
		return NoColor, false, err
	}
	return color, promoBit == 1, nil
}
