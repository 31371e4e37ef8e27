package shogi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// KIFHeader carries the metadata lines of a KIF record.
type KIFHeader struct {
	Sente string
	Gote  string
	Start time.Time
}

// KIFRecord is a parsed KIF game.
type KIFRecord struct {
	Header    KIFHeader
	StartSFEN string
	Moves     []Move
	// Terminal is the closing marker such as 投了 or 千日手, if any.
	Terminal string
	Winner   Color
}

var moveLineRe = regexp.MustCompile(`^\s*(\d+)\s+(.+?)\s+\(`)
var terminalLineRe = regexp.MustCompile(`^\s*(\d+)\s+(\S+)\s*$`)
var fromSquareRe = regexp.MustCompile(`\((\d)(\d)\)`)

const kifTimeField = "( 0:00/00:00:00)"

var fullWidthDigits = []string{"０", "１", "２", "３", "４", "５", "６", "７", "８", "９"}

var rankKanji = []string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

var kifMoveNames = map[PieceType]string{
	Pawn:      "歩",
	Lance:     "香",
	Knight:    "桂",
	Silver:    "銀",
	Gold:      "金",
	Bishop:    "角",
	Rook:      "飛",
	King:      "玉",
	ProPawn:   "と",
	ProLance:  "成香",
	ProKnight: "成桂",
	ProSilver: "成銀",
	Horse:     "馬",
	Dragon:    "龍",
}

// kifBoardNames are the one-character names used in board diagrams.
var kifBoardNames = map[PieceType]string{
	Pawn:      "歩",
	Lance:     "香",
	Knight:    "桂",
	Silver:    "銀",
	Gold:      "金",
	Bishop:    "角",
	Rook:      "飛",
	King:      "玉",
	ProPawn:   "と",
	ProLance:  "杏",
	ProKnight: "圭",
	ProSilver: "全",
	Horse:     "馬",
	Dragon:    "龍",
}

type pieceDef struct {
	name string
	kind PieceType
}

// pieceDefs is ordered so that two-character names match first.
var pieceDefs = []pieceDef{
	{name: "成銀", kind: ProSilver},
	{name: "成桂", kind: ProKnight},
	{name: "成香", kind: ProLance},
	{name: "と", kind: ProPawn},
	{name: "杏", kind: ProLance},
	{name: "圭", kind: ProKnight},
	{name: "全", kind: ProSilver},
	{name: "馬", kind: Horse},
	{name: "龍", kind: Dragon},
	{name: "竜", kind: Dragon},
	{name: "王", kind: King},
	{name: "玉", kind: King},
	{name: "飛", kind: Rook},
	{name: "角", kind: Bishop},
	{name: "金", kind: Gold},
	{name: "銀", kind: Silver},
	{name: "桂", kind: Knight},
	{name: "香", kind: Lance},
	{name: "歩", kind: Pawn},
}

// ExportGameRecord renders g as a KIF record without player metadata.
func ExportGameRecord(g *Game) string {
	return ExportKIF(g, KIFHeader{})
}

// ExportKIF renders the game history and result as a KIF record. The
// output is meant for people and viewers; ParseKIF reads it back.
func ExportKIF(g *Game, header KIFHeader) string {
	var b strings.Builder
	b.WriteString("# KIF形式棋譜ファイル\n")
	if !header.Start.IsZero() {
		fmt.Fprintf(&b, "開始日時：%s\n", header.Start.Format("2006/01/02 15:04:05"))
	}
	start, startPly, err := ParseSFEN(g.startSFEN)
	if err != nil {
		start, startPly = StandardPosition(), 1
	}
	if start.Key() == standardKey() {
		b.WriteString("手合割：平手\n")
	} else {
		writeBoardDiagram(&b, &start)
	}
	fmt.Fprintf(&b, "先手：%s\n", header.Sente)
	fmt.Fprintf(&b, "後手：%s\n", header.Gote)
	b.WriteString("手数----指手---------消費時間--\n")

	var prevTo *Square
	ply := startPly - 1
	for _, entry := range g.history {
		ply++
		fmt.Fprintf(&b, "%4d %s   %s\n", ply, kifMoveText(entry, prevTo), kifTimeField)
		to := entry.Move.To()
		prevTo = &to
	}
	if g.over {
		ply++
		fmt.Fprintf(&b, "%4d %s\n", ply, terminalMarker(g.reason))
		fmt.Fprintf(&b, "まで%d手で%s\n", ply-1, resultText(g))
	}
	return b.String()
}

func standardKey() PositionKey {
	pos := StandardPosition()
	return pos.Key()
}

func terminalMarker(reason TerminationReason) string {
	switch reason {
	case Checkmate, Stalemate:
		return "詰み"
	case Sennichite:
		return "千日手"
	case MaxMoves:
		return "持将棋"
	case Resignation:
		return "投了"
	default:
		return "中断"
	}
}

func resultText(g *Game) string {
	switch g.winner {
	case Black:
		return "先手の勝ち"
	case White:
		return "後手の勝ち"
	}
	switch g.reason {
	case Sennichite:
		return "千日手"
	case MaxMoves:
		return "持将棋"
	default:
		return "中断"
	}
}

func kifSquare(s Square) string {
	return fullWidthDigits[s.File()] + rankKanji[s.Rank()]
}

func kifMoveText(entry HistoryEntry, prevTo *Square) string {
	to := entry.Move.To()
	dest := kifSquare(to)
	if prevTo != nil && *prevTo == to {
		dest = "同　"
	}
	name := kifMoveNames[entry.Piece.Type]
	switch m := entry.Move.(type) {
	case DropMove:
		return dest + name + "打"
	case BoardMove:
		suffix := ""
		if m.Promote {
			suffix = "成"
		} else if CanPromoteSpecificPiece(entry.Piece, m.FromRow, m.ToRow) {
			suffix = "不成"
		}
		from := m.From()
		return fmt.Sprintf("%s%s%s(%d%d)", dest, name, suffix, from.File(), from.Rank())
	default:
		return dest
	}
}

func writeBoardDiagram(b *strings.Builder, pos *Position) {
	fmt.Fprintf(b, "後手の持駒：%s\n", kifHandText(pos.hands[White]))
	b.WriteString("  ９ ８ ７ ６ ５ ４ ３ ２ １\n")
	b.WriteString("+---------------------------+\n")
	for row := 0; row < 9; row++ {
		b.WriteString("|")
		for col := 0; col < 9; col++ {
			piece := pos.board[row][col]
			switch {
			case piece.Empty():
				b.WriteString(" ・")
			case piece.Color == White:
				b.WriteString("v" + kifBoardNames[piece.Type])
			default:
				b.WriteString(" " + kifBoardNames[piece.Type])
			}
		}
		fmt.Fprintf(b, "|%s\n", rankKanji[row+1])
	}
	b.WriteString("+---------------------------+\n")
	fmt.Fprintf(b, "先手の持駒：%s\n", kifHandText(pos.hands[Black]))
	if pos.turn == White {
		b.WriteString("手番：後手\n")
	}
}

func kifHandText(h Hand) string {
	parts := make([]string, 0, len(DroppableTypes))
	for _, kind := range DroppableTypes {
		n := h[kind]
		if n == 0 {
			continue
		}
		parts = append(parts, kifBoardNames[kind]+kanjiCount(n))
	}
	if len(parts) == 0 {
		return "なし"
	}
	return strings.Join(parts, "　")
}

func kanjiCount(n int) string {
	switch {
	case n <= 1:
		return ""
	case n < 10:
		return rankKanji[n]
	case n == 10:
		return "十"
	case n < 20:
		return "十" + rankKanji[n-10]
	default:
		return fmt.Sprintf("%d", n)
	}
}

// EncodeShiftJIS converts a KIF text to Shift-JIS for legacy viewers.
func EncodeShiftJIS(text string) ([]byte, error) {
	reader := transform.NewReader(strings.NewReader(text), japanese.ShiftJIS.NewEncoder())
	return io.ReadAll(reader)
}

// DecodeKIF returns data as UTF-8 text, converting from Shift-JIS when the
// input is not valid UTF-8.
func DecodeKIF(data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	reader := transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(decoded) {
		return "", errors.New("failed to decode Shift-JIS KIF")
	}
	return string(decoded), nil
}

// LoadKIF reads and parses a KIF file in UTF-8 or Shift-JIS.
func LoadKIF(path string) (*KIFRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := DecodeKIF(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	record, err := ParseKIF(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return record, nil
}

// ParseKIF parses KIF text into a start position and USI-level moves.
// Move legality is checked only by Replay.
func ParseKIF(text string) (*KIFRecord, error) {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	startSFEN, err := initialSFENFromKIF(lines)
	if err != nil {
		return nil, err
	}
	moves, err := parseKIFMoves(lines)
	if err != nil {
		return nil, err
	}
	record := &KIFRecord{
		Header: KIFHeader{
			Sente: headerValue(lines, "先手"),
			Gote:  headerValue(lines, "後手"),
		},
		StartSFEN: startSFEN,
		Moves:     moves,
		Winner:    NoColor,
	}
	if raw := headerValue(lines, "開始日時"); raw != "" {
		if t, err := time.ParseInLocation("2006/01/02 15:04:05", raw, time.Local); err == nil {
			record.Header.Start = t
		}
	}
	terminal, ply := findTerminalMove(lines)
	record.Terminal = terminal
	if terminal != "" {
		winner := winnerFromTerminal(terminal, ply)
		if strings.Fields(startSFEN)[1] == "w" {
			winner = winner.Opponent()
		}
		record.Winner = winner
	}
	return record, nil
}

// Replay plays the record's moves on a new game, checking legality.
func (r *KIFRecord) Replay() (*Game, error) {
	g, err := NewGameFromSFEN(r.StartSFEN)
	if err != nil {
		return nil, err
	}
	for i, m := range r.Moves {
		if _, err := g.ApplyMove(m); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return g, nil
}

func parseKIFMoves(lines []string) ([]Move, error) {
	var moves []Move
	var prevDest *Square
	for i, line := range lines {
		match := moveLineRe.FindStringSubmatch(line)
		if len(match) == 0 {
			continue
		}
		moveText := strings.TrimSpace(match[2])
		if moveText == "" {
			continue
		}
		if isTerminalMove(moveText) {
			break
		}
		move, err := parseKIFMoveToken(moveText, prevDest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		moves = append(moves, move)
		dest := move.To()
		prevDest = &dest
	}
	return moves, nil
}

func parseKIFMoveToken(token string, prevDest *Square) (Move, error) {
	work := strings.TrimSpace(token)
	var dest Square
	if strings.HasPrefix(work, "同") {
		if prevDest == nil {
			return nil, parseErr(token, "同", "same-square move without previous destination")
		}
		dest = *prevDest
		work = strings.TrimLeft(strings.TrimPrefix(work, "同"), " 　")
	} else {
		runes := []rune(work)
		if len(runes) < 2 {
			return nil, parseErr(token, work, "invalid move token")
		}
		file, ok := parseFileRune(runes[0])
		if !ok {
			return nil, parseErr(token, string(runes[0]), "invalid destination file")
		}
		rank, ok := parseRankRune(runes[1])
		if !ok {
			return nil, parseErr(token, string(runes[1]), "invalid destination rank")
		}
		dest = Square{Row: rank - 1, Col: 9 - file}
		work = string(runes[2:])
	}

	var from *Square
	if match := fromSquareRe.FindStringSubmatch(work); len(match) == 3 {
		file := int(match[1][0] - '0')
		rank := int(match[2][0] - '0')
		if file < 1 || file > 9 || rank < 1 || rank > 9 {
			return nil, parseErr(token, match[0], "invalid source square")
		}
		from = &Square{Row: rank - 1, Col: 9 - file}
		work = fromSquareRe.ReplaceAllString(work, "")
	}

	kind, rest, ok := parsePieceName(strings.TrimSpace(work))
	if !ok {
		return nil, parseErr(token, work, "unknown piece")
	}
	rest = strings.TrimSpace(rest)
	switch rest {
	case "打":
		if !kind.Droppable() {
			return nil, parseErr(token, work, "cannot drop this piece")
		}
		return DropMove{ToRow: dest.Row, ToCol: dest.Col, Piece: kind}, nil
	case "", "成", "不成":
	default:
		return nil, parseErr(token, rest, "unknown move suffix")
	}
	if from == nil {
		if kind.Droppable() && rest == "" {
			// Some writers omit 打 when no piece could have moved there.
			return DropMove{ToRow: dest.Row, ToCol: dest.Col, Piece: kind}, nil
		}
		return nil, parseErr(token, token, "missing source square")
	}
	return BoardMove{
		FromRow: from.Row,
		FromCol: from.Col,
		ToRow:   dest.Row,
		ToCol:   dest.Col,
		Promote: rest == "成",
	}, nil
}

func parsePieceName(text string) (PieceType, string, bool) {
	for _, def := range pieceDefs {
		if strings.HasPrefix(text, def.name) {
			return def.kind, strings.TrimPrefix(text, def.name), true
		}
	}
	return NoPieceType, "", false
}

func isTerminalMove(token string) bool {
	switch token {
	case "投了", "中断", "持将棋", "千日手", "詰み", "切れ負け", "反則勝ち", "反則負け", "入玉勝ち", "勝ち宣言":
		return true
	default:
		return false
	}
}

func findTerminalMove(lines []string) (string, int) {
	for _, line := range lines {
		match := moveLineRe.FindStringSubmatch(line)
		if len(match) == 0 {
			// Terminal markers carry no clock field.
			match = terminalLineRe.FindStringSubmatch(line)
		}
		if len(match) == 0 {
			continue
		}
		moveText := strings.TrimSpace(match[2])
		if isTerminalMove(moveText) {
			var ply int
			fmt.Sscanf(match[1], "%d", &ply)
			return moveText, ply
		}
	}
	return "", 0
}

// winnerFromTerminal maps the closing marker on ply to the winning side,
// assuming sente made the first move.
func winnerFromTerminal(token string, ply int) Color {
	toMove := Black
	if ply%2 == 0 {
		toMove = White
	}
	switch token {
	case "詰み", "投了", "切れ負け", "反則負け":
		return toMove.Opponent()
	case "反則勝ち", "入玉勝ち", "勝ち宣言":
		return toMove
	default:
		return NoColor
	}
}

func headerValue(lines []string, key string) string {
	prefixes := []string{key + "：", key + ":"}
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		for _, prefix := range prefixes {
			if strings.HasPrefix(trim, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(trim, prefix))
			}
		}
	}
	return ""
}

func parseFileRune(r rune) (int, bool) {
	if r >= '1' && r <= '9' {
		return int(r - '0'), true
	}
	if r >= '１' && r <= '９' {
		return int(r-'１') + 1, true
	}
	return 0, false
}

func parseRankRune(r rune) (int, bool) {
	for i := 1; i < len(rankKanji); i++ {
		if string(r) == rankKanji[i] {
			return i, true
		}
	}
	return 0, false
}

func initialSFENFromKIF(lines []string) (string, error) {
	boardLines := collectBoardLines(lines)
	if len(boardLines) == 0 {
		handicap := headerValue(lines, "手合割")
		if handicap == "" || strings.Contains(handicap, "平手") {
			return StandardSFEN, nil
		}
		return "", parseErr(handicap, handicap, "unsupported handicap without board diagram")
	}
	if len(boardLines) != 9 {
		return "", parseErr(strings.Join(boardLines, "\n"), "", fmt.Sprintf("board diagram must have 9 rows, got %d", len(boardLines)))
	}
	pos := NewPosition()
	for row, line := range boardLines {
		if err := parseBoardRow(line, row, &pos); err != nil {
			return "", err
		}
	}
	for _, side := range []struct {
		key   string
		color Color
	}{{"先手の持駒", Black}, {"後手の持駒", White}} {
		raw := headerValue(lines, side.key)
		if err := parseHandLine(raw, side.color, &pos); err != nil {
			return "", err
		}
	}
	if strings.Contains(headerValue(lines, "手番"), "後手") {
		pos.turn = White
	}
	return pos.SFEN(1), nil
}

func collectBoardLines(lines []string) []string {
	var board []string
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if strings.HasPrefix(trim, "|") && strings.Count(trim, "|") >= 2 {
			board = append(board, trim)
		}
	}
	return board
}

func parseBoardRow(line string, row int, pos *Position) error {
	trim := strings.TrimPrefix(line, "|")
	if end := strings.LastIndex(trim, "|"); end >= 0 {
		trim = trim[:end]
	}
	runes := []rune(trim)
	col := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' || r == '\t' || r == '　' {
			continue
		}
		if col > 8 {
			return parseErr(line, string(r), "too many cells in row")
		}
		if r == '・' {
			col++
			continue
		}
		color := Black
		if r == 'v' {
			color = White
			i++
			if i >= len(runes) {
				return parseErr(line, "v", "dangling gote marker")
			}
		}
		kind, rest, ok := parsePieceName(string(runes[i:]))
		if !ok {
			return parseErr(line, string(runes[i]), "unknown piece")
		}
		i += len(runes[i:]) - len([]rune(rest)) - 1
		pos.board[row][col] = Piece{Type: kind, Color: color}
		col++
	}
	if col != 9 {
		return parseErr(line, "", fmt.Sprintf("expected 9 cells, got %d", col))
	}
	return nil
}

func parseHandLine(text string, color Color, pos *Position) error {
	text = strings.TrimSpace(text)
	if text == "" || text == "なし" {
		return nil
	}
	for _, token := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == '　' }) {
		runes := []rune(token)
		kind, rest, ok := parsePieceName(string(runes[0]))
		if !ok || rest != "" || !kind.Droppable() {
			return parseErr(text, token, "unknown hand piece")
		}
		count, ok := parseKanjiCount(runes[1:])
		if !ok {
			return parseErr(text, token, "invalid hand count")
		}
		pos.hands[color][kind] += count
	}
	return nil
}

func parseKanjiCount(runes []rune) (int, bool) {
	if len(runes) == 0 {
		return 1, true
	}
	value := 0
	for i, r := range runes {
		if r == '十' {
			if i != 0 {
				return 0, false
			}
			value = 10
			continue
		}
		n, ok := parseRankRune(r)
		if !ok {
			if r >= '0' && r <= '9' {
				value = value*10 + int(r-'0')
				continue
			}
			return 0, false
		}
		if value >= 10 {
			value += n
		} else {
			value = value*10 + n
		}
	}
	return value, value > 0
}

// CollectKIF returns every .kif file below root in lexical order.
func CollectKIF(root string) ([]string, error) {
	var files []string
	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".kif") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
