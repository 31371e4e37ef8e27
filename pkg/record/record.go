// Package record stores finished games as rows of a parquet dataset.
package record

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"shogi/pkg/shogi"
)

const (
	ResultSenteWin = "sente_win"
	ResultGoteWin  = "gote_win"
	ResultDraw     = "draw"
	ResultAbort    = "abort"
)

// MoveEval is an engine score taken before the move at Ply, from sente's
// point of view.
type MoveEval struct {
	Ply        int32  `parquet:"name=ply, type=INT32"`
	ScoreType  string `parquet:"name=score_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	ScoreValue int32  `parquet:"name=score_value, type=INT32"`
}

type GameRecord struct {
	GameID    string `parquet:"name=game_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Seed      int64  `parquet:"name=seed, type=INT64"`
	SenteName string `parquet:"name=sente_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	GoteName  string `parquet:"name=gote_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartSFEN string `parquet:"name=start_sfen, type=BYTE_ARRAY, convertedtype=UTF8"`
	FinalSFEN string `parquet:"name=final_sfen, type=BYTE_ARRAY, convertedtype=UTF8"`
	Result    string `parquet:"name=result, type=BYTE_ARRAY, convertedtype=UTF8"`
	Reason    string `parquet:"name=reason, type=BYTE_ARRAY, convertedtype=UTF8"`
	MoveCount int32  `parquet:"name=move_count, type=INT32"`
	// Moves are USI strings in play order.
	Moves []string `parquet:"name=moves, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	// Positions holds the 32-byte packed start position followed by the
	// position after every move. Empty when the game did not start with
	// full material.
	Positions []string `parquet:"name=positions, type=LIST, valuetype=BYTE_ARRAY"`
	// MoveEvals has one entry per engine move that reported a score.
	MoveEvals []MoveEval `parquet:"name=move_evals, type=LIST"`
}

type ParquetSchema struct {
	Name   string         `json:"name"`
	Fields []ParquetField `json:"fields"`
}

type ParquetField struct {
	Name     string      `json:"name"`
	Type     interface{} `json:"type"`
	Nullable bool        `json:"nullable"`
}

//go:embed schema.json
var schemaJSON []byte

// ResultOf maps a finished game to a result string.
func ResultOf(g *shogi.Game) string {
	if !g.IsOver() {
		return ResultAbort
	}
	switch g.Winner() {
	case shogi.Black:
		return ResultSenteWin
	case shogi.White:
		return ResultGoteWin
	default:
		return ResultDraw
	}
}

// Side names for WinnerSide and FirstCrossing.
const (
	SideSente = "sente"
	SideGote  = "gote"
	SideNone  = "none"
)

// WinnerSide maps a result string to SideSente, SideGote or SideNone.
func WinnerSide(result string) string {
	switch result {
	case ResultSenteWin:
		return SideSente
	case ResultGoteWin:
		return SideGote
	default:
		return SideNone
	}
}

// FirstCrossing returns the side whose advantage first reaches threshold
// centipawns. Any mate score counts as a crossing.
func FirstCrossing(evals []MoveEval, threshold int) string {
	for _, eval := range evals {
		if eval.ScoreType == "mate" {
			if eval.ScoreValue >= 0 {
				return SideSente
			}
			return SideGote
		}
		if eval.ScoreValue >= int32(threshold) {
			return SideSente
		}
		if eval.ScoreValue <= -int32(threshold) {
			return SideGote
		}
	}
	return SideNone
}

// FromGame builds the record of g.
func FromGame(id string, seed int64, g *shogi.Game) (GameRecord, error) {
	moves := g.Moves()
	rec := GameRecord{
		GameID:    id,
		Seed:      seed,
		StartSFEN: g.StartSFEN(),
		FinalSFEN: g.SFEN(),
		Result:    ResultOf(g),
		Reason:    string(g.Reason()),
		MoveCount: int32(len(moves)),
		Moves:     make([]string, len(moves)),
	}
	for i, m := range moves {
		rec.Moves[i] = shogi.FormatMove(m)
	}

	replay, err := shogi.NewGameFromSFEN(rec.StartSFEN)
	if err != nil {
		return GameRecord{}, err
	}
	pos := replay.Position()
	packed, err := pos.Pack256()
	if err != nil {
		// Handicap or composed positions are stored without packing.
		return rec, nil
	}
	rec.Positions = append(rec.Positions, string(packed.Bytes()))
	for i, m := range moves {
		if _, err := replay.ApplyMove(m); err != nil {
			return GameRecord{}, fmt.Errorf("replay move %d: %w", i+1, err)
		}
		pos := replay.Position()
		packed, err := pos.Pack256()
		if err != nil {
			return GameRecord{}, fmt.Errorf("pack position after move %d: %w", i+1, err)
		}
		rec.Positions = append(rec.Positions, string(packed.Bytes()))
	}
	return rec, nil
}

// Replay rebuilds the game by playing the recorded moves from StartSFEN.
func (r GameRecord) Replay() (*shogi.Game, error) {
	g, err := shogi.NewGameFromSFEN(r.StartSFEN)
	if err != nil {
		return nil, err
	}
	for i, text := range r.Moves {
		m, err := shogi.ParseMove(text)
		if err != nil {
			return nil, fmt.Errorf("%s move %d: %w", r.GameID, i+1, err)
		}
		if _, err := g.ApplyMove(m); err != nil {
			return nil, fmt.Errorf("%s move %d: %w", r.GameID, i+1, err)
		}
	}
	return g, nil
}

// Position decodes the packed position at index i of Positions.
func (r GameRecord) Position(i int) (shogi.Position, error) {
	if i < 0 || i >= len(r.Positions) {
		return shogi.Position{}, fmt.Errorf("position %d of %d: %w", i, len(r.Positions), shogi.ErrInvalidArgument)
	}
	packed, err := shogi.Packed256FromBytes([]byte(r.Positions[i]))
	if err != nil {
		return shogi.Position{}, err
	}
	return shogi.UnpackPosition256(packed)
}

// WriteParquet drains records into a SNAPPY-compressed parquet file.
func WriteParquet(path string, records <-chan GameRecord, parallel int64) error {
	schema, err := loadParquetSchema()
	if err != nil {
		return err
	}
	if err := validateSchema(schema, GameRecord{}); err != nil {
		return err
	}

	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer fileWriter.Close()

	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(GameRecord), parallel)
	if err != nil {
		return err
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	for record := range records {
		if err := parquetWriter.Write(record); err != nil {
			return err
		}
	}
	if err := parquetWriter.WriteStop(); err != nil {
		return err
	}
	return fileWriter.Close()
}

// ReadParquet loads every record of a file written by WriteParquet.
func ReadParquet(path string, parallel int64) ([]GameRecord, error) {
	absPath := path
	if !filepath.IsAbs(path) {
		if resolved, err := filepath.Abs(path); err == nil {
			absPath = resolved
		}
	}
	fileReader, err := local.NewLocalFileReader(absPath)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(GameRecord), parallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	num := int(parquetReader.GetNumRows())
	records := make([]GameRecord, 0, num)
	batchSize := 1024
	for offset := 0; offset < num; offset += batchSize {
		remain := num - offset
		if remain < batchSize {
			batchSize = remain
		}
		batch := make([]GameRecord, batchSize)
		if err := parquetReader.Read(&batch); err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}

func loadParquetSchema() (ParquetSchema, error) {
	var schema ParquetSchema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return ParquetSchema{}, fmt.Errorf("parquet schema: %w", err)
	}
	return schema, nil
}

func validateSchema(schema ParquetSchema, sample any) error {
	schemaFields := make(map[string]struct{}, len(schema.Fields))
	for _, field := range schema.Fields {
		schemaFields[field.Name] = struct{}{}
	}
	structFields := structParquetFieldNames(sample)
	missing := diffKeys(schemaFields, structFields)
	extra := diffKeys(structFields, schemaFields)
	if len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("parquet schema mismatch: missing=%v extra=%v", missing, extra)
	}
	return nil
}

func structParquetFieldNames(sample any) map[string]struct{} {
	fields := map[string]struct{}{}
	v := reflect.TypeOf(sample)
	for i := 0; i < v.NumField(); i++ {
		name := parseParquetName(v.Field(i).Tag.Get("parquet"))
		if name != "" {
			fields[name] = struct{}{}
		}
	}
	return fields
}

func parseParquetName(tag string) string {
	for _, part := range strings.Split(tag, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == "name" {
			return kv[1]
		}
	}
	return ""
}

func diffKeys(a, b map[string]struct{}) []string {
	var diff []string
	for key := range a {
		if _, ok := b[key]; !ok {
			diff = append(diff, key)
		}
	}
	return diff
}
