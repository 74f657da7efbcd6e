package metrics

import (
	"fmt"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetFile = "games.parquet"

type ParquetMove struct {
	Ply         int32  `parquet:"name=ply, type=INT32"`
	Side        int32  `parquet:"name=side, type=INT32"`
	Source      string `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Simulations int32  `parquet:"name=simulations, type=INT32"`
	TreeSize    int32  `parquet:"name=tree_size, type=INT32"`
	DurationMs  int64  `parquet:"name=duration_ms, type=INT64"`
}

// ParquetGame is one row of games.parquet: a game with its moves nested.
type ParquetGame struct {
	GameID     int32         `parquet:"name=game_id, type=INT32"`
	Agent1     int32         `parquet:"name=agent1, type=INT32"`
	Agent2     int32         `parquet:"name=agent2, type=INT32"`
	Winner     int32         `parquet:"name=winner, type=INT32"`
	TotalMoves int32         `parquet:"name=total_moves, type=INT32"`
	DurationMs int64         `parquet:"name=duration_ms, type=INT64"`
	Moves      []ParquetMove `parquet:"name=moves, type=LIST"`
}

func toParquet(games []GameRecord, moves []MoveRecord) []ParquetGame {
	byGame := make(map[int][]ParquetMove, len(games))
	for _, m := range moves {
		byGame[m.Game] = append(byGame[m.Game], ParquetMove{
			Ply:         int32(m.Ply),
			Side:        int32(m.Side),
			Source:      m.Source,
			Simulations: int32(m.Simulations),
			TreeSize:    int32(m.TreeSize),
			DurationMs:  m.Duration.Milliseconds(),
		})
	}
	rows := make([]ParquetGame, 0, len(games))
	for _, g := range games {
		rows = append(rows, ParquetGame{
			GameID:     int32(g.ID),
			Agent1:     int32(g.Agent1),
			Agent2:     int32(g.Agent2),
			Winner:     int32(g.Winner),
			TotalMoves: int32(g.TotalMoves),
			DurationMs: g.Duration.Milliseconds(),
			Moves:      byGame[g.ID],
		})
	}
	return rows
}

// WriteParquet stores the games with their moves in games.parquet.
func (w *Writer) WriteParquet(games []GameRecord, moves []MoveRecord, parallel int64) error {
	path := filepath.Join(w.baseDir, parquetFile)
	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", parquetFile, err)
	}
	defer fileWriter.Close()

	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(ParquetGame), parallel)
	if err != nil {
		return err
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range toParquet(games, moves) {
		if err := parquetWriter.Write(row); err != nil {
			return err
		}
	}
	if err := parquetWriter.WriteStop(); err != nil {
		return err
	}
	return fileWriter.Close()
}

// ReadParquet loads every row of a games.parquet file.
func ReadParquet(path string, parallel int64) ([]ParquetGame, error) {
	fileReader, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(ParquetGame), parallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	num := int(parquetReader.GetNumRows())
	rows := make([]ParquetGame, 0, num)
	batchSize := 256
	for offset := 0; offset < num; offset += batchSize {
		batchSize = min(batchSize, num-offset)
		batch := make([]ParquetGame, batchSize)
		if err := parquetReader.Read(&batch); err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}
