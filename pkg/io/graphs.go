package io

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"ckml/pkg/graph"
)

const numGoRoutines = 1

// GraphPointRow is the parquet layout of one plot point.
type GraphPointRow struct {
	Graph  string    `parquet:"name=graph, type=UTF8"`
	Values []float64 `parquet:"name=values, type=DOUBLE, repetitiontype=REPEATED"`
}

// LoadGraphs reads a plot table from a .parquet file or, otherwise, from JSON
// of the form {"0": [[x, y], ...], "1": ...}.
func LoadGraphs(fileName string) (graph.Graphs, error) {
	if strings.EqualFold(filepath.Ext(fileName), ".parquet") {
		return LoadGraphsParquet(fileName)
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", fileName, err)
	}
	var g graph.Graphs
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("error decoding graphs from %s: %w", fileName, err)
	}
	return g, nil
}

func LoadGraphsParquet(fileName string) (graph.Graphs, error) {
	fr, err := local.NewLocalFileReader(fileName)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", fileName, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(GraphPointRow), numGoRoutines)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]GraphPointRow, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}

	g := graph.Graphs{}
	for _, row := range rows {
		g[row.Graph] = append(g[row.Graph], graph.Point(row.Values))
	}
	return g, nil
}

// SaveGraphsParquet writes g with one row per point, graphs in key order.
func SaveGraphsParquet(fileName string, g graph.Graphs) error {
	fw, err := local.NewLocalFileWriter(fileName)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", fileName, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(GraphPointRow), numGoRoutines)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	for _, key := range g.Keys() {
		for _, p := range g[key] {
			if err := pw.Write(GraphPointRow{Graph: key, Values: p}); err != nil {
				return fmt.Errorf("failed to write parquet file: %w", err)
			}
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("parquet WriteStop error: %w", err)
	}
	return nil
}
