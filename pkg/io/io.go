package io

import (
	"bufio"
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ckml/pkg/model"
	"ckml/pkg/table"
)

type DataError struct {
	Line  int
	Error string
}

// LoadTable reads a feature or characteristics table. Files ending in .json
// hold a list of rows; anything else is read as CSV whose first line is a
// header holding the flat keys.
func LoadTable(fileName string) (table.Table, []string, []DataError, error) {
	inputFile, err := os.Open(fileName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error opening file: %w", err)
	}
	defer inputFile.Close()

	if strings.EqualFold(filepath.Ext(fileName), ".json") {
		t, err := ReadJSONTable(inputFile)
		return t, nil, nil, err
	}
	return ReadCSVTable(inputFile)
}

func ReadJSONTable(r io.Reader) (table.Table, error) {
	var t table.Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("error decoding table: %w", err)
	}
	return t, nil
}

// ReadCSVTable reads a header line followed by data rows. Rows whose width
// differs from the header are reported as data errors and skipped.
func ReadCSVTable(r io.Reader) (table.Table, []string, []DataError, error) {
	var errors []DataError

	reader := csv.NewReader(r)
	reader.Comma = ','
	reader.FieldsPerRecord = -1

	//First line is expected to be a header
	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error reading data header: %w", err)
	}

	var result table.Table
	currentLine := 1
	for record, err := reader.Read(); err != io.EOF; record, err = reader.Read() {
		currentLine++
		if err != nil {
			var parseErr *csv.ParseError
			if !goerrors.As(err, &parseErr) {
				return nil, nil, nil, fmt.Errorf("error reading data at line %d: %w", currentLine, err)
			}
			errors = append(errors, DataError{Line: currentLine, Error: err.Error()})
			continue
		}
		if len(record) != len(header) {
			errors = append(errors, DataError{
				Line:  currentLine,
				Error: fmt.Sprintf("expected %d fields, got %d", len(header), len(record)),
			})
			continue
		}
		row := make(table.Row, len(record))
		for i, value := range record {
			row[i] = table.Parse(value)
		}
		result = append(result, row)
	}
	return result, header, errors, nil
}

// WriteCSVTable writes an optional header followed by the rows of t.
func WriteCSVTable(w io.Writer, header []string, t table.Table) error {
	writer := csv.NewWriter(w)
	if len(header) > 0 {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	for _, row := range t {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = cell.String()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveFeatureKeys writes one "X[k] key" line per feature, k starting at 1.
func SaveFeatureKeys(fileName string, keys []string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("error creating feature key file %s: %w", fileName, err)
	}
	defer file.Close()
	writer := bufio.NewWriter(file)
	for k, key := range keys {
		fmt.Fprintf(writer, "X[%d] %s\n", k+1, key)
	}
	return writer.Flush()
}

func SaveModel(model *model.Model, writer io.Writer) error {
	encoder := gob.NewEncoder(writer)
	err := encoder.Encode(model)
	if err != nil {
		return fmt.Errorf("error encoding model: %w", err)
	}
	return nil
}

func LoadModel(input io.Reader) (*model.Model, error) {
	decoder := gob.NewDecoder(input)
	model := model.Model{}
	err := decoder.Decode(&model)
	if err != nil {
		return nil, fmt.Errorf("error decoding model: %w", err)
	}
	return &model, nil

}
