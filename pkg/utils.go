package pkg

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"ckml/pkg/io"
	"ckml/pkg/table"
)

func printDataErrors(errors []io.DataError) {
	for _, err := range errors {
		log.Error().Msgf("Error parsing data at line %d: %s", err.Line, err.Error)
	}
}

// LoadTable reads a table file and logs its per-line parse errors. Non-empty
// keys replace the keys found in the file.
func LoadTable(fileName string, keys []string) (table.Table, []string, error) {
	t, header, dataErrors, err := io.LoadTable(fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading data from %s: %w", fileName, err)
	}
	printDataErrors(dataErrors)
	if len(keys) > 0 {
		header = keys
	}
	return t, header, nil
}

// removeIfExists deletes each file that is present.
func removeIfExists(fileNames ...string) error {
	for _, fileName := range fileNames {
		err := os.Remove(fileName)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error removing %s: %w", fileName, err)
		}
	}
	return nil
}

// tempModelFile reserves a fresh ck-*.tmp path and leaves no file behind.
func tempModelFile() (string, error) {
	f, err := os.CreateTemp("", "ck-*.tmp")
	if err != nil {
		return "", fmt.Errorf("error creating temporary model file: %w", err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return "", fmt.Errorf("error preparing temporary model file: %w", err)
	}
	return name, nil
}
