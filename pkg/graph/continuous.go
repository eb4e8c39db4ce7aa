package graph

import (
	"bufio"
	"io"

	"github.com/rs/zerolog/log"
)

const maxContinuousRounds = 1000

// ContinuousPlot re-reads the graphs from source and re-renders them after
// every line read from in, until in is exhausted or the round limit is hit.
func ContinuousPlot(in io.Reader, source func() (Graphs, error), o Options) error {
	scanner := bufio.NewScanner(in)
	for round := 0; round < maxContinuousRounds; round++ {
		graphs, err := source()
		if err != nil {
			return err
		}
		if err := Plot(graphs, o); err != nil {
			return err
		}
		log.Info().Int("round", round).Msg("Press enter to refresh the plot")
		if !scanner.Scan() {
			return scanner.Err()
		}
	}
	return nil
}
