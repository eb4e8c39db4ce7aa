package pkg

import (
	"errors"
	"fmt"
	gio "io"
	"math"
	"os"
	"sort"

	ptable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/rs/zerolog/log"

	"ckml/pkg/features"
	"ckml/pkg/io"
	"ckml/pkg/model"
	"ckml/pkg/table"
)

type ValidateParameters struct {
	ModelName string
	ModelFile string

	FeaturesTable table.Table
	FeatureKeys   []string

	// CharacteristicsTable is optional. When set, predictions are scored
	// against its first column.
	CharacteristicsTable table.Table

	// Report receives the metrics table; nil disables rendering
	Report gio.Writer
}

type ValidateResult struct {
	// PredictionTable has one single-cell row per input row
	PredictionTable table.Table
	Metrics         *Metrics
}

type Metrics struct {
	Classes  map[string]*stats.ClassMetrics
	MacroF1  float64
	MicroF1  float64
	Accuracy float64
}

// Validate runs a built model on a feature table.
func Validate(p ValidateParameters) (*ValidateResult, error) {
	if p.ModelName != model.DecisionTreeClassifier {
		return nil, fmt.Errorf("model name %s is not found", p.ModelName)
	}
	m, err := loadModelFile(p.ModelFile)
	if err != nil {
		return nil, err
	}
	if m.Name != p.ModelName {
		return nil, fmt.Errorf("model file %s holds a %s model, not %s", p.ModelFile, m.Name, p.ModelName)
	}
	if m.Tree == nil || m.MetaData == nil {
		return nil, fmt.Errorf("model file %s is incomplete", p.ModelFile)
	}

	encoding, err := features.EncodeWith(p.FeaturesTable, m.MetaData.Conversion)
	if err != nil {
		return nil, fmt.Errorf("error encoding features: %w", err)
	}

	result := &ValidateResult{PredictionTable: table.Table{}}
	if X := encoding.Dense(); X != nil {
		predictions, err := m.Tree.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("error predicting: %w", err)
		}
		for _, class := range predictions {
			result.PredictionTable = append(result.PredictionTable, table.Row{m.MetaData.Classes.Cell(class)})
		}
	} else if len(p.FeaturesTable) > 0 {
		return nil, fmt.Errorf("features table has no columns")
	}
	log.Info().Int("rows", len(result.PredictionTable)).Msg("Predictions done")

	if p.CharacteristicsTable != nil {
		metrics, err := score(result.PredictionTable, p.CharacteristicsTable)
		if err != nil {
			return nil, err
		}
		metrics.log()
		if p.Report != nil {
			metrics.Render(p.Report)
		}
		result.Metrics = metrics
	}
	return result, nil
}

// loadModelFile reads <name>.model.obj, falling back to name itself.
func loadModelFile(name string) (*model.Model, error) {
	fileName := sideFilesFor(name).object
	modelFile, err := os.Open(fileName)
	if errors.Is(err, os.ErrNotExist) {
		fileName = name
		modelFile, err = os.Open(fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening model file %s: %w", fileName, err)
	}
	defer modelFile.Close()

	m, err := io.LoadModel(modelFile)
	if err != nil {
		return nil, fmt.Errorf("error loading model from file %s: %w", fileName, err)
	}
	return m, nil
}

func score(predictions, characteristics table.Table) (*Metrics, error) {
	if len(predictions) != len(characteristics) {
		return nil, fmt.Errorf("length of prediction table (%d) is not the same as length of characteristics table (%d)",
			len(predictions), len(characteristics))
	}
	metrics := &Metrics{Classes: map[string]*stats.ClassMetrics{}}
	counter := func(class string) *stats.ClassMetrics {
		c, ok := metrics.Classes[class]
		if !ok {
			c = stats.NewMetricCounter()
			metrics.Classes[class] = c
		}
		return c
	}

	correct := 0
	for i, row := range characteristics {
		if len(row) == 0 {
			return nil, fmt.Errorf("characteristics row %d is empty", i)
		}
		label := row[0].String()
		predicted := predictions[i][0].String()
		labelMetrics := counter(label)
		predictedMetrics := counter(predicted)
		if label == predicted {
			labelMetrics.IncTruePos()
			correct++
		} else {
			labelMetrics.IncFalseNeg()
			predictedMetrics.IncFalsePos()
		}
	}
	if len(characteristics) > 0 {
		metrics.Accuracy = float64(correct) / float64(len(characteristics))
		metrics.MacroF1, metrics.MicroF1 = computeOverallF1(metrics.Classes)
	}
	return metrics, nil
}

func (m *Metrics) log() {
	for _, class := range sortClasses(m.Classes) {
		result := m.Classes[class]
		log.Info().Str("Class", class).
			Int("TP", result.TruePos).
			Int("FP", result.FalsePos).
			Int("FN", result.FalseNeg).
			Float64("Precision", result.Precision()).
			Float64("Recall", result.Recall()).
			Float64("F1", result.F1Score()).
			Msg("")
	}
	log.Info().Float64("MacroF1", m.MacroF1).Float64("MicroF1", m.MicroF1).Float64("Accuracy", m.Accuracy).Msg("")
}

// Render writes the per-class metrics and the overall scores as a console table.
func (m *Metrics) Render(w gio.Writer) {
	t := ptable.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Validation")
	t.AppendHeader(ptable.Row{"CLASS", "TP", "FP", "FN", "PRECISION", "RECALL", "F1"})
	for _, class := range sortClasses(m.Classes) {
		c := m.Classes[class]
		t.AppendRow(ptable.Row{class, c.TruePos, c.FalsePos, c.FalseNeg,
			fmt.Sprintf("%.3f", c.Precision()), fmt.Sprintf("%.3f", c.Recall()), fmt.Sprintf("%.3f", c.F1Score())})
	}
	t.AppendFooter(ptable.Row{"", "", "", "", "MACRO F1", "MICRO F1", "ACCURACY"})
	t.AppendFooter(ptable.Row{"", "", "", "", fmt.Sprintf("%.3f", m.MacroF1), fmt.Sprintf("%.3f", m.MicroF1), fmt.Sprintf("%.3f", m.Accuracy)})
	t.Render()
}

// computeOverallF1 returns the macro and micro averaged F1 scores. A class
// that is never predicted has an undefined F1 and counts as 0.
func computeOverallF1(metrics map[string]*stats.ClassMetrics) (float64, float64) {
	macroF1 := 0.0
	for _, metric := range metrics {
		if f1 := metric.F1Score(); !math.IsNaN(f1) {
			macroF1 += f1
		}
	}
	macroF1 /= float64(len(metrics))

	micro := stats.NewMetricCounter()
	for _, result := range metrics {
		micro.TruePos += result.TruePos
		micro.FalsePos += result.FalsePos
		micro.FalseNeg += result.FalseNeg
		micro.TrueNeg += result.TrueNeg
	}
	return macroF1, micro.F1Score()
}

func sortClasses(metrics map[string]*stats.ClassMetrics) []string {
	result := make([]string, 0, len(metrics))
	for class := range metrics {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}
