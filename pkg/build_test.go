package pkg

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ckml/pkg/model"
	"ckml/pkg/table"
)

func num(v float64) table.Cell { return table.Num(v) }
func str(s string) table.Cell  { return table.Str(s) }

func compilerData() (table.Table, table.Table) {
	features := table.Table{
		{str("gcc"), num(1)},
		{str("gcc"), num(3)},
		{str("llvm"), num(1)},
		{str("llvm"), num(3)},
		{str("icc"), num(2)},
		{str("icc"), num(3)},
	}
	characteristics := table.Table{
		{str("slow")},
		{str("fast")},
		{str("slow")},
		{str("fast")},
		{str("slow")},
		{str("fast")},
	}
	return features, characteristics
}

func TestBuildAndValidate(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "compilers")
	features, characteristics := compilerData()

	result, err := Build(BuildParameters{
		ModelName:            model.DecisionTreeClassifier,
		ModelFile:            prefix,
		FeaturesTable:        features,
		FeatureKeys:          []string{"##compiler", "##level"},
		CharacteristicsTable: characteristics,
		CharacteristicKeys:   []string{"##speed"},
		KeepTempFiles:        true,
	})
	require.NoError(t, err)
	require.Equal(t, prefix+".model.obj", result.ModelFile)
	require.Equal(t, map[string]float64{"gcc": 0, "llvm": 1, "icc": 2}, result.Conversion.Conv["0"])

	keys, err := os.ReadFile(prefix + ".model.ft.txt")
	require.NoError(t, err)
	require.Equal(t, "X[1] ##compiler\nX[2] ##level\n", string(keys))
	dot, err := os.ReadFile(prefix + ".model.dot")
	require.NoError(t, err)
	require.Contains(t, string(dot), "##level")

	var report bytes.Buffer
	validated, err := Validate(ValidateParameters{
		ModelName:            model.DecisionTreeClassifier,
		ModelFile:            prefix,
		FeaturesTable:        append(features, table.Row{str("clang"), num(3)}),
		CharacteristicsTable: append(characteristics, table.Row{str("fast")}),
		Report:               &report,
	})
	require.NoError(t, err)
	require.Equal(t, 7, len(validated.PredictionTable))
	for i, row := range characteristics {
		require.Equal(t, row, validated.PredictionTable[i])
	}
	require.Equal(t, table.Row{str("fast")}, validated.PredictionTable[6])

	require.Equal(t, 1.0, validated.Metrics.Accuracy)
	require.InDelta(t, 1.0, validated.Metrics.MacroF1, 1e-9)
	require.InDelta(t, 1.0, validated.Metrics.MicroF1, 1e-9)
	require.Equal(t, 4, validated.Metrics.Classes["fast"].TruePos)
	require.Contains(t, report.String(), "MACRO F1")
}

func TestBuildTemporaryModelFile(t *testing.T) {
	features, characteristics := compilerData()
	result, err := Build(BuildParameters{
		ModelName:            model.DecisionTreeClassifier,
		FeaturesTable:        features,
		CharacteristicsTable: characteristics,
		Parameters:           model.Parameters{MaxDepth: 1},
	})
	require.NoError(t, err)
	defer os.Remove(result.ModelFile)
	defer os.Remove(result.ModelFile + ".model.dot")
	defer os.Remove(result.ModelFile + ".model.pdf")
	require.Equal(t, ".tmp", filepath.Ext(result.ModelFile))
	require.Contains(t, filepath.Base(result.ModelFile), "ck-")

	validated, err := Validate(ValidateParameters{
		ModelName:     model.DecisionTreeClassifier,
		ModelFile:     result.ModelFile,
		FeaturesTable: features,
	})
	require.NoError(t, err)
	require.Equal(t, 6, len(validated.PredictionTable))
	require.Nil(t, validated.Metrics)
}

func TestBuildErrors(t *testing.T) {
	features, characteristics := compilerData()
	prefix := filepath.Join(t.TempDir(), "m")

	tests := []struct {
		name    string
		params  BuildParameters
		message string
	}{
		{
			name:    "length mismatch",
			params:  BuildParameters{ModelName: "dtc", ModelFile: prefix, FeaturesTable: features, CharacteristicsTable: characteristics[:2]},
			message: "is not the same as length",
		},
		{
			name:    "empty",
			params:  BuildParameters{ModelName: "dtc", ModelFile: prefix},
			message: "no data to build a model",
		},
		{
			name:    "unknown model",
			params:  BuildParameters{ModelName: "svm", ModelFile: prefix, FeaturesTable: features, CharacteristicsTable: characteristics},
			message: "model name svm is not found",
		},
		{
			name: "ragged features",
			params: BuildParameters{ModelName: "dtc", ModelFile: prefix,
				FeaturesTable:        table.Table{{num(1), num(2)}, {num(1)}},
				CharacteristicsTable: table.Table{{str("a")}, {str("b")}}},
			message: "row 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.params)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestBuildRejectsMissingFeatures(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "m")
	_, err := Build(BuildParameters{
		ModelName:            model.DecisionTreeClassifier,
		ModelFile:            prefix,
		FeaturesTable:        table.Table{{table.Missing()}, {num(1)}, {table.Missing()}, {num(1)}},
		CharacteristicsTable: table.Table{{str("a")}, {str("b")}, {str("a")}, {str("b")}},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrMissingValue))
	_, err = os.Stat(prefix + ".model.obj")
	require.True(t, os.IsNotExist(err))

	features, characteristics := compilerData()
	_, err = Build(BuildParameters{ModelName: "dtc", ModelFile: prefix, FeaturesTable: features, CharacteristicsTable: characteristics})
	require.NoError(t, err)
	_, err = Validate(ValidateParameters{
		ModelName:     model.DecisionTreeClassifier,
		ModelFile:     prefix,
		FeaturesTable: table.Table{{str("gcc"), table.Missing()}},
	})
	require.True(t, errors.Is(err, model.ErrMissingValue))
}

func TestValidateUnpredictedClass(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "m")
	features := table.Table{{num(1)}, {num(1)}, {num(1)}}
	characteristics := table.Table{{str("a")}, {str("a")}, {str("b")}}
	_, err := Build(BuildParameters{ModelName: "dtc", ModelFile: prefix, FeaturesTable: features, CharacteristicsTable: characteristics})
	require.NoError(t, err)

	validated, err := Validate(ValidateParameters{
		ModelName:            model.DecisionTreeClassifier,
		ModelFile:            prefix,
		FeaturesTable:        features,
		CharacteristicsTable: characteristics,
	})
	require.NoError(t, err)
	require.Equal(t, table.Table{{str("a")}, {str("a")}, {str("a")}}, validated.PredictionTable)
	require.InDelta(t, 2.0/3.0, validated.Metrics.Accuracy, 1e-9)
	require.False(t, math.IsNaN(validated.Metrics.MacroF1))
	require.InDelta(t, 0.4, validated.Metrics.MacroF1, 1e-9)
	require.InDelta(t, 2.0/3.0, validated.Metrics.MicroF1, 1e-9)
}

func TestBuildRemovesStaleFiles(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "m")
	require.NoError(t, os.WriteFile(prefix+".model.pdf", []byte("stale"), 0644))
	features, characteristics := compilerData()
	_, err := Build(BuildParameters{ModelName: "dtc", ModelFile: prefix, FeaturesTable: features, CharacteristicsTable: characteristics})
	require.NoError(t, err)
	data, err := os.ReadFile(prefix + ".model.pdf")
	if err == nil {
		require.NotEqual(t, "stale", string(data))
	} else {
		require.True(t, os.IsNotExist(err))
	}
}

func TestValidateErrors(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "m")
	features, characteristics := compilerData()
	_, err := Build(BuildParameters{ModelName: "dtc", ModelFile: prefix, FeaturesTable: features, CharacteristicsTable: characteristics})
	require.NoError(t, err)

	_, err = Validate(ValidateParameters{ModelName: "rpart", ModelFile: prefix, FeaturesTable: features})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model name rpart is not found")

	_, err = Validate(ValidateParameters{ModelName: "dtc", ModelFile: prefix + "-missing", FeaturesTable: features})
	require.Error(t, err)

	_, err = Validate(ValidateParameters{ModelName: "dtc", ModelFile: prefix, FeaturesTable: table.Table{{num(1)}}})
	require.Error(t, err)

	_, err = Validate(ValidateParameters{ModelName: "dtc", ModelFile: prefix, FeaturesTable: features, CharacteristicsTable: characteristics[:1]})
	require.Error(t, err)

	empty, err := Validate(ValidateParameters{ModelName: "dtc", ModelFile: prefix})
	require.NoError(t, err)
	require.Empty(t, empty.PredictionTable)
}

func TestLoadModelParameters(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(fileName, []byte("max_depth: 4\n"), 0644))
	p, err := LoadModelParameters(fileName, model.Parameters{MaxLeafNodes: 3})
	require.NoError(t, err)
	require.Equal(t, model.Parameters{MaxDepth: 4, MaxLeafNodes: 3}, p)

	_, err = LoadModelParameters(filepath.Join(t.TempDir(), "none.yaml"), model.Parameters{})
	require.Error(t, err)
}
