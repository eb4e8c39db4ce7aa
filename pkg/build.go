package pkg

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"

	"ckml/pkg/features"
	"ckml/pkg/io"
	"ckml/pkg/model"
	"ckml/pkg/table"
)

// BuildParameters describe a model build. An empty ModelFile builds into a
// fresh temporary file.
type BuildParameters struct {
	ModelName  string
	ModelFile  string
	Parameters model.Parameters

	FeaturesTable table.Table
	FeatureKeys   []string

	CharacteristicsTable table.Table
	CharacteristicKeys   []string

	// KeepTempFiles keeps the Graphviz source once the PDF has been rendered
	KeepTempFiles bool
}

type BuildResult struct {
	ModelFile  string
	Conversion *features.Conversion
}

// sideFiles are the files written next to a model.
type sideFiles struct {
	object, dot, pdf, keys string
}

func sideFilesFor(base string) sideFiles {
	return sideFiles{
		object: base + ".model.obj",
		dot:    base + ".model.dot",
		pdf:    base + ".model.pdf",
		keys:   base + ".model.ft.txt",
	}
}

// Build encodes the features, fits the named model on the first
// characteristic and saves it with its feature keys and tree drawing.
func Build(p BuildParameters) (*BuildResult, error) {
	modelFile := p.ModelFile
	if modelFile == "" {
		var err error
		if modelFile, err = tempModelFile(); err != nil {
			return nil, err
		}
	}
	base := p.ModelFile
	if base == "" {
		base = modelFile
	} else {
		modelFile = sideFilesFor(base).object
	}
	files := sideFilesFor(base)

	if len(p.FeatureKeys) > 0 {
		if err := io.SaveFeatureKeys(files.keys, p.FeatureKeys); err != nil {
			return nil, err
		}
	}

	if len(p.FeaturesTable) != len(p.CharacteristicsTable) {
		return nil, fmt.Errorf("length of feature table (%d) is not the same as length of characteristics table (%d)",
			len(p.FeaturesTable), len(p.CharacteristicsTable))
	}
	if len(p.FeaturesTable) == 0 {
		return nil, fmt.Errorf("no data to build a model")
	}

	encoding, err := features.Encode(p.FeaturesTable)
	if err != nil {
		return nil, fmt.Errorf("error encoding features: %w", err)
	}
	if e := log.Debug(); e.Enabled() {
		var buf bytes.Buffer
		encoding.Conversion.Render(&buf, p.FeatureKeys)
		e.Msg("Feature conversion:\n" + buf.String())
	}
	X := encoding.Dense()
	if X == nil {
		return nil, fmt.Errorf("features table has no columns")
	}

	if err := removeIfExists(files.object, files.dot, files.pdf); err != nil {
		return nil, err
	}

	if p.ModelName != model.DecisionTreeClassifier {
		return nil, fmt.Errorf("model name %s is not found", p.ModelName)
	}

	metadata := model.NewMetadata()
	metadata.FeatureKeys = p.FeatureKeys
	metadata.CharacteristicKeys = p.CharacteristicKeys
	metadata.Conversion = encoding.Conversion
	if width := p.CharacteristicsTable.Width(); width > 1 {
		log.Warn().Int("characteristics", width).Msg("Only the first characteristic is modeled")
	}
	y := make([]int, len(p.CharacteristicsTable))
	for i, row := range p.CharacteristicsTable {
		if len(row) == 0 {
			return nil, fmt.Errorf("characteristics row %d is empty", i)
		}
		y[i] = metadata.Classes.Index(row[0])
	}

	tree := model.NewDecisionTree(p.Parameters)
	if err := tree.Fit(X, y); err != nil {
		return nil, fmt.Errorf("error fitting decision tree: %w", err)
	}
	log.Info().
		Int("rows", len(y)).
		Int("classes", metadata.Classes.Size()).
		Int("leaves", tree.LeafCount()).
		Int("depth", tree.Depth()).
		Ints("splits", tree.SplitCounts()).
		Msg("Decision tree built")

	if err := writeTreeDrawing(tree, p.FeatureKeys, encoding.Conversion, files, p.KeepTempFiles); err != nil {
		return nil, err
	}

	m := &model.Model{
		Name:       p.ModelName,
		Parameters: tree.Parameters,
		MetaData:   metadata,
		Tree:       tree,
	}
	outputFile, err := os.Create(modelFile)
	if err != nil {
		return nil, fmt.Errorf("error creating model file %s: %w", modelFile, err)
	}
	err = io.SaveModel(m, outputFile)
	if closeErr := outputFile.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("error saving model to %s: %w", modelFile, err)
	}

	return &BuildResult{ModelFile: modelFile, Conversion: encoding.Conversion}, nil
}

// writeTreeDrawing saves the tree as Graphviz source and renders it to PDF
// when the dot tool is available.
func writeTreeDrawing(tree *model.DecisionTree, keys []string, conv *features.Conversion, files sideFiles, keepDot bool) error {
	dotFile, err := os.Create(files.dot)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", files.dot, err)
	}
	err = tree.WriteDot(dotFile, keys, conv)
	dotFile.Close()
	if err != nil {
		return fmt.Errorf("error writing %s: %w", files.dot, err)
	}

	dot, err := exec.LookPath("dot")
	if err != nil {
		log.Debug().Msg("Graphviz dot not found, skipping PDF rendering")
		return nil
	}
	if out, err := exec.Command(dot, "-Tpdf", files.dot, "-o", files.pdf).CombinedOutput(); err != nil {
		log.Warn().Err(err).Str("output", string(out)).Msg("Rendering tree PDF failed")
		return nil
	}
	if !keepDot {
		return removeIfExists(files.dot)
	}
	return nil
}
