package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ckml/pkg"
	"ckml/pkg/features"
	"ckml/pkg/graph"
	"ckml/pkg/io"
	"ckml/pkg/model"
	"ckml/pkg/table"
)

func BuildCommand() *cobra.Command {
	var featuresFile string
	var characteristicsFile string
	var paramsFile string
	var params pkg.BuildParameters

	var cmd = &cobra.Command{
		Use:   "build -f featuresFile -c characteristicsFile [-m modelFile]",
		Short: "Builds a model predicting the first characteristic from the features and saves it",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if paramsFile != "" {
				fromFile, err := pkg.LoadModelParameters(paramsFile, params.Parameters)
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if !flags.Changed("max-depth") {
					params.Parameters.MaxDepth = fromFile.MaxDepth
				}
				if !flags.Changed("max-leaf-nodes") {
					params.Parameters.MaxLeafNodes = fromFile.MaxLeafNodes
				}
			}

			var err error
			params.FeaturesTable, params.FeatureKeys, err = pkg.LoadTable(featuresFile, params.FeatureKeys)
			if err != nil {
				return err
			}
			params.CharacteristicsTable, params.CharacteristicKeys, err = pkg.LoadTable(characteristicsFile, params.CharacteristicKeys)
			if err != nil {
				return err
			}

			result, err := pkg.Build(params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.ModelFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&featuresFile, "features", "f", "", "name of features table file (csv or json)")
	cmd.Flags().StringVarP(&characteristicsFile, "characteristics", "c", "", "name of characteristics table file (csv or json)")
	cmd.Flags().StringVarP(&params.ModelFile, "model-file", "m", "", "model file prefix (optional, uses a temporary file if not present)")
	cmd.Flags().StringVarP(&params.ModelName, "model-name", "n", model.DecisionTreeClassifier, "model name")
	cmd.Flags().StringSliceVarP(&params.FeatureKeys, "feature-keys", "", nil, "feature keys, overriding the file header")
	cmd.Flags().StringSliceVarP(&params.CharacteristicKeys, "characteristic-keys", "", nil, "characteristic keys, overriding the file header")
	cmd.Flags().StringVarP(&paramsFile, "params", "p", "", "YAML file with model parameters")
	cmd.Flags().IntVarP(&params.Parameters.MaxDepth, "max-depth", "d", 0, "maximum tree depth (0 for unlimited)")
	cmd.Flags().IntVarP(&params.Parameters.MaxLeafNodes, "max-leaf-nodes", "l", 0, "maximum number of leaves (0 for unlimited)")
	cmd.Flags().BoolVarP(&params.KeepTempFiles, "keep-temp-files", "k", false, "keep the Graphviz source after rendering the PDF")

	_ = cmd.MarkFlagRequired("features")
	_ = cmd.MarkFlagRequired("characteristics")

	return cmd
}

func ValidateCommand() *cobra.Command {
	var featuresFile string
	var characteristicsFile string
	var outputFile string
	var params pkg.ValidateParameters

	var cmd = &cobra.Command{
		Use:   "validate -m modelFile -f featuresFile [-c characteristicsFile] [-o outputFile]",
		Short: "Runs the model on the features, optionally scoring it against known characteristics",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			params.FeaturesTable, params.FeatureKeys, err = pkg.LoadTable(featuresFile, nil)
			if err != nil {
				return err
			}
			if characteristicsFile != "" {
				params.CharacteristicsTable, _, err = pkg.LoadTable(characteristicsFile, nil)
				if err != nil {
					return err
				}
			}
			params.Report = cmd.OutOrStdout()

			result, err := pkg.Validate(params)
			if err != nil {
				return err
			}
			if outputFile == "" {
				return nil
			}
			out, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("error opening output file %s: %w", outputFile, err)
			}
			defer out.Close()
			return io.WriteCSVTable(out, []string{"prediction"}, result.PredictionTable)
		},
	}

	cmd.Flags().StringVarP(&params.ModelFile, "model-file", "m", "", "model file prefix or file returned by build")
	cmd.Flags().StringVarP(&params.ModelName, "model-name", "n", model.DecisionTreeClassifier, "model name")
	cmd.Flags().StringVarP(&featuresFile, "features", "f", "", "name of features table file (csv or json)")
	cmd.Flags().StringVarP(&characteristicsFile, "characteristics", "c", "", "name of characteristics table file (optional)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of predictions output file (optional)")

	_ = cmd.MarkFlagRequired("model-file")
	_ = cmd.MarkFlagRequired("features")

	return cmd
}

func EncodeCommand() *cobra.Command {
	var inputFile string
	var outputFile string
	var showConversion bool

	var cmd = &cobra.Command{
		Use:   "encode -i featuresFile [-o outputFile]",
		Short: "Replaces categorical feature values by numeric surrogates",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, keys, err := pkg.LoadTable(inputFile, nil)
			if err != nil {
				return err
			}
			encoding, err := features.Encode(t)
			if err != nil {
				return err
			}
			if showConversion {
				encoding.Conversion.Render(cmd.ErrOrStderr(), keys)
			}

			encoded := make(table.Table, len(encoding.Rows))
			for i, row := range encoding.Rows {
				encoded[i] = make(table.Row, len(row))
				for j, v := range row {
					encoded[i][j] = table.Num(v)
				}
			}

			out := cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("error opening output file %s: %w", outputFile, err)
				}
				defer f.Close()
				out = f
			}
			return io.WriteCSVTable(out, keys, encoded)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of features table file (csv or json)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of output file (optional, uses stdout if not present)")
	cmd.Flags().BoolVarP(&showConversion, "show-conversion", "", false, "print the conversion table to stderr")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func PlotCommand() *cobra.Command {
	var inputFile string
	var configFile string
	var continuous bool
	var parquetFile string
	var o graph.Options

	var cmd = &cobra.Command{
		Use:   "plot -i graphsFile [--config options.yaml] [-o outputFile]",
		Short: "Plots experiment graphs read from a json or parquet file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options := o
			if configFile != "" {
				fromFile, err := graph.LoadOptions(configFile)
				if err != nil {
					return err
				}
				options = fromFile
				if cmd.Flags().Changed("type") {
					options.PlotType = o.PlotType
				}
				if cmd.Flags().Changed("output") {
					options.OutToFile = o.OutToFile
				}
				if cmd.Flags().Changed("title") {
					options.Title = o.Title
				}
			}

			source := func() (graph.Graphs, error) {
				return io.LoadGraphs(inputFile)
			}
			if continuous {
				return graph.ContinuousPlot(cmd.InOrStdin(), source, options)
			}
			graphs, err := source()
			if err != nil {
				return err
			}
			if parquetFile != "" {
				if err := io.SaveGraphsParquet(parquetFile, graphs); err != nil {
					return err
				}
			}
			return graph.Plot(graphs, options)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of graphs file (json or parquet)")
	cmd.Flags().StringVarP(&configFile, "config", "", "", "YAML file with plot options")
	cmd.Flags().StringVarP(&o.PlotType, "type", "t", graph.Scatter2D, "plot type")
	cmd.Flags().StringVarP(&o.OutToFile, "output", "o", graph.DefaultOutputFile, "name of image file")
	cmd.Flags().StringVarP(&o.Title, "title", "", "", "plot title")
	cmd.Flags().BoolVarP(&continuous, "continuous", "", false, "re-plot after every line read from stdin")
	cmd.Flags().StringVarP(&parquetFile, "save-parquet", "", "", "also save the graphs to this parquet file")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "ckml", PersistentPreRun: setupLogging}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	Main.AddCommand(BuildCommand())
	Main.AddCommand(ValidateCommand())
	Main.AddCommand(EncodeCommand())
	Main.AddCommand(PlotCommand())

	if err := Main.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		panic("Invalid logging level specified")
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		panic("Invalid log format specified")

	}

}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
