package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/progress"
)

// analysisBundle is the saved output of the analyze phase; the write command
// replays it without re-running analysis.
type analysisBundle struct {
	Config   *model.GenerationConfig `json:"config"`
	Analysis *model.AnalysisResult   `json:"analysis"`
}

var analyzeFlags struct {
	title     string
	reference string
	outline   string
	audience  string
	product   string
	knowledge string
	output    string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis phase and save the bundle",
	Long:  "Runs the five staggered analysis tasks over the reference document and writes the resulting bundle to a file for a later write phase.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		gc, err := loadGenerationConfig(analyzeFlags.title, analyzeFlags.reference,
			analyzeFlags.outline, analyzeFlags.audience, analyzeFlags.product,
			analyzeFlags.knowledge, false)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		orch, err := initOrchestrator(progress.ZapSink{}, st, nil)
		if err != nil {
			return err
		}

		if err := orch.Analyze(ctx, gc); err != nil {
			return err
		}

		bundle := analysisBundle{Config: gc, Analysis: orch.Session().Analysis()}
		data, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal analysis bundle")
		}

		if analyzeFlags.output == "" || analyzeFlags.output == "-" {
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}
		return eris.Wrap(os.WriteFile(analyzeFlags.output, data, 0o644), "write analysis bundle")
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.title, "title", "", "article title")
	analyzeCmd.Flags().StringVar(&analyzeFlags.reference, "reference", "", "reference document path (- for stdin)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.outline, "outline", "", "custom outline path, one section title per line")
	analyzeCmd.Flags().StringVar(&analyzeFlags.audience, "audience", "", "target audience code")
	analyzeCmd.Flags().StringVar(&analyzeFlags.product, "product", "", "product description path (.yaml/.yml for a pre-parsed brief)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.knowledge, "knowledge", "", "brand knowledge base path")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.output, "output", "o", "analysis.json", "where to save the analysis bundle (- for stdout)")
	_ = analyzeCmd.MarkFlagRequired("title")
	_ = analyzeCmd.MarkFlagRequired("reference")
	rootCmd.AddCommand(analyzeCmd)
}
