package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/article-cli/internal/progress"
)

var generateFlags struct {
	title      string
	reference  string
	outline    string
	audience   string
	product    string
	knowledge  string
	autoImages bool
	output     string
	yes        bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the full analyze and write cycle",
	Long:  "Analyzes the reference document, then writes the article in one invocation. Use analyze/write separately to inspect or reuse the analysis bundle.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		gc, err := loadGenerationConfig(generateFlags.title, generateFlags.reference,
			generateFlags.outline, generateFlags.audience, generateFlags.product,
			generateFlags.knowledge, generateFlags.autoImages)
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

		confirm := promptConfirm
		if generateFlags.yes {
			confirm = func([]string) bool { return true }
		}

		orch, err := initOrchestrator(progress.ZapSink{}, st, confirm)
		if err != nil {
			return err
		}

		if err := orch.Analyze(ctx, gc); err != nil {
			return err
		}
		if err := orch.Write(ctx); err != nil {
			return err
		}

		return writeDocument(orch.Session().Document(), generateFlags.output)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateFlags.title, "title", "", "article title")
	generateCmd.Flags().StringVar(&generateFlags.reference, "reference", "", "reference document path (- for stdin)")
	generateCmd.Flags().StringVar(&generateFlags.outline, "outline", "", "custom outline path, one section title per line")
	generateCmd.Flags().StringVar(&generateFlags.audience, "audience", "", "target audience code")
	generateCmd.Flags().StringVar(&generateFlags.product, "product", "", "product description path (.yaml/.yml for a pre-parsed brief)")
	generateCmd.Flags().StringVar(&generateFlags.knowledge, "knowledge", "", "brand knowledge base path")
	generateCmd.Flags().BoolVar(&generateFlags.autoImages, "auto-images", false, "plan illustrations after writing")
	generateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "-", "document output path (- for stdout)")
	generateCmd.Flags().BoolVarP(&generateFlags.yes, "yes", "y", false, "write without confirmation even when analysis artifacts are missing")
	_ = generateCmd.MarkFlagRequired("title")
	_ = generateCmd.MarkFlagRequired("reference")
	rootCmd.AddCommand(generateCmd)
}
