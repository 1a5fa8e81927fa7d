package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/article-cli/internal/progress"
)

var writeFlags struct {
	bundle string
	output string
	yes    bool
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Run the write phase from a saved analysis bundle",
	Long:  "Loads an analysis bundle produced by 'analyze' and generates the article. Missing analysis artifacts prompt for confirmation before writing degraded output.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(writeFlags.bundle)
		if err != nil {
			return eris.Wrap(err, "read analysis bundle")
		}
		var bundle analysisBundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			return eris.Wrap(err, "parse analysis bundle")
		}
		if bundle.Config == nil || bundle.Analysis == nil {
			return eris.New("analysis bundle is incomplete; re-run analyze")
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
		if writeFlags.yes {
			confirm = func([]string) bool { return true }
		}

		orch, err := initOrchestrator(progress.ZapSink{}, st, confirm)
		if err != nil {
			return err
		}
		orch.Session().SetConfig(bundle.Config)
		orch.Session().SetAnalysis(bundle.Analysis)
		orch.Session().SetKeywords(bundle.Analysis.Keywords)

		if err := orch.Write(ctx); err != nil {
			return err
		}

		return writeDocument(orch.Session().Document(), writeFlags.output)
	},
}

// promptConfirm asks on the terminal whether to proceed with degraded
// analysis artifacts.
func promptConfirm(missing []string) bool {
	fmt.Fprintf(os.Stderr, "Analysis is missing: %s.\nWrite anyway with degraded output? [y/N]: ", strings.Join(missing, ", "))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func writeDocument(doc, path string) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.WriteString(doc)
		return err
	}
	return eris.Wrap(os.WriteFile(path, []byte(doc), 0o644), "write document")
}

func init() {
	writeCmd.Flags().StringVarP(&writeFlags.bundle, "analysis", "a", "analysis.json", "analysis bundle path from 'analyze'")
	writeCmd.Flags().StringVarP(&writeFlags.output, "output", "o", "-", "document output path (- for stdout)")
	writeCmd.Flags().BoolVarP(&writeFlags.yes, "yes", "y", false, "write without confirmation even when analysis artifacts are missing")
	rootCmd.AddCommand(writeCmd)
}
