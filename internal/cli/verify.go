package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factsearch/factsearch/internal/model"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [claim]",
	Short: "Verify a single claim and print the verdict",
	Long: `Runs the full verification workflow for one claim: generate search
queries, retrieve evidence, iterate until the evidence suffices or the
iteration cap is reached, then judge the claim against the evidence.

The verdict is printed as JSON to stdout, or written to a file with -o.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringP("output", "o", "", "write verdict JSON to file instead of stdout")
	verifyCmd.Flags().Bool("quiet", false, "suppress progress output")
}

func runVerify(cmd *cobra.Command, args []string) error {
	claimText := strings.TrimSpace(args[0])
	if claimText == "" {
		return fmt.Errorf("claim text is empty")
	}

	cfg := loadConfig()
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	emit := func(node string, typ model.EventType, status string, payload any) {
		if quiet || typ != model.EventNodeStart {
			return
		}
		fmt.Fprintf(os.Stderr, "-> %s\n", node)
	}

	wf := comps.newWorkflow(emit)
	verdict, err := wf.Run(cmd.Context(), model.NewVerifierState(claimText))
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	data, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	data = append(data, '\n')

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "Verdict written to %s\n", out)
		}
		return nil
	}
	_, err = os.Stdout.Write(data)
	return err
}
