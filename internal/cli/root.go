// Package cli implements quotectl, an operator tool to split parties, price
// and submit composition payloads, and check currency conversion.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alex-user-go/tripquote/internal/composition"
)

var (
	okColor   = color.New(color.FgGreen).Add(color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed).Add(color.Bold)
)

// NewRootCmd builds the quotectl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Inspect and finalize trip quote compositions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().String("config", "", "config file (defaults to ./tripquote.* if present)")

	root.AddCommand(newSplitCmd(), newBreakdownCmd(), newSubmitCmd(), newConvertCmd())
	return root
}

// Execute runs quotectl and exits non-zero on error.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		errColor.Fprint(os.Stderr, "ERROR")
		fmt.Fprintf(os.Stderr, ": %v\n", err)
		os.Exit(1)
	}
}

// loadComposition reads a payload file, or stdin when path is "-".
func loadComposition(path string, stdin io.Reader) (*composition.Composition, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var p composition.Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return composition.FromPayload(p)
}
