package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/vatcheck/internal/control"
	"github.com/vietddude/vatcheck/internal/core/domain"
	"github.com/vietddude/vatcheck/internal/infra/rpc"
)

var checkCmd = &cobra.Command{
	Use:   "check [country_code] [vat_number]",
	Short: "Validate a single VAT number against its authority",
	Args:  cobra.ExactArgs(2),
	Run:   runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	countryCode, vat := args[0], args[1]
	cfg, log := mustLoad()

	client, err := rpc.NewClient(control.ClientConfig(cfg, log))
	if err != nil {
		log.Error("Failed to initialize validators", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout)
	defer cancel()

	valid, err := client.Validate(ctx, countryCode, vat)
	if err != nil {
		attrs := []any{"country", countryCode, "error", err}
		if ce, ok := domain.AsClassified(err); ok {
			attrs = append(attrs, "kind", ce.Kind, "authority", ce.Authority)
		}
		log.Error("Validation failed", attrs...)
		os.Exit(2)
	}

	if valid {
		fmt.Printf("%s %s: valid\n", countryCode, vat)
		return
	}
	fmt.Printf("%s %s: invalid\n", countryCode, vat)
	os.Exit(1)
}
