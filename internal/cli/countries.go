package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/vatcheck/internal/control"
	"github.com/vietddude/vatcheck/internal/core/domain"
	"github.com/vietddude/vatcheck/internal/infra/rpc"
)

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the country codes routed to each authority",
	Run:   runCountries,
}

func init() {
	rootCmd.AddCommand(countriesCmd)
}

func runCountries(cmd *cobra.Command, args []string) {
	cfg, log := mustLoad()

	client, err := rpc.NewClient(control.ClientConfig(cfg, log))
	if err != nil {
		log.Error("Failed to initialize validators", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CODE\tCOUNTRY\tAUTHORITY")

	for _, code := range client.SupportedCountries() {
		owner, _ := client.Owner(code)
		name := ""
		if c, ok := domain.LookupCountry(code); ok {
			name = c.Name
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", code, name, owner)
	}
	_ = w.Flush()
}
