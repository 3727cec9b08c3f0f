package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/snipay/snipay/internal/gateway"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your short URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}

			resources := gateway.NewResourceClient(gateway.New(apiURL, token))
			urls, err := resources.ListMine(cmd.Context())
			if err != nil {
				return err
			}

			if len(urls) == 0 {
				fmt.Println("No short URLs yet. Create one with 'snipctl shorten'.")
				return nil
			}

			base := strings.TrimSuffix(apiURL, "/")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SHORT URL\tCLICKS\tCREATED\tORIGINAL")
			for _, u := range urls {
				fmt.Fprintf(w, "%s/%s\t%d\t%s\t%s\n",
					base, u.ShortCode,
					u.TotalClicks,
					u.CreatedAt.Format("2006-01-02"),
					u.OriginalURL,
				)
			}
			return w.Flush()
		},
	}
}
