package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snipay/snipay/internal/clicks"
	"github.com/snipay/snipay/internal/gateway"
)

// maxBarWidth caps the histogram bar length in terminal columns.
const maxBarWidth = 40

func newAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show your per-day click counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}

			analytics := gateway.NewAnalyticsClient(gateway.New(apiURL, token))
			series, err := analytics.ClickSeries(cmd.Context())
			if err != nil {
				return err
			}

			report, err := clicks.Aggregate(series)
			if err != nil {
				return err
			}

			if !report.HasData {
				fmt.Println("No clicks recorded yet.")
				return nil
			}

			var peak int64
			for _, p := range report.Points {
				if p.Count > peak {
					peak = p.Count
				}
			}

			for _, p := range report.Points {
				fmt.Printf("%s  %6d  %s\n",
					p.Date.Format(clicks.DateLayout),
					p.Count,
					bar(p.Count, peak),
				)
			}

			fmt.Printf("\n%d click(s) across %d day(s).\n", report.TotalClicks, report.DaysTracked)
			return nil
		},
	}
}

// bar renders a proportional histogram bar for count against peak.
func bar(count, peak int64) string {
	if peak <= 0 || count <= 0 {
		return ""
	}
	width := int(count * maxBarWidth / peak)
	if width == 0 {
		width = 1
	}
	return strings.Repeat("#", width)
}
