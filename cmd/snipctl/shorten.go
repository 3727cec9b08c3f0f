package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/snipay/snipay/internal/clicks"
	"github.com/snipay/snipay/internal/gateway"
	"github.com/snipay/snipay/internal/model"
	"github.com/snipay/snipay/internal/saga"
)

func newShortenCmd() *cobra.Command {
	var qrOut string

	cmd := &cobra.Command{
		Use:   "shorten <url>",
		Short: "Shorten a URL by paying the issuance fee",
		Long: "Requests a UPI payment intent, writes its QR code to a file, and\n" +
			"creates the short URL once the payment is confirmed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}

			client := gateway.New(apiURL, token)
			payments := gateway.NewPaymentClient(client)
			resources := gateway.NewResourceClient(client)

			workflow := saga.New(payments, resources, func(created *model.ShortURL) {
				fmt.Printf("\nShort URL created: %s/%s\n", strings.TrimSuffix(apiURL, "/"), created.ShortCode)
			})

			if err := workflow.Begin(cmd.Context(), args[0]); err != nil {
				return err
			}

			intent := workflow.Intent()
			if err := writeQRCode(intent, qrOut); err != nil {
				return err
			}

			fmt.Printf("Payment reference: %s\n", intent.ReferenceID)
			fmt.Printf("Amount:            %s\n", formatAmount(intent.Amount, intent.Currency))
			fmt.Printf("Pay to:            %s (%s)\n", intent.UPIID, intent.MerchantName)
			fmt.Printf("QR code written to %s\n", qrOut)

			completed, err := driveConfirmation(cmd.Context(), workflow)
			if err != nil {
				return err
			}

			if completed {
				refreshAfterCompletion(cmd.Context(), client)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&qrOut, "qr-out", "snipay-qr.png", "file to write the payment QR code to")

	return cmd
}

// driveConfirmation loops until the payment confirms or dies. Settlement
// that has not arrived yet keeps the same reference; expired, unknown, or
// already-consumed references are terminal and need a fresh intent.
func driveConfirmation(ctx context.Context, workflow *saga.Issuance) (bool, error) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("\nPress Enter once you have paid (or type 'cancel'): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, fmt.Errorf("read input: %w", err)
		}

		if strings.TrimSpace(strings.ToLower(line)) == "cancel" {
			if err := workflow.Cancel(); err != nil {
				return false, err
			}
			fmt.Println("Cancelled. The payment reference was discarded.")
			return false, nil
		}

		err = workflow.ConfirmAndCreate(ctx)
		switch {
		case err == nil:
			return true, nil

		case errors.Is(err, saga.ErrNotYetSettled):
			fmt.Println("Payment not settled yet. Complete the payment and try again.")

		case errors.Is(err, saga.ErrIntentExpired),
			errors.Is(err, saga.ErrIntentUnknown):
			return false, fmt.Errorf("%w; run 'snipctl shorten' again for a fresh payment", err)

		case gateway.IsConflictCode(err, gateway.CodeReferenceAlreadyConsumed):
			return false, fmt.Errorf("payment reference was already used; run 'snipctl shorten' again for a fresh payment")

		case isTransport(err):
			fmt.Println("Could not reach the server. Check your connection and try again.")

		default:
			return false, err
		}
	}
}

// writeQRCode decodes the intent's QR image and writes it to path.
func writeQRCode(intent *model.PaymentIntent, path string) error {
	png, err := base64.StdEncoding.DecodeString(intent.QRCodeBase64)
	if err != nil {
		return fmt.Errorf("decode QR code: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write QR code: %w", err)
	}
	return nil
}

// refreshAfterCompletion fetches the URL list and click series in
// parallel to show an updated summary. Failures here do not fail the
// command; the short URL already exists.
func refreshAfterCompletion(ctx context.Context, client *gateway.Client) {
	resources := gateway.NewResourceClient(client)
	analytics := gateway.NewAnalyticsClient(client)

	var (
		wg     sync.WaitGroup
		urls   []*model.ShortURL
		series map[string]int64
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		urls, _ = resources.ListMine(ctx)
	}()
	go func() {
		defer wg.Done()
		series, _ = analytics.ClickSeries(ctx)
	}()
	wg.Wait()

	if urls != nil {
		fmt.Printf("You now have %d short URL(s).\n", len(urls))
	}
	if report, err := clicks.Aggregate(series); err == nil && report.HasData {
		fmt.Printf("Total clicks across your URLs: %d\n", report.TotalClicks)
	}
}

// isTransport reports whether err is a network-level gateway failure.
func isTransport(err error) bool {
	gwErr, ok := gateway.AsError(err)
	return ok && gwErr.Kind == gateway.KindTransport
}
