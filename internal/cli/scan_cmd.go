package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AustinCai/ai-spam-killer/internal/services"
)

var (
	scanMaxEmails int64
	scanLive      bool
)

// scanCmd runs one classification pass from the terminal
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan recent inbox mail for spam",
	Long: `Fetch recent inbox messages, classify each one with the configured AI
model, and print the verdicts in inbox order. By default nothing is
changed in the mailbox; with --live, spam is archived and the mined
unsubscribe links are attempted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		fmt.Println("Authenticating with Gmail...")
		session, err := services.NewSession(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		scanService := services.NewScanService(db, logService, cfg.Workers)
		opts := services.ScanOptions{
			MaxEmails:  scanMaxEmails,
			WindowDays: cfg.ScanWindowDays,
			DryRun:     !scanLive,
		}
		if opts.MaxEmails <= 0 {
			opts.MaxEmails = cfg.MaxEmails
		}

		if err := scanService.Scan(ctx, session, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
			os.Exit(1)
		}

		status := scanService.Status()
		spamCount := 0
		for _, result := range status.Results {
			marker := "      "
			if result.IsSpam {
				marker = "SPAM  "
				spamCount++
			}
			fmt.Printf("%s %-50s %s\n", marker, result.Subject, result.Sender)
			fmt.Printf("       %s\n", result.Reason)
			for _, link := range result.UnsubscribeLinks {
				fmt.Printf("       unsubscribe: %s\n", link)
			}
		}
		fmt.Printf("\nScanned %d emails, %d flagged as spam.\n", status.Total, spamCount)

		if !scanLive {
			if spamCount > 0 {
				fmt.Println("Dry run: nothing archived. Re-run with --live to act on these.")
			}
			return
		}

		for _, result := range status.Results {
			if !result.IsSpam {
				continue
			}
			unsubscribed, err := scanService.ArchiveEmail(ctx, session, result.EmailID, result.UnsubscribeLinks, true)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to archive %s: %v\n", result.EmailID, err)
				continue
			}
			fmt.Printf("Archived %q (%d unsubscribe attempts succeeded)\n", result.Subject, unsubscribed)
		}
	},
}

func init() {
	scanCmd.Flags().Int64Var(&scanMaxEmails, "max-emails", 0, "maximum number of emails to scan (default from config)")
	scanCmd.Flags().BoolVar(&scanLive, "live", false, "archive spam and attempt unsubscribe links")
}
