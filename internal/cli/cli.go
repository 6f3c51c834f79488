package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/AustinCai/ai-spam-killer/internal/api/middleware"
	"github.com/AustinCai/ai-spam-killer/internal/config"
	"github.com/AustinCai/ai-spam-killer/internal/services"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
	logService    *services.LogService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ai-spam-killer",
	Short: "AI-powered Gmail spam cleanup",
	Long: `ai-spam-killer scans recent inbox mail, classifies each message with an
LLM seeded by your own spam examples, and can archive the spam and attempt
its unsubscribe links.

Examples:
  ai-spam-killer scan                    # dry run: classify and print verdicts
  ai-spam-killer scan --live             # archive spam and attempt unsubscribes
  ai-spam-killer scan --max-emails 50    # limit the batch size
  ai-spam-killer key show                # show the current API key
  ai-spam-killer key reset               # rotate the API key`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	logService = services.NewLogServiceWithLevel(db, cfg.LogLevel)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(scanCmd)
}
