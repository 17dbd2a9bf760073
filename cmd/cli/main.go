package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/app"
	"github.com/dvloznov/receipt-ledger/internal/config"
	"github.com/dvloznov/receipt-ledger/internal/gcs"
	"github.com/dvloznov/receipt-ledger/internal/gemini"
	infraBQ "github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
	"github.com/dvloznov/receipt-ledger/internal/insights"
	"github.com/dvloznov/receipt-ledger/internal/location"
	"github.com/dvloznov/receipt-ledger/internal/logger"
)

func main() {
	log := logger.New("cli")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		runScan(log)
	case "upload":
		runUpload(log)
	case "transactions":
		runTransactions(log)
	case "credits":
		runCredits(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Receipt Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  scan          Run the scan pipeline on uploaded receipt images")
	fmt.Println("  upload        Upload a local receipt image to GCS")
	fmt.Println("  transactions  List a user's recent transactions")
	fmt.Println("  credits       Show or top up a user's credit balance")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func mustConfig(log zerolog.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

func runScan(log zerolog.Logger) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to scan for")
	currency := fs.String("currency", "", "Currency code (defaults to configured currency)")
	storeType := fs.String("store-type", "auto", "Store type hint")
	fs.Parse(os.Args[2:])

	images := fs.Args()
	if *userID == "" || len(images) == 0 {
		log.Fatal().Msg("Usage: cli scan -user ID [options] gs://bucket/image ...")
	}

	cfg := mustConfig(log)
	if *currency == "" {
		*currency = cfg.DefaultCurrency
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	store, err := gcs.NewImageStore(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}
	defer store.Close()

	analyzer, err := gemini.NewAnalyzer(ctx, cfg.GeminiModel, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analyzer")
	}

	insightGen, err := insights.NewGenerator(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create insight generator")
	}

	runner := app.NewRunner(repo, analyzer, insightGen, location.NewDirectory(nil), log)

	resp, err := runner.Run(ctx, *userID, app.ScanRequest{
		Images:    images,
		Currency:  *currency,
		StoreType: *storeType,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Scan failed")
	}

	if !resp.Result.Success {
		log.Fatal().Str("error", resp.Result.Error).Msg("Scan pipeline rejected the receipt")
	}

	tx := resp.Result.Transaction
	fmt.Println("\n=== Scan Result ===")
	fmt.Printf("Route:      %s\n", resp.Result.Route)
	fmt.Printf("Merchant:   %s (%s)\n", tx.Alias, tx.MerchantSource)
	fmt.Printf("Date:       %s\n", tx.Date)
	fmt.Printf("Total:      %.2f %s\n", tx.Total, tx.Currency)
	fmt.Printf("Category:   %s\n", tx.Category)
	fmt.Printf("Location:   %s, %s\n", tx.City, tx.Country)
	if resp.Result.HasDiscrepancy {
		fmt.Println("Warning:    total does not match the item sum")
	}
	fmt.Printf("\n=== Items (%d) ===\n", len(tx.Items))
	for i, it := range tx.Items {
		fmt.Printf("%d. %s  x%d  %.2f\n", i+1, it.Name, it.Qty, it.Price)
	}
	fmt.Println()
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	userID := fs.String("user", "", "User ID owning the receipt")
	filePath := fs.String("file", "", "Path to local image file")
	fs.Parse(os.Args[2:])

	if *userID == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -user ID -file PATH")
	}

	cfg := mustConfig(log)

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	store, err := gcs.NewImageStore(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}
	defer store.Close()

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open file")
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(*filePath))
	uri, err := store.UploadImage(ctx, *userID, filepath.Base(*filePath), contentType, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to list transactions for")
	limit := fs.Int("limit", 20, "Maximum number of transactions")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	cfg := mustConfig(log)

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	rows, err := repo.ListTransactions(ctx, *userID, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(rows))
	for i, row := range rows {
		fmt.Printf("\n%d. %s\n", i+1, row.Alias)
		fmt.Printf("   Date:     %s\n", row.Date)
		fmt.Printf("   Amount:   %.2f %s\n", row.Total, row.Currency)
		fmt.Printf("   Category: %s\n", row.Category)
		fmt.Printf("   Items:    %d\n", len(row.Items))
	}
	fmt.Println()
}

func runCredits(log zerolog.Logger) {
	fs := flag.NewFlagSet("credits", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	topUp := fs.Int("top-up", 0, "Credits to add to the balance")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	cfg := mustConfig(log)

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	if *topUp > 0 {
		if err := repo.AddCredits(ctx, *userID, *topUp); err != nil {
			log.Fatal().Err(err).Msg("Failed to add credits")
		}
		fmt.Printf("Added %d credits\n", *topUp)
	}

	balance, err := repo.CreditBalance(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read credit balance")
	}
	fmt.Printf("Balance: %d credits\n", balance)
}
