// Command validate checks the store for consistency problems that the
// write paths can leave behind: owner renames applied to only some
// collections, and report version or last_modified anomalies.
//
// Usage:
//
//	go run ./cmd/validate
//	go run ./cmd/validate -resume   # finish partially-applied renames
//	go run ./cmd/validate -login camUni < password.txt
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/weather-report-store/internal/account"
	"github.com/couchcryptid/weather-report-store/internal/adapter/cache"
	mongoadapter "github.com/couchcryptid/weather-report-store/internal/adapter/mongo"
	"github.com/couchcryptid/weather-report-store/internal/aggregate"
	"github.com/couchcryptid/weather-report-store/internal/config"
	"github.com/couchcryptid/weather-report-store/internal/credential"
	"github.com/couchcryptid/weather-report-store/internal/observability"
	"github.com/couchcryptid/weather-report-store/internal/report"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	resume := flag.Bool("resume", false, "complete owner renames found partially applied")
	login := flag.String("login", "", "validate this user's password, read from stdin, and exit")
	flag.Parse()

	os.Exit(run(*resume, *login))
}

func run(resume bool, login string) int {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded")
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongoadapter.Connect(ctx, cfg, logger, metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: connect: %v\n", err)
		return 1
	}
	defer store.Close(context.Background()) //nolint:errcheck // exiting anyway

	if login != "" {
		return checkLogin(ctx, cfg, store, logger, login)
	}

	clock := clockwork.NewRealClock()
	queries := aggregate.NewQueries(store, clock, logger, metrics)
	stations := cache.NewCachedStationDirectory(cache.NewStoreDirectory(store), cfg.StationCacheSize, metrics)
	reports := report.NewService(store, queries, stations, clock, logger, metrics)

	fmt.Println("=== Weather Store Consistency Validation ===")
	fmt.Println()

	v := &validator{store: store, renames: reports, resume: resume, clock: clock}
	phases := []*phase{
		v.ownerNames(ctx),
		v.reportVersions(ctx),
		v.lastModified(ctx),
	}
	return printSummary(phases)
}

func checkLogin(ctx context.Context, cfg *config.Config, store *mongoadapter.Store, logger *slog.Logger, userID string) int {
	hasher, err := credential.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	cipher, err := credential.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	accounts := account.NewService(store, hasher, cipher, logger)

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		fmt.Fprintf(os.Stderr, "FATAL: read password: %v\n", err)
		return 1
	}
	res, err := accounts.Validate(ctx, userID, strings.TrimRight(password, "\r\n"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: validate: %v\n", err)
		return 1
	}
	fmt.Println(res.Outcome)
	if res.Outcome != account.OutcomeValid {
		return 1
	}
	return 0
}

// printSummary prints the phase summary and returns the exit code.
func printSummary(phases []*phase) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}
