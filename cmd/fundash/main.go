// fundash serves a fundamentals dashboard for Indian listed stocks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fundash/api"
	"github.com/seenimoa/fundash/internal/agent"
	"github.com/seenimoa/fundash/internal/analysis/fundamental"
	"github.com/seenimoa/fundash/internal/app"
	"github.com/seenimoa/fundash/internal/config"
	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/internal/report"
	"github.com/seenimoa/fundash/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fundash",
	Short: "fundash: fundamentals dashboard for NSE/BSE stocks",
	Long: `fundash compares key fundamentals of Indian listed companies side by side,
shows their financial statements and latest announcements, and answers
questions about them through an LLM chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		if list, _ := cmd.Flags().GetString("stocks"); list != "" {
			cfg.MasterList.Path = list
		}
		logging.Init(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("stocks", "", "master list CSV (default: stocks.csv)")

	dashboardCmd.Flags().Bool("json", false, "print the raw result as JSON")
	chatCmd.Flags().StringSlice("tickers", nil, "stocks to discuss (default: first two master-list rows)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
	statusCmd.Flags().Bool("ping", false, "check each configured chat provider")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(announcementsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
}

// signalContext is cancelled on Ctrl-C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, logging.Get())
	if err != nil {
		return nil, fmt.Errorf("failed to initialise: %w", err)
	}
	return a, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fundash %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// --- Serve Command (HTTP server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		api.Version = version
		fmt.Printf("🌐 fundash dashboard on http://%s\n", cfg.Addr())
		return api.NewServer(a).ListenAndServe(cfg.Addr())
	},
}

// --- Dashboard Command ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [tickers...]",
	Short: "Print the dashboard for the given tickers",
	Long:  "Print key metrics, statements and announcements. Without tickers the first two master-list rows are used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		tickers := args
		if len(tickers) == 0 {
			tickers = a.DefaultTickers()
		}
		res := a.Dashboard.Refresh(ctx, tickers)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Fprint(cmd.OutOrStdout(), report.GenerateText(res))
		return nil
	},
}

// --- Resolve Command ---

var resolveCmd = &cobra.Command{
	Use:   "resolve [ticker]",
	Short: "Show the identifiers tried for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		ids, src := a.Resolver.Explain(args[0])
		fmt.Printf("%s → %s (%s)\n", args[0], strings.Join(ids, ", "), src)
		for _, id := range ids {
			fmt.Printf("  %s\n", a.Sources.Screener().CompanyURL(id))
		}
		return nil
	},
}

// --- Announcements Command ---

var announcementsCmd = &cobra.Command{
	Use:   "announcements [ticker]",
	Short: "List the latest announcements for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		ticker := strings.TrimSpace(args[0])
		limit := cfg.Dashboard.MaxAnnouncements

		page, err := a.Sources.Screener().Fetch(ctx, ticker, a.Resolver.Resolve(ticker))
		if err != nil {
			return fmt.Errorf("%s: %w", ticker, err)
		}
		items := fundamental.ExtractAnnouncements(page.HTML, limit, a.Sources.Screener().BaseURL())
		if news := a.Sources.News(); len(items) == 0 && news != nil {
			items = news.Announcements(ctx, a.List.Name(ticker), limit)
		}

		fmt.Printf("Announcements for %s (%s)\n", a.List.Name(ticker), page.URL)
		if len(items) == 0 {
			fmt.Println("    No data available.")
		}
		for _, it := range items {
			fmt.Print(report.FormatAnnouncement(it))
		}
		return nil
	},
}

// --- Chat Command ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the selected stocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		tickers, _ := cmd.Flags().GetStringSlice("tickers")
		if len(tickers) == 0 {
			tickers = a.DefaultTickers()
		}

		fmt.Printf("💬 fundash chat on %s\n", strings.Join(tickers, ", "))
		fmt.Println("Loading stock data...")
		stocks := agent.StocksFromResult(a.Dashboard.Refresh(ctx, tickers))
		bot := a.NewChatbot()
		if a.LLM == nil {
			fmt.Println("⚠️  No chat provider key configured; answers will fail. See `fundash status`.")
		}
		fmt.Println(`Type a question. "clear" resets the conversation, "exit" quits.`)

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch strings.ToLower(line) {
			case "":
				continue
			case "exit", "quit":
				return nil
			case "clear":
				bot.ClearHistory()
				fmt.Println("History cleared.")
				continue
			}
			fmt.Println(bot.GenerateResponse(ctx, line, stocks))
			fmt.Println()
			if ctx.Err() != nil {
				return nil
			}
		}
		return scanner.Err()
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  fundash — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (IST):    %s\n", utils.FormatDateTimeIST(utils.NowIST()))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    Master list:   %s (%d stocks)\n", cfg.MasterList.Path, a.List.Len())
		fmt.Printf("    Sources:       %s\n", strings.Join(a.Sources.Sources(), ", "))
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if ping, _ := cmd.Flags().GetBool("ping"); ping && a.LLM != nil {
			fmt.Println()
			fmt.Println("  Providers:")
			health := a.LLM.HealthCheck(cmd.Context())
			names := make([]string, 0, len(health))
			for name := range health {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				status := "✅ ok"
				if err := health[name]; err != nil {
					status = "❌ " + err.Error()
				}
				fmt.Printf("    %-25s %s\n", name+":", status)
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
