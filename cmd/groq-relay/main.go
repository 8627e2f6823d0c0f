// ABOUTME: Entry point for the groq-relay Telegram bot
// ABOUTME: Wires config, storage, the Groq client and the update poller

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/groq-relay/internal/bot"
	"github.com/2389/groq-relay/internal/config"
	"github.com/2389/groq-relay/internal/llm"
	"github.com/2389/groq-relay/internal/session"
	"github.com/2389/groq-relay/internal/stream"
	"github.com/2389/groq-relay/internal/telegram"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  __ _ _ __ ___   __ _       _ __ ___| | __ _ _   _
 / _' | '__/ _ \ / _' |_____| '__/ _ \ |/ _' | | | |
| (_| | | | (_) | (_| |_____| | |  __/ | (_| | |_| |
 \__, |_|  \___/ \__, |     |_|  \___|_|\__,_|\__, |
 |___/              |_|                       |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: groq-relay <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the relay bot")
		fmt.Println("  init      Create a new config file interactively")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger, closeLog := config.SetupLogger(cfg.Logging.File, config.ParseLevel(cfg.Logging.Level))
	defer closeLog()

	defaultModel := cfg.Groq.DefaultModel
	if defaultModel == "" {
		defaultModel = llm.DefaultModel
	}

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Model:     %s\n", defaultModel)
	if len(cfg.Telegram.AllowedUsers) > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Access:    %d allowed user(s)\n", len(cfg.Telegram.AllowedUsers))
	}
	fmt.Println()

	logger.Info("starting groq-relay",
		"version", version,
		"config", configPath,
		"database", cfg.Database.Path,
		"default_model", defaultModel,
	)

	sessions, err := session.NewSQLiteStore(cfg.Database.Path, defaultModel)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessions.Close()

	groq, err := llm.New(cfg.Groq.APIKey, cfg.Groq.BaseURL, logger)
	if err != nil {
		return fmt.Errorf("creating groq client: %w", err)
	}

	agg := stream.New(groq, cfg.Stream.FlushThreshold, logger)
	models := llm.NewModels(cfg.Groq.Models)

	client := telegram.NewClient(telegram.BaseURL(cfg.Telegram.Token), logger)
	relay := bot.New(sessions, client, agg, models, logger)
	poller := telegram.NewPoller(client, relay, cfg.Telegram.AllowedUsers, cfg.Telegram.PollTimeout, logger)

	err = poller.Run(ctx)
	logger.Info("shutting down")
	return err
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("groq-relay configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	defaultConfigPath := config.DefaultPath()

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Telegram Configuration ---")
	token := prompt(reader, "Bot token (or ${TELEGRAM_BOT_TOKEN} to read from env)", "${TELEGRAM_BOT_TOKEN}")
	allowedUsers := prompt(reader, "Allowed user IDs, comma separated (empty = open to everyone)", "")

	fmt.Println("\n--- Groq Configuration ---")
	apiKey := prompt(reader, "API key (or ${GROQ_API_KEY} to read from env)", "${GROQ_API_KEY}")
	defaultModel := prompt(reader, "Default model", llm.DefaultModel)

	fmt.Println("\n--- Storage Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDBPath())

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFile := prompt(reader, "JSON log file (empty = stderr only)", "")

	var cfg strings.Builder
	cfg.WriteString("# groq-relay configuration\n")
	cfg.WriteString("# Generated by groq-relay init\n\n")

	cfg.WriteString("telegram:\n")
	cfg.WriteString(fmt.Sprintf("  token: \"%s\"\n", token))
	if allowedUsers != "" {
		cfg.WriteString(fmt.Sprintf("  allowed_users: [%s]\n", allowedUsers))
	}
	cfg.WriteString("  poll_timeout: \"30s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("groq:\n")
	cfg.WriteString(fmt.Sprintf("  api_key: \"%s\"\n", apiKey))
	cfg.WriteString(fmt.Sprintf("  default_model: \"%s\"\n", defaultModel))
	cfg.WriteString("  models:\n")
	for _, id := range llm.DefaultModels {
		cfg.WriteString(fmt.Sprintf("    - \"%s\"\n", id))
	}
	cfg.WriteString("\n")

	cfg.WriteString("stream:\n")
	cfg.WriteString("  flush_threshold: 100\n")
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	if logFile != "" {
		cfg.WriteString(fmt.Sprintf("  file: \"%s\"\n", logFile))
	}

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the bot:")
	fmt.Printf("  groq-relay serve\n")

	return nil
}

// defaultDBPath puts the database under the user's data dir (XDG aware).
func defaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "relay.db"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "groq-relay", "relay.db")
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
