package console

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"web-agent/internal/config"
	"web-agent/internal/entity"
	"web-agent/internal/usecase"
	"web-agent/pkg/logg"
)

type Interface struct {
	config   *config.Config
	logger   *zap.Logger
	usecase  *usecase.Service
	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	stopping bool
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)

	return &Interface{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase:  params.Usecase,
		ctx:      ctx,
		cancel:   cancel,
		sigChan:  sigChan,
		stopping: false,
	}
}

func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-i.sigChan
		fmt.Println("\n\n🛑 Interrupt received, stopping run...")
		i.stopping = true
		i.Stop()
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		if i.stopping {
			break
		}

		fmt.Print("\n🌐 Enter the URL to start at (e.g., https://amazon.com): ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "" {
			continue
		}

		switch input {
		case "help", "h":
			i.printHelp()

			continue
		case "exit", "quit", "q":
			fmt.Println("Shutting down...")

			return nil
		}

		fmt.Print("🎯 What should I do? (e.g., Find the price of iPhone 15): ")

		if !scanner.Scan() {
			break
		}

		goal := strings.TrimSpace(scanner.Text())

		if goal == "" {
			fmt.Println("Goal cannot be empty.")

			continue
		}

		i.runSession(normalizeURL(input), goal)
	}

	return nil
}

func (i *Interface) Stop() error {
	i.stopping = true
	i.logger.Info("Stopping console interface...")

	i.cancel()
	i.usecase.Agent.Stop()

	fmt.Println("👋 Goodbye!")

	return nil
}

func (i *Interface) runSession(targetURL, goal string) {
	fmt.Printf("\n🚀 Launching Agent for: %s\n", targetURL)
	fmt.Printf("📋 Mission: %s\n", goal)
	fmt.Println("──────────────────────────────────────────────────")

	session, err := i.usecase.Agent.Run(i.ctx, targetURL, goal)
	if err != nil {
		i.logger.Error("Run failed", zap.Error(err))
		fmt.Printf("\n❌ Run failed: %v\n", err)

		if session == nil {
			return
		}
	}

	fmt.Println("\n──────────────────────────────────────────────────")

	switch session.Status {
	case entity.RunStatusFinished:
		fmt.Printf("✅ Run finished.\n")
	case entity.RunStatusAborted:
		fmt.Printf("❌ Run aborted: %s\n", session.Error)
	}

	items := 0
	for _, record := range session.Collected {
		items += len(record.Items)
	}

	fmt.Printf("Steps taken: %d\n", len(session.History))
	fmt.Printf("Items collected: %d\n", items)
}

// normalizeURL prefixes a scheme when the user typed a bare host.
func normalizeURL(raw string) string {
	if !strings.HasPrefix(raw, "http") {
		return "https://" + raw
	}

	return raw
}

func (i *Interface) printBanner() {
	banner := `
╔═══════════════════════════════════════════════════╗
║                                                   ║
║            🤖  AI Web Agent  🌐                   ║
║                                                   ║
║   Goal-driven web automation powered by Gemini    ║
║                                                   ║
╚═══════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  help, h       - Show this help message
  exit, quit, q - Exit the application

Enter a starting URL, then describe the goal in natural language:
  Examples:
    - https://www.wikipedia.org + "Type 'Artificial Intelligence' into the search bar"
    - ebay.com + "Find listings for mechanical keyboards and collect their prices"

The agent observes the page, plans with the reasoning service, and acts,
for a bounded number of steps. Collected data is saved as JSON when the
run ends.
`
	fmt.Println(help)
}
