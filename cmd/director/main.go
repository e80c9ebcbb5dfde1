package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
	directorx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/director"
	dispatchx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/dispatch"
	llmx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/llm"
	managerx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/manager"
	promptx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/prompt"
	specialistx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/specialist"
	storex "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/store"
	completionx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/pkg/completion"
	configx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/pkg/config"
	logx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/pkg/logger"
	_ "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/pkg/logger/autoload"
)

type AppConfig struct {
	HealthAreaID     string `envconfig:"HEALTH_AREA_ID" default:"536ade3b-2f55-4f91-ada8-5ff851caf43f"`
	DirectorMemory   int    `envconfig:"DIRECTOR_MEMORY" default:"20"`
	ManagerMemory    int    `envconfig:"MANAGER_MEMORY" default:"15"`
	SpecialistMemory int    `envconfig:"SPECIALIST_MEMORY" default:"10"`
}

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "director",
		Short: "Executive coordinator for a network of domain assistants",
		Long: `director runs a three-tier assistant network: an executive coordinator
routes each request to the right domain manager, which in turn hands it to a
leaf specialist. Conversational replies come back through the same chain with
routing breadcrumbs, and logged meals or equipment land in the domain store.`,
		SilenceUsage:      true,
		PersistentPreRunE: applyEnvFile,
		RunE:              runChat,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file path (default ./.env)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "capabilities",
		Short: "Print the assistant network tree",
		RunE:  runCapabilities,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Print the executive dashboard snapshot",
		RunE:  runDashboard,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// applyEnvFile makes a --env path visible to every config loader, then
// reinitializes logging so the file's LOG_* settings take effect too.
func applyEnvFile(*cobra.Command, []string) error {
	if envFile == "" {
		return nil
	}
	if err := os.Setenv("ENV_FILE", envFile); err != nil {
		return err
	}
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
	return nil
}

func buildTree() (*dispatchx.Dispatcher, *storex.Postgres, error) {
	appCfg, err := configx.New[AppConfig]("")
	if err != nil {
		return nil, nil, fmt.Errorf("load app config: %w", err)
	}

	completionCfg, err := configx.New[completionx.Config]("OPENAI")
	if err != nil {
		return nil, nil, fmt.Errorf("load completion config: %w", err)
	}
	llmClient, err := completionx.NewClient(*completionCfg)
	if err != nil {
		return nil, nil, err
	}

	storeCfg, err := configx.New[storex.Config]("POSTGRES")
	if err != nil {
		return nil, nil, fmt.Errorf("load store config: %w", err)
	}
	records, err := storex.NewPostgres(*storeCfg)
	if err != nil {
		return nil, nil, err
	}

	genCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		_ = records.Close()
		return nil, nil, fmt.Errorf("load generation config: %w", err)
	}

	prompts := promptx.LoadPromptSet()

	meal, err := specialistx.NewMeal(llmClient, records, prompts.MealSpecialist, specialistx.Config{
		MaxHistory: appCfg.SpecialistMemory,
		Generation: genCfg.GenerationFor(contractx.LevelSpecialist),
		AreaID:     appCfg.HealthAreaID,
	})
	if err != nil {
		_ = records.Close()
		return nil, nil, fmt.Errorf("build meal specialist: %w", err)
	}

	equipment, err := specialistx.NewEquipment(llmClient, records, prompts.EquipmentSpecialist, specialistx.Config{
		MaxHistory: appCfg.SpecialistMemory,
		Generation: genCfg.GenerationFor(contractx.LevelSpecialist),
		AreaID:     appCfg.HealthAreaID,
	})
	if err != nil {
		_ = records.Close()
		return nil, nil, fmt.Errorf("build equipment specialist: %w", err)
	}

	health, err := managerx.NewHealth(llmClient, records, prompts.HealthManager, managerx.Config{
		MaxHistory: appCfg.ManagerMemory,
		Generation: genCfg.GenerationFor(contractx.LevelManager),
		AreaID:     appCfg.HealthAreaID,
	}, meal, equipment)
	if err != nil {
		_ = records.Close()
		return nil, nil, fmt.Errorf("build health manager: %w", err)
	}

	root, err := directorx.New(llmClient, health, prompts.Director, prompts.Synthesis, directorx.Config{
		MaxHistory: appCfg.DirectorMemory,
		Generation: genCfg.GenerationFor(contractx.LevelDirector),
	})
	if err != nil {
		_ = records.Close()
		return nil, nil, fmt.Errorf("build director: %w", err)
	}

	dispatcher, err := dispatchx.New(root)
	if err != nil {
		_ = records.Close()
		return nil, nil, err
	}
	return dispatcher, records, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	dispatcher, records, err := buildTree()
	if err != nil {
		return err
	}
	defer func() { _ = records.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printBanner(dispatcher.Capabilities())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Println("Goodbye. Your assistant network stays ready.")
			return nil
		case "clear":
			dispatcher.ResetAll()
			fmt.Println("All conversation memory cleared across the network.")
			continue
		case "capabilities":
			printCapabilities(dispatcher.Capabilities(), 0)
			continue
		case "dashboard":
			printDashboard(dispatcher.Dashboard(ctx))
			continue
		}

		res := dispatcher.Handle(ctx, line)
		fmt.Printf("Director%s: %s\n\n", breadcrumb(res.Trace), res.Reply)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func runCapabilities(*cobra.Command, []string) error {
	dispatcher, records, err := buildTree()
	if err != nil {
		return err
	}
	defer func() { _ = records.Close() }()

	printCapabilities(dispatcher.Capabilities(), 0)
	return nil
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	dispatcher, records, err := buildTree()
	if err != nil {
		return err
	}
	defer func() { _ = records.Close() }()

	printDashboard(dispatcher.Dashboard(cmd.Context()))
	return nil
}

func printBanner(caps contractx.Capability) {
	fmt.Println("Director of Agents")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Executive coordinator for your assistant network.")
	fmt.Println()
	printCapabilities(caps, 0)
	fmt.Println()
	fmt.Println("Commands: quit, clear, dashboard, capabilities")
	fmt.Println(strings.Repeat("-", 60))
}

func printCapabilities(c contractx.Capability, depth int) {
	fmt.Printf("%s- %s: %s\n", strings.Repeat("  ", depth), c.Name, c.Role)
	for _, child := range c.Children {
		printCapabilities(child, depth+1)
	}
}

func printDashboard(snap contractx.Snapshot) {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		fmt.Println("dashboard unavailable:", err)
		return
	}
	fmt.Println("Executive Dashboard")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println(string(raw))
}

// breadcrumb renders the routing outcome of one request for the prompt line.
func breadcrumb(tr *contractx.Trace) string {
	if tr == nil {
		return ""
	}

	var b strings.Builder
	switch tr.Kind {
	case contractx.TraceMulti:
		b.WriteString(" [multi-domain: " + strings.Join(tr.Involved, ", ") + "]")
	case contractx.TraceDelegated:
		if path := tr.Path(); len(path) > 1 {
			b.WriteString(" [routed to " + strings.Join(path[1:], " -> ") + "]")
		}
	case contractx.TraceFailed:
		b.WriteString(" [failed]")
	}

	switch sideEffectNode(tr) {
	case specialistx.MealName:
		b.WriteString(" [meal logged]")
	case specialistx.EquipmentName:
		b.WriteString(" [equipment added]")
	case "":
	default:
		b.WriteString(" [record saved]")
	}
	return b.String()
}

// sideEffectNode finds the node that applied a side effect, if any did.
func sideEffectNode(tr *contractx.Trace) string {
	if tr == nil {
		return ""
	}
	if tr.SideEffect {
		return tr.Node
	}
	for _, c := range tr.Children {
		if n := sideEffectNode(c); n != "" {
			return n
		}
	}
	return ""
}
