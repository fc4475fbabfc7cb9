// Command promptweave assembles token-budgeted prompts from YAML component
// definitions. It is a thin shell over the internal assembly engine, useful
// for inspecting what a given component set and budget produce.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"promptweave/internal/config"
	"promptweave/internal/logging"
	"promptweave/internal/prompt"
	"promptweave/internal/window"
)

var (
	// Global flags
	verbose    bool
	inputFile  string
	configFile string

	// Assemble flags
	maxTokens  int
	floor      int
	profile    string
	exactCosts bool

	// Logger
	logger *zap.Logger
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	metricStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

var rootCmd = &cobra.Command{
	Use:   "promptweave",
	Short: "promptweave - token-budgeted structured prompt assembly",
	Long: `promptweave turns prioritized, conditionally-included prompt components
into a single final prompt string under a hard token budget, preserving the
most important content and degrading gracefully when content exceeds budget.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		return logging.Initialize(cwd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
}

// componentDefinition is the YAML structure for component source files.
type componentDefinition struct {
	Type      string `yaml:"type"`
	Content   string `yaml:"content"`
	Priority  int    `yaml:"priority"`
	Required  bool   `yaml:"required"`
	TokenCost int    `yaml:"token_cost,omitempty"`
}

// componentFile is the document read by the assemble command.
type componentFile struct {
	Components []componentDefinition `yaml:"components"`
}

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble a prompt from a YAML component file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == "" {
			return fmt.Errorf("a component file is required (-f)")
		}

		cfg := config.DefaultConfig()
		if configFile != "" {
			var err error
			cfg, err = config.Load(configFile)
			if err != nil {
				return err
			}
		}

		// Flags override file config.
		if cmd.Flags().Changed("max-tokens") {
			cfg.Assembly.MaxTokens = maxTokens
		}
		if cmd.Flags().Changed("floor") {
			cfg.Assembly.TruncationFloorTokens = floor
		}
		if cmd.Flags().Changed("profile") {
			cfg.Assembly.ModelProfile = profile
		}
		if cmd.Flags().Changed("exact") {
			cfg.Assembly.ExactTokenizer = exactCosts
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("read components: %w", err)
		}
		var doc componentFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse components: %w", err)
		}
		if len(doc.Components) == 0 {
			return fmt.Errorf("no components in %s", inputFile)
		}

		opts := []prompt.Option{
			prompt.WithMaxTokens(cfg.Assembly.MaxTokens),
			prompt.WithTruncationFloor(cfg.Assembly.TruncationFloorTokens),
			prompt.WithProfile(prompt.ParseModelProfile(cfg.Assembly.ModelProfile)),
		}
		if cfg.Assembly.ExactTokenizer {
			estimator, err := prompt.NewTiktokenEstimator()
			if err != nil {
				return fmt.Errorf("exact tokenizer requested: %w", err)
			}
			opts = append(opts, prompt.WithCostEstimator(estimator))
		}

		assembler := prompt.NewAssembler(opts...)
		for _, def := range doc.Components {
			assembler.Add(&prompt.Component{
				Type:      prompt.ComponentType(def.Type),
				Content:   def.Content,
				Priority:  def.Priority,
				Required:  def.Required,
				TokenCost: def.TokenCost,
			})
		}

		logger.Info("Assembling prompt",
			zap.Int("components", len(doc.Components)),
			zap.Int("max_tokens", cfg.Assembly.MaxTokens),
			zap.String("profile", cfg.Assembly.ModelProfile))

		out, err := assembler.Assemble()
		if err != nil {
			return err
		}

		fmt.Println(out)
		printMetrics(assembler.Metrics())
		return nil
	},
}

func printMetrics(m *prompt.AssemblyMetrics) {
	fmt.Fprintln(os.Stderr, headerStyle.Render("── assembly metrics ──"))
	fmt.Fprintln(os.Stderr, metricStyle.Render(fmt.Sprintf(
		"components: %d (required %d, optional %d)", m.ComponentCount, m.RequiredCount, m.OptionalCount)))
	fmt.Fprintln(os.Stderr, metricStyle.Render(fmt.Sprintf(
		"tokens: %d  chars: %d", m.TotalTokens, m.TotalChars)))
	if m.Budget > 0 {
		fmt.Fprintln(os.Stderr, metricStyle.Render(fmt.Sprintf(
			"budget: %d  within: %v", m.Budget, m.WithinBudget)))
	}
	if m.Degraded() {
		fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf(
			"degraded: dropped_optional=%d dropped_required=%d truncated=%d deduplicated=%d",
			m.DroppedOptional, m.DroppedRequired, m.TruncatedRequired, m.Deduplicated)))
	}
}

// historyFile is the document read by the window command.
type historyFile struct {
	Exchanges []window.Exchange `yaml:"exchanges"`
}

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Report how many trailing exchanges a history would include",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == "" {
			return fmt.Errorf("a history file is required (-f)")
		}

		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		var doc historyFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse history: %w", err)
		}

		n := window.SelectWindow(doc.Exchanges)
		logger.Info("Selected window", zap.Int("exchanges", len(doc.Exchanges)), zap.Int("window", n))
		fmt.Println(n)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "input YAML file")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "engine config YAML file")

	assembleCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "hard token budget (0 = unlimited)")
	assembleCmd.Flags().IntVar(&floor, "floor", prompt.DefaultTruncationFloorTokens, "truncation floor in tokens")
	assembleCmd.Flags().StringVar(&profile, "profile", "generic", "model profile: generic|openai|anthropic|mistral")
	assembleCmd.Flags().BoolVar(&exactCosts, "exact", false, "use tiktoken for exact token costs")

	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(windowCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("error: %v", err)))
		os.Exit(1)
	}
}
