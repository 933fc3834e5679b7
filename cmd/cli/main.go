// Package main provides trademark-cli, a command-line front end to the
// trademark comparison engine.
//
// Run with: go run ./cmd/cli marks --applicant royal --opponent regal
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fleveque/trademark-service/internal/assessment"
	"github.com/fleveque/trademark-service/internal/batch"
	"github.com/fleveque/trademark-service/internal/config"
	"github.com/fleveque/trademark-service/internal/lexicon"
	"github.com/fleveque/trademark-service/internal/llm"
	"github.com/fleveque/trademark-service/internal/model"
	"github.com/fleveque/trademark-service/internal/server"
	"github.com/fleveque/trademark-service/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are shared by every subcommand.
type options struct {
	configPath string
	offline    bool
}

// rootCmd builds the command tree:
//
//	trademark-cli coined <mark>...
//	trademark-cli marks --applicant A --opponent B [--assess] [--offline]
//	trademark-cli goods --case case.yaml [--offline]
func rootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "trademark-cli",
		Short:        "Trademark similarity tools",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("TRADEMARK_CONFIG_PATH"),
		"Path to config.yaml (default: $TRADEMARK_CONFIG_PATH, ./config.yaml)")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false,
		"Run without a model: conceptual scores fall back to neutral, goods pairs are reported as failed")

	root.AddCommand(coinedCmd(opts), marksCmd(opts), goodsCmd(opts))
	return root
}

func coinedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "coined <mark>...",
		Short: "Show whether each mark is treated as a coined term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			lex, err := lexicon.LoadOrDefault(cfg.Assessment.LexiconPath)
			if err != nil {
				return fmt.Errorf("loading lexicon: %w", err)
			}
			return printCoined(cmd.OutOrStdout(), lex, args)
		},
	}
}

func printCoined(w io.Writer, lex *lexicon.Lexicon, marks []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "MARK\tCOINED\t(lexicon %s)\n", lex.Version())
	for _, m := range marks {
		fmt.Fprintf(tw, "%s\t%t\t\n", m, lex.IsCoined(m))
	}
	return tw.Flush()
}

func marksCmd(opts *options) *cobra.Command {
	var applicant, opponent string
	var assess bool

	cmd := &cobra.Command{
		Use:   "marks",
		Short: "Compare two wordmarks and print the assessment as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *service.TrademarkService) error {
				a, o := model.Mark{Wordmark: applicant}, model.Mark{Wordmark: opponent}

				var result *model.MarkSimilarityAssessment
				var err error
				if assess {
					result, err = svc.AssessMarks(ctx, a, o)
				} else {
					result, err = svc.CompareMarks(ctx, a, o)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&applicant, "applicant", "", "Applicant wordmark")
	cmd.Flags().StringVar(&opponent, "opponent", "", "Opponent wordmark")
	cmd.Flags().BoolVar(&assess, "assess", false, "Ask the model for a holistic assessment instead of the weighted scores")
	_ = cmd.MarkFlagRequired("applicant")
	_ = cmd.MarkFlagRequired("opponent")
	return cmd
}

func goodsCmd(opts *options) *cobra.Command {
	var casePath string

	cmd := &cobra.Command{
		Use:   "goods",
		Short: "Predict a full opposition case from a YAML or JSON case file",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadCase(casePath)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *service.TrademarkService) error {
				prediction, err := svc.PredictCase(ctx, *in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), prediction)
			})
		},
	}

	cmd.Flags().StringVar(&casePath, "case", "", "Case file with applicant, opponent, applicant_goods and opponent_goods")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

// loadCase reads a case file. JSON is valid YAML, so both formats work.
func loadCase(path string) (*model.CaseInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading case file: %w", err)
	}
	var in model.CaseInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing case file %s: %w", path, err)
	}
	if len(in.ApplicantGoods) == 0 || len(in.OpponentGoods) == 0 {
		return nil, fmt.Errorf("case file %s: applicant_goods and opponent_goods must be non-empty", path)
	}
	return &in, nil
}

// withService wires a TrademarkService (online from config, or offline) and
// runs fn under a context cancelled by Ctrl+C.
func withService(cmd *cobra.Command, opts *options, fn func(context.Context, *service.TrademarkService) error) error {
	// The CLI always logs in development mode, to stderr.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.offline {
		svc, err := offlineService(cfg, logger)
		if err != nil {
			return err
		}
		return fn(ctx, svc)
	}

	components, err := server.NewComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(ctx, components.Service)
}

// offlineService builds a lenient service over an empty provider chain: no
// database, no network, no delay between batch groups.
func offlineService(cfg *config.Config, logger *zap.Logger) (*service.TrademarkService, error) {
	lex, err := lexicon.LoadOrDefault(cfg.Assessment.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("loading lexicon: %w", err)
	}
	client := llm.NewStructuredClient(llm.NewChain(logger), 0, nil, logger)
	assessor := assessment.NewAssessor(client, lex, model.Lenient, nil, logger)
	processor := batch.NewProcessor(assessor, model.Lenient, cfg.Assessment.BatchConcurrency, 0, nil, logger)
	return service.NewTrademarkService(assessor, processor, logger), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
