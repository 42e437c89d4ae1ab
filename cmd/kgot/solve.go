package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/controller"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm/providers"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/tool"
)

var (
	taskFile    string
	attachments []string
	jsonOutput  bool
)

var solveCmd = &cobra.Command{
	Use:   "solve [task]",
	Short: "Solve a task by building and querying a knowledge graph",
	Long: `Solve runs the iterative loop for a single task. The task is given
as an argument or read from a file with --file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&taskFile, "file", "f", "", "Read the task from a file")
	solveCmd.Flags().StringArrayVarP(&attachments, "attach", "a", nil, "Attach a file to the task (repeatable)")
	solveCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
}

func runSolve(cmd *cobra.Command, args []string) error {
	task, err := resolveTask(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)

	planning, err := providers.New(cfg.LLM.Planning)
	if err != nil {
		return fmt.Errorf("planning provider: %w", err)
	}
	execution, err := providers.New(cfg.LLM.Execution)
	if err != nil {
		return fmt.Errorf("execution provider: %w", err)
	}

	store, err := graph.New(cfg.Graph)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := store.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(ctx); cerr != nil {
			logger.Warn("graph close failed", "error", cerr)
		}
	}()

	ctrl := controller.New(planning, execution, store, tool.NewRegistry(), cfg.Controller,
		controller.WithLogger(logger),
		controller.WithPlanningModel(cfg.LLM.Planning.DefaultModel),
		controller.WithExecutionModel(cfg.LLM.Execution.DefaultModel),
		controller.WithTemperature(cfg.LLM.Temperature),
		controller.WithSnapshotter(graph.NewSnapshotter(cfg.Snapshots.Dir)),
	)

	result, err := ctrl.Run(ctx, task, attachments...)
	if err != nil {
		return err
	}

	return printResult(cmd, result)
}

func resolveTask(args []string) (string, error) {
	if taskFile != "" {
		data, err := os.ReadFile(taskFile)
		if err != nil {
			return "", fmt.Errorf("reading task file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}

	return "", fmt.Errorf("no task given: pass it as an argument or use --file")
}

func printResult(cmd *cobra.Command, result *controller.Result) error {
	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Status:     %s\n", result.Status)
	cmd.Printf("Iterations: %d\n", result.Iterations)
	cmd.Printf("LLM calls:  %d (%d tokens)\n", result.LLMCalls, result.Usage.TotalTokens)
	cmd.Printf("Duration:   %s\n", result.Duration.Round(10*time.Millisecond))
	if result.Solution != "" {
		cmd.Printf("\n%s\n", result.Solution)
	} else {
		cmd.Println("\nNo solution was produced.")
	}
	return nil
}
