// Command engine is the CLI entry point: load a workflow definition,
// validate it, and run or resume an execution against it. Its
// cobra+viper scaffolding follows the teacher's own cmd/ convention of a
// root command with persistent flags bound into viper for env-var
// override.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/relaykit/orchestrate/internal/apiclient"
	"github.com/relaykit/orchestrate/internal/dispatcher"
	"github.com/relaykit/orchestrate/internal/domain"
	"github.com/relaykit/orchestrate/internal/engine"
	"github.com/relaykit/orchestrate/internal/knowledge"
	"github.com/relaykit/orchestrate/internal/model"
	"github.com/relaykit/orchestrate/internal/notifier"
	"github.com/relaykit/orchestrate/internal/runner"
	"github.com/relaykit/orchestrate/internal/sandbox"
	"github.com/relaykit/orchestrate/internal/store"
	"github.com/relaykit/orchestrate/internal/tracing"
	"github.com/relaykit/orchestrate/internal/validator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "engine",
		Short: "Workflow orchestration engine",
	}

	root.PersistentFlags().String("db", "engine.db", "path to the sqlite state database")
	root.PersistentFlags().String("nats-url", nats.DefaultURL, "NATS server URL for checkpointing")
	root.PersistentFlags().String("webhook-url", "", "default webhook URL for notification steps")
	viper.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	viper.BindPFlag("nats_url", root.PersistentFlags().Lookup("nats-url"))
	viper.BindPFlag("webhook_url", root.PersistentFlags().Lookup("webhook-url"))
	viper.SetEnvPrefix("ENGINE")
	viper.AutomaticEnv()

	root.AddCommand(newValidateCmd(), newRunCmd(), newInitCmd(), newIngestCmd())
	return root
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <directory>",
		Short: "Index every knowledge document YAML file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			docs, err := knowledge.LoadDocuments(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}

			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return err
			}
			defer db.Close()

			registry := domain.NewRegistry()
			index := knowledge.New(knowledge.NewHashingEmbedder(256), registry)

			for _, doc := range docs {
				index.Index(doc)
				if err := db.SaveDocument(ctx, "default", doc); err != nil {
					return fmt.Errorf("failed to persist document %q: %w", doc.ID, err)
				}
			}

			fmt.Printf("indexed %d document(s)\n", len(docs))
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <name> <output.yaml>",
		Short: "Scaffold a new workflow definition with freshly minted IDs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			wf := &model.Workflow{
				ID:      model.NewID(),
				Version: 1,
				Name:    name,
				Status:  model.WorkflowDraft,
				Steps: []model.Step{
					{ID: model.NewID(), Order: 1, Name: "first step", Type: model.StepDataTransform,
						Config: map[string]any{"expression": "input"}},
				},
			}
			data, err := yaml.Marshal(wf)
			if err != nil {
				return fmt.Errorf("failed to marshal scaffold workflow: %w", err)
			}
			return os.WriteFile(path, data, 0o644)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow.yaml>",
		Short: "Statically validate a workflow definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			issues := validator.ValidateWorkflow(wf)
			if len(issues) == 0 {
				fmt.Println("workflow is valid")
				return nil
			}
			var fatalCount int
			for _, issue := range issues {
				fmt.Println(issue.String())
				if issue.Fatal() {
					fatalCount++
				}
			}
			if fatalCount == 0 {
				fmt.Println("workflow is valid (with warnings)")
				return nil
			}
			return fmt.Errorf("%d fatal validation issue(s) found", fatalCount)
		},
	}
}

func newRunCmd() *cobra.Command {
	var inputFile string
	cmd := &cobra.Command{
		Use:   "run <workflow.yaml>",
		Short: "Run a workflow to completion or its first approval gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd.Context(), args[0], inputFile)
		},
	}
	cmd.Flags().StringVar(&inputFile, "input", "", "path to a JSON file of initial variables")
	return cmd
}

func loadWorkflow(path string) (*model.Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	var wf model.Workflow
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}
	return &wf, nil
}

func loadVariables(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	var vars map[string]any
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	return vars, nil
}

func runWorkflow(ctx context.Context, workflowPath, inputPath string) error {
	wf, err := loadWorkflow(workflowPath)
	if err != nil {
		return err
	}
	issues := validator.ValidateWorkflow(wf)
	var fatalCount int
	for _, issue := range issues {
		if issue.Fatal() {
			fatalCount++
			slog.Error("validation issue", "detail", issue.String())
		} else {
			slog.Warn("validation issue", "detail", issue.String())
		}
	}
	if fatalCount > 0 {
		return fmt.Errorf("%d fatal validation issue(s) found, refusing to run", fatalCount)
	}

	vars, err := loadVariables(inputPath)
	if err != nil {
		return err
	}

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer db.Close()

	checkpoint, err := connectCheckpointStore(ctx, viper.GetString("nats_url"))
	if err != nil {
		slog.Warn("running without checkpointing", "error", err)
		checkpoint = nil
	}

	d := buildDispatcher(viper.GetString("webhook_url"))
	tracer := tracing.New("engine")
	r := runner.New(d, checkpoint, tracer, db)

	execution := &model.Execution{
		ID:             uuid.NewString(),
		WorkflowID:     wf.ID,
		Status:         model.ExecutionRunning,
		StartedAt:      time.Now(),
		InputVariables: vars,
	}
	if err := db.SaveExecution(ctx, execution); err != nil {
		return err
	}

	// variables = workflow.initial_variables ∪ caller-provided input_data,
	// with caller-provided values taking precedence on key collisions.
	initialVars := make(map[string]any, len(wf.Variables)+len(vars))
	for k, v := range wf.Variables {
		initialVars[k] = v
	}
	for k, v := range vars {
		initialVars[k] = v
	}

	state := model.NewExecutionState(wf.ID, execution.ID, initialVars)
	graph := engine.NewGraph(wf)
	status := r.Run(ctx, graph, state)

	now := time.Now()
	execution.Status = status
	execution.CompletedAt = &now
	execution.FinalVariables = state.Variables
	if len(state.Errors) > 0 {
		execution.Error = state.Errors[len(state.Errors)-1].Message
	}
	if state.WaitingApproval {
		execution.ApprovalStepID = state.ApprovalStepID
	}
	if err := db.SaveExecution(ctx, execution); err != nil {
		return err
	}

	fmt.Printf("execution %s finished with status %s\n", execution.ID, status)
	return nil
}

func connectCheckpointStore(ctx context.Context, url string) (*runner.CheckpointStore, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}
	return runner.NewCheckpointStore(ctx, js)
}

func buildDispatcher(webhookURL string) *dispatcher.Dispatcher {
	d := dispatcher.New()
	d.Register(model.StepAPICall, &dispatcher.APICallExecutor{Client: apiclient.New()})
	d.Register(model.StepPythonScript, &dispatcher.PythonScriptExecutor{Runner: sandbox.NewRunner()})
	d.Register(model.StepCondition, &dispatcher.ConditionExecutor{})
	d.Register(model.StepDataTransform, &dispatcher.DataTransformExecutor{})
	d.Register(model.StepNotification, &dispatcher.NotificationExecutor{Notifier: notifier.New(webhookURL)})
	d.Register(model.StepApproval, &dispatcher.ApprovalExecutor{})
	d.Register(model.StepLLMCall, &dispatcher.LLMCallExecutor{})
	return d
}
