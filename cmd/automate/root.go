package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nl2flow/config"
	"nl2flow/internal/logger"
	"nl2flow/internal/model"
	"nl2flow/internal/service"
	"nl2flow/internal/service/compiler"
)

type options struct {
	dryRun bool
	asJSON bool
}

// dryRunOutput --dry-run 的输出结构
type dryRunOutput struct {
	Intent     model.AutomationIntent `json:"intent"`
	Plan       model.WorkflowPlan     `json:"plan"`
	Operations []model.Operation      `json:"operations"`
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "automate [prompt...]",
		Short: "Turn a free-text request into a Windmill automation",
		Example: `  automate "summarize my gmail every day at 9am"
  automate --dry-run "when webhook received, send to slack"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "classify and compile only, print intent and plan without calling the platform")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full response as JSON")
	return cmd
}

func run(cmd *cobra.Command, opts *options, prompt string) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})

	out := cmd.OutOrStdout()
	if opts.dryRun {
		intent := service.NewClassifier(cfg, nil).Classify(cmd.Context(), prompt)
		plan, err := compiler.New(compiler.OptionsFromConfig(cfg)).Compile(intent)
		if err != nil {
			return err
		}
		return writeJSON(out, dryRunOutput{Intent: intent, Plan: plan, Operations: plan.Operations()})
	}

	resp := service.NewFromConfig(cfg, nil).Handle(cmd.Context(), model.AutomationRequest{Prompt: prompt})
	if opts.asJSON {
		if err := writeJSON(out, resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, resp.Message)
	}
	if !resp.Success {
		return fmt.Errorf("automation request not completed")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
