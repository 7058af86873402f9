package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"iacgenius/app/config"
	"iacgenius/app/usecase"
	"iacgenius/internal/domain/entity"
	"iacgenius/internal/infrastructure/llm"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "iacgenius",
		Short:         "iacgenius — LLM-backed Infrastructure-as-Code generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newTypesCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newServeCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	var (
		iacType     string
		description string
		provider    string
		model       string
		apiKey      string
		cloud       string
		region      string
		tags        []string
		versions    string
		temperature float64
		maxTokens   int
		output      string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate infrastructure code from a description",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg := config.Load()
			store, opts, err := buildCore(cfg, logger)
			if err != nil {
				return err
			}

			session := usecase.NewSession(usecase.SessionDeps{
				Settings: store,
				Options:  opts,
				Logger:   logger,
			})

			req := entity.GenerateRequest{
				Description:    description,
				Kind:           entity.IaCKind(iacType),
				CloudProvider:  cloud,
				Region:         region,
				Tags:           tags,
				TargetVersions: versions,
				Temperature:    temperature,
				MaxTokens:      maxTokens,
			}
			overrides := entity.Settings{Provider: provider, Model: model, APIKey: apiKey}

			result, err := session.Generate(cmd.Context(), req, overrides)
			if err != nil {
				return err
			}
			fmt.Println(result.Code)

			if output != "" {
				path, err := session.Save(output)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
			}
			if interactive {
				return runInteractive(cmd, session, overrides)
			}
			session.Stop()
			return nil
		},
	}

	cmd.Flags().StringVarP(&iacType, "type", "t", string(entity.KindTerraform), "Infrastructure type to generate")
	cmd.Flags().StringVarP(&description, "description", "d", "", "What to build, in plain language")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider (default: stored setting)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default: stored setting)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key override for this call")
	cmd.Flags().StringVar(&cloud, "cloud", "", "Target cloud provider (default: AWS)")
	cmd.Flags().StringVar(&region, "region", "", "Target region")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Resource tag as key=value; repeatable, order preserved")
	cmd.Flags().StringVar(&versions, "versions", "", "Target tool/provider version constraints")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature (default 0.2)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Response token budget (default 2048)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this path")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Review loop: modify, save or quit after generation")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

// runInteractive drives the modify/save/quit loop on an already generated
// session.
func runInteractive(cmd *cobra.Command, session *usecase.Session, overrides entity.Settings) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "\n[m]odify, [s]ave, [q]uit? ")
		if !scanner.Scan() {
			session.Stop()
			return scanner.Err()
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "m", "modify":
			fmt.Fprint(os.Stderr, "Feedback: ")
			if !scanner.Scan() {
				session.Stop()
				return scanner.Err()
			}
			result, err := session.Modify(cmd.Context(), scanner.Text(), overrides)
			if err != nil {
				// Last good result survives; report and keep looping.
				fmt.Fprintf(os.Stderr, "Modify failed: %v\n", err)
				continue
			}
			fmt.Println(result.Code)
		case "s", "save":
			fmt.Fprint(os.Stderr, "Path (empty for default): ")
			if !scanner.Scan() {
				session.Stop()
				return scanner.Err()
			}
			path, err := session.Save(strings.TrimSpace(scanner.Text()))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
		case "q", "quit":
			session.Stop()
			return nil
		default:
			fmt.Fprintln(os.Stderr, "Unknown choice")
		}
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage stored defaults and presets",
	}
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newPresetCmd())
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	var (
		provider string
		model    string
		apiKey   string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update stored defaults (partial merge, validated)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, opts, err := buildCore(config.Load(), logger)
			if err != nil {
				return err
			}
			svc := usecase.NewSettingsService(store, opts, logger)
			updated, err := svc.Update(cmd.Context(), entity.Settings{
				Provider: provider,
				Model:    model,
				APIKey:   apiKey,
			})
			if err != nil {
				return err
			}
			printSettings(updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Default LLM provider")
	cmd.Flags().StringVar(&model, "model", "", "Default model")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Default API key (stored encrypted)")
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show effective defaults (environment overrides applied)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, _, err := buildCore(config.Load(), logger)
			if err != nil {
				return err
			}
			settings, err := store.Read()
			if err != nil {
				return err
			}
			printSettings(settings)
			return nil
		},
	}
}

func printSettings(s entity.Settings) {
	fmt.Printf("provider: %s\n", s.Provider)
	fmt.Printf("model:    %s\n", s.Model)
	if s.APIKey != "" {
		fmt.Printf("api_key:  %s\n", maskSecret(s.APIKey))
	} else {
		fmt.Println("api_key:  (not set)")
	}
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage named settings presets",
	}

	var (
		provider string
		model    string
		apiKey   string
	)
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Store a named preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, opts, err := buildCore(config.Load(), logger)
			if err != nil {
				return err
			}
			svc := usecase.NewSettingsService(store, opts, logger)
			return svc.SavePreset(cmd.Context(), args[0], entity.Settings{
				Provider: provider,
				Model:    model,
				APIKey:   apiKey,
			})
		},
	}
	save.Flags().StringVar(&provider, "provider", "", "Preset LLM provider")
	save.Flags().StringVar(&model, "model", "", "Preset model")
	save.Flags().StringVar(&apiKey, "api-key", "", "Preset API key (stored encrypted)")

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a named preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, _, err := buildCore(config.Load(), logger)
			if err != nil {
				return err
			}
			settings, ok, err := store.Preset(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("preset %q not found", args[0])
			}
			printSettings(settings)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a named preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, _, err := buildCore(config.Load(), logger)
			if err != nil {
				return err
			}
			return store.DeletePreset(args[0])
		},
	}

	cmd.AddCommand(save, show, del)
	return cmd
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range llm.Providers() {
				fmt.Println(p)
			}
			return nil
		},
	}
}

func newModelsCmd() *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "models [provider]",
		Short: "List models for a provider (stored default when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, opts, err := buildCore(config.Load(), logger)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			svc := usecase.NewProviderService(store, opts, logger)
			list, err := svc.Models(cmd.Context(), name, apiKey)
			if err != nil {
				return err
			}
			if list.Degraded() {
				fmt.Fprintf(os.Stderr, "Warning: model listing unavailable (%s); any model name is accepted\n", list.Reason)
				return nil
			}
			for _, m := range list.Models {
				fmt.Println(m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key override for this call")
	return cmd
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List supported infrastructure types",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range entity.IaCKinds() {
				fmt.Printf("%-32s %s\n", k, k.FileExtension())
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "validate [provider]",
		Short: "Check that a provider's credential or connection works",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, opts, err := buildCore(config.Load(), logger)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			svc := usecase.NewProviderService(store, opts, logger)
			if err := svc.Validate(cmd.Context(), name, apiKey); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key override for this call")
	return cmd
}
