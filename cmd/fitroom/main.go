package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fitroom/internal/core"
	"fitroom/internal/llm"
	"fitroom/internal/llm/tasks"
	"fitroom/internal/repository"
	"fitroom/pkg/schema"
)

var rootCmd = &cobra.Command{
	Use:   "fitroom",
	Short: "Virtual fitting room",
	Long: `fitroom dresses a model generated from your photo in garments from a wardrobe.
- Studio: the interactive session. Every garment you try on becomes a layer you can undo, redo or remove.
- Poses: each layer remembers every pose it was rendered in, so switching back is instant.
- Scenes: re-render the current view on another background.
- Wardrobe: garments you wore or designed, kept in <workspace>/wardrobe.
- Journal: what happened in the studio, view with 'fitroom journal'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FITROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace directory (default .fitroom)")
	rootCmd.PersistentFlags().String("catalog", "", "YAML file listing poses and scenes")
	rootCmd.PersistentFlags().String("backend", "", "rendering backend: direct or genkit")
	rootCmd.PersistentFlags().String("log-file", "", "rotating log file (default stderr)")
	rootCmd.PersistentFlags().String("log-level", "", "DEBUG, INFO, WARN or ERROR")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(studioCmd())
	rootCmd.AddCommand(wardrobeCmd())
	rootCmd.AddCommand(rateCmd())
	rootCmd.AddCommand(journalCmd())
	rootCmd.AddCommand(sessionsCmd())
}

// loadConfig reads the environment and lets flags override it.
func loadConfig() (*core.Config, error) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("workspace"); v != "" {
		cfg.Workspace = v
	}
	if v := viper.GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v := viper.GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("catalog"); v != "" && v != cfg.CatalogPath {
		cfg.CatalogPath = v
		if err := cfg.ApplyCatalog(v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *core.Config) core.Logger {
	var logger core.Logger
	if cfg.LogFile != "" {
		logger = core.NewFileLogger(cfg.LogLevel, core.LogFileConfig{Path: cfg.LogFile})
	} else {
		logger = core.NewLogger(cfg.LogLevel)
	}
	core.SetDefault(logger)
	return logger
}

func newSynthesizer(ctx context.Context, cfg *core.Config) (core.Synthesizer, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set (export OPENROUTER_API_KEY=sk-or-v1-...)")
	}
	client, err := llm.NewClient(cfg.LLMConfig())
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	var renderer llm.Renderer = client
	if cfg.Backend == core.BackendGenkit {
		renderer = llm.NewGenkitRenderer(ctx, client)
	}
	return core.NewRealSynthesizer(client, renderer), nil
}

// withWorkspace opens the workspace and holds its lock while fn runs.
func withWorkspace(cfg *core.Config, fn func(ws *repository.Workspace) error) error {
	ws, err := repository.OpenWorkspace(cfg.Workspace)
	if err != nil {
		return err
	}
	lock := ws.Lock("cli")
	if err := lock.Acquire(); err != nil {
		return &core.LockError{Operation: "acquire", Message: "failed to acquire lock", Err: err}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to release lock: %v\n", err)
		}
	}()
	return fn(ws)
}

func studioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "studio",
		Short: "Open the interactive fitting room",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			synth, err := newSynthesizer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			ws, err := repository.OpenWorkspace(cfg.Workspace)
			if err != nil {
				return err
			}

			studio := core.NewStudio(cfg.Poses, cfg.DefaultScene())
			engine := core.NewEngine(synth, studio, ws.Wardrobe(), logger)
			engine.SetEventSink(ws.Journal())

			logger.Info("studio starting", "workspace", ws.Dir(), "backend", cfg.Backend, "poses", len(cfg.Poses))
			return core.NewCLISession(engine, ws, cfg.Scenes).Run(cmd.Context())
		},
	}
}

func wardrobeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wardrobe",
		Short: "Manage the garment catalog",
	}
	cmd.AddCommand(wardrobeListCmd())
	cmd.AddCommand(wardrobeAddCmd())
	cmd.AddCommand(wardrobeRemoveCmd())
	return cmd
}

func wardrobeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List garments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			newLogger(cfg)

			ws, err := repository.OpenWorkspace(cfg.Workspace)
			if err != nil {
				return err
			}
			items, err := ws.Wardrobe().List(cmd.Context())
			if err != nil {
				return err
			}
			core.PrintWardrobe(os.Stdout, items, nil)
			return nil
		},
	}
}

func wardrobeAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <image-file> [name]",
		Short: "Add a garment image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			newLogger(cfg)

			img, err := core.ReadImageFile(args[0])
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			if len(args) > 1 {
				name = args[1]
			}
			id, err := schema.NewGarmentID()
			if err != nil {
				return fmt.Errorf("generate garment id: %w", err)
			}
			item := schema.WardrobeItem{ID: id, Name: name, URL: string(img)}

			return withWorkspace(cfg, func(ws *repository.Workspace) error {
				if err := ws.Wardrobe().Add(cmd.Context(), item); err != nil {
					return err
				}
				fmt.Printf("✅ Added %s (%s)\n", item.Name, item.ID)
				return nil
			})
		},
	}
}

func wardrobeRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a garment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			newLogger(cfg)

			return withWorkspace(cfg, func(ws *repository.Workspace) error {
				if err := ws.Wardrobe().Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("🗑  Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate <image-file>",
		Short: "Get a stylist's critique of an outfit photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			newLogger(cfg)

			img, err := core.ReadImageFile(args[0])
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			synth, err := newSynthesizer(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			fmt.Println("🧐 Asking the stylist...")
			analysis, err := synth.AnalyzeStyle(cmd.Context(), &tasks.StyleAnalysisInput{Image: img})
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			core.PrintStyleAnalysis(os.Stdout, analysis)
			return nil
		},
	}
}

func journalCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show what happened in the studio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			newLogger(cfg)

			ws, err := repository.OpenWorkspace(cfg.Workspace)
			if err != nil {
				return err
			}
			events, err := ws.Journal().ReadJournal()
			if err != nil {
				return err
			}
			if limit > 0 && len(events) > limit {
				events = events[len(events)-limit:]
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Time", "Event", "Details"})
			for _, e := range events {
				t.AppendRow(table.Row{e.Timestamp().Local().Format("2006-01-02 15:04:05"), e.EventType(), describeEvent(e)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "show the last n events (0 for all)")
	return cmd
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved studios",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			newLogger(cfg)

			ws, err := repository.OpenWorkspace(cfg.Workspace)
			if err != nil {
				return err
			}
			names, err := ws.Sessions().List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No saved sessions.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Session", "Layers", "Scene"})
			for _, name := range names {
				snap, err := ws.Sessions().Load(name)
				if err != nil {
					t.AppendRow(table.Row{name, "-", err.Error()})
					continue
				}
				t.AppendRow(table.Row{name, len(snap.Layers), snap.Scene})
			}
			t.Render()
			return nil
		},
	}
}

func describeEvent(e schema.StudioEvent) string {
	switch ev := e.(type) {
	case *schema.BaseModelCreated:
		return fmt.Sprintf("%s in %q", ev.LayerID, ev.Pose)
	case *schema.LayerAppended:
		s := fmt.Sprintf("%s at %d wearing %s", ev.LayerID, ev.Index, strings.Join(ev.GarmentIDs, ", "))
		if ev.Discarded > 0 {
			s += fmt.Sprintf(" (%d redo dropped)", ev.Discarded)
		}
		return s
	case *schema.LayerRemoved:
		return fmt.Sprintf("%s from %d", ev.LayerID, ev.Index)
	case *schema.CursorMoved:
		return fmt.Sprintf("%d → %d", ev.From, ev.To)
	case *schema.PoseRendered:
		return fmt.Sprintf("%s in %q", ev.LayerID, ev.Pose)
	case *schema.SceneChanged:
		return fmt.Sprintf("%s: %s → %s", ev.LayerID, ev.OldScene, ev.NewScene)
	case *schema.TimelineReset:
		return fmt.Sprintf("%d layers cleared", ev.Layers)
	}
	return ""
}
