package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/config"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Interactive setup helpers",
}

var installEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Walk through choosing and configuring an embedding backend",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			backend = "local"
			model   string
			apiKey  string
		)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Embedding backend").
					Options(
						huh.NewOption("local (offline, no API key, dim 64)", "local"),
						huh.NewOption("openai (requires OPENAI_API_KEY)", "openai"),
					).
					Value(&backend),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Model name (blank = backend default)").
					Value(&model),
				huh.NewInput().
					Title("OpenAI API key (blank = use OPENAI_API_KEY env var)").
					Password(true).
					Value(&apiKey).
					WithHideFunc(func() bool { return backend != "openai" }),
			),
		).WithTheme(huh.ThemeDracula())

		if err := form.Run(); err != nil {
			if err == huh.ErrUserAborted {
				fmt.Fprintln(os.Stderr, "setup cancelled.")
				os.Exit(0)
			}
			fatalf("form error: %v", err)
		}

		if err := config.Initialize(); err != nil {
			fatalf("%v", err)
		}
		config.Set("embed.backend", backend)
		config.Set("embed.model", model)
		if err := config.Persist(); err != nil {
			fatalf("writing config: %v", err)
		}
		if apiKey != "" {
			if err := os.Setenv("OPENAI_API_KEY", apiKey); err != nil {
				fatalf("%v", err)
			}
			fmt.Println("note: OPENAI_API_KEY set for this process only; export it in your shell profile to persist it.")
		}
		fmt.Printf("embed.backend = %s, embed.model = %s\n", backend, model)
	},
}

func init() {
	installCmd.AddCommand(installEmbedCmd)
	rootCmd.AddCommand(installCmd)
}
