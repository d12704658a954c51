package main

import (
	"github.com/spf13/cobra"
)

// Global flag values.
var (
	configPath string
	envFile    string
)

// rootCmd is the base command for nanocode.
var rootCmd = &cobra.Command{
	Use:   "nanocode",
	Short: "Structured generation relay",
	Long: `nanocode relays structured generation requests to a language model.

The API service validates requests, renders prompts and forwards them to
the model server. The model server dispatches prompts to one backend
chosen at startup: mock, openai, llamacpp or vllm.

Configuration comes from built-in defaults, an optional YAML file and
environment variables, in that order. A .env file is loaded first and
never overrides variables that are already set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to an optional YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(modelServerCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(versionCmd)
}
