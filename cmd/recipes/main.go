// Command recipes 食譜目錄工具：轉換、驗證、搜尋與離線推薦
package main

import (
	"fmt"
	"os"

	"fridge-vision/internal/pkg/common"

	"github.com/spf13/cobra"
)

func main() {
	if err := RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// RootCommand 建立根命令
func RootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "recipes",
		Short:         "Fridge Vision recipe catalog tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 只輸出到終端
			return common.InitLogger(logLevel, "")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			common.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		convertCommand(),
		validateCommand(),
		searchCommand(),
		recommendCommand(),
	)
	return rootCmd
}
