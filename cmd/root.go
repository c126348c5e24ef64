/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/colors"
	"github.com/lifelink-community/pushtray/internal/config"
	"github.com/lifelink-community/pushtray/internal/logging"
	"github.com/lifelink-community/pushtray/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pushtray",
	Short: "A push notification tray for your terminal.",
	Long:  `A push notification tray for your terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		colors.SetDebug(config.GetBool("debug", false))
		colors.SetQuiet(config.GetBool("quiet", false))
		if err := logging.InitGlobal(); err != nil {
			colors.Warning(fmt.Sprintf("logging disabled: %s", err))
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.ShutdownGlobal()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = version.String()

	// Hide the completion command
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		printHelpText(cmd)
	})
}

func printHelpText(cmd *cobra.Command) {
	commandOrder := []string{
		"run",
		"enable",
		"disable",
		"status",
		"list",
		"read",
		"read-all",
		"delete",
		"follow",
		"inbox",
		"help",
		"version",
	}

	var cmdLines []string
	for _, name := range commandOrder {
		var found *cobra.Command
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = c
				break
			}
		}
		if found == nil {
			continue
		}
		cmdLines = append(cmdLines, fmt.Sprintf("    %-16s %s", found.Use, found.Short))
	}

	helpText := fmt.Sprintf(`pushtray v%s

A push notification tray for your terminal.

USAGE:
    pushtray [COMMAND] [OPTIONS]

COMMANDS:
%s

OPTIONS:
    -h, --help      Show help message
`, version.String(), strings.Join(cmdLines, "\n"))
	fmt.Print(helpText)
}
