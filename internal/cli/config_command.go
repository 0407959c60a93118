package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repodigest/repodigest/internal/config"
)

const (
	configUse                  = "config"
	configShortDescription     = "manage repodigest configuration"
	configInitUse              = "init"
	configInitShortDescription = "write a starter configuration file"
	configInitLongDescription  = `Write a configuration file with the built-in defaults.
The file lands in the working directory, or in the home directory with --global.`

	globalFlagName        = "global"
	globalFlagDescription = "write the configuration in the home directory"
	forceFlagName         = "force"
	forceFlagDescription  = "overwrite an existing configuration file"

	configurationWrittenMessageFormat = "Configuration written to %s\n"
)

// createConfigCommand returns the config command group.
func createConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	configCommand.AddCommand(createConfigInitCommand())
	return configCommand
}

// createConfigInitCommand returns the config init subcommand.
func createConfigInitCommand() *cobra.Command {
	var writeGlobal bool
	var forceOverwrite bool

	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: configInitShortDescription,
		Long:  configInitLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			workingDirectory, workingDirectoryError := os.Getwd()
			if workingDirectoryError != nil {
				return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
			}
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			writtenPath, initializeError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            forceOverwrite,
				WorkingDirectory: workingDirectory,
			})
			if initializeError != nil {
				return initializeError
			}
			fmt.Fprintf(command.OutOrStdout(), configurationWrittenMessageFormat, writtenPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &writeGlobal, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &forceOverwrite, forceFlagName, false, forceFlagDescription)
	return initCommand
}
