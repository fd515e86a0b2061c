// Copyright 2022 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ctlv1

import (
	"time"

	"github.com/ortuman/jackal-presence/cmd/rosterctl/ctlv1/command"
	"github.com/spf13/cobra"
)

const (
	cliName        = "rosterctl"
	cliDescription = "A command line tool to inspect and edit jackal-presence rosters and privacy lists."

	defaultCommandTimeOut = 5 * time.Second
)

var (
	globalFlags = command.GlobalFlags{}
)

var (
	rootCmd = &cobra.Command{
		Use:        cliName,
		Short:      cliDescription,
		SuggestFor: []string{"rosterctl"},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigFile, "config", "config.yaml", "jackal-presence configuration file")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Output, "output", "o", "simple", "output format (simple, yaml)")
	rootCmd.PersistentFlags().DurationVar(&globalFlags.CommandTimeOut, "command-timeout", defaultCommandTimeOut, "timeout for running command")

	rootCmd.AddCommand(
		command.NewRosterCommand(),
		command.NewPrivacyCommand(),
		command.NewBlockCommand(),
		command.NewUnblockCommand(),
		command.NewTransitionsCommand(),
		command.NewVersionCommand(),
	)
}

// Start starts ctl command.
func Start() error {
	// Make help just show the usage
	rootCmd.SetHelpTemplate(`{{.UsageString}}`)
	return rootCmd.Execute()
}

// MustStart is like Start but exiting in case an error occurs.
func MustStart() {
	if err := Start(); err != nil {
		command.ExitWithError(command.ExitError, err)
	}
}

func init() {
	cobra.EnablePrefixMatching = true
}
