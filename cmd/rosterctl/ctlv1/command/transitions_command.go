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

package command

import (
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/subscription"
	"github.com/spf13/cobra"
)

var changedOnly bool

// NewTransitionsCommand returns the cobra command for "transitions".
func NewTransitionsCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "transitions [options]",
		Short: "Prints the subscription state transition table",
		Run:   transitionsCommandFunc,
	}

	cmd.Flags().BoolVar(&changedOnly, "changed-only", false, "print only the transitions changing the subscription state")

	return &cmd
}

// transitionsCommandFunc executes the "transitions" command.
func transitionsCommandFunc(cmd *cobra.Command, _ []string) {
	initDisplayFromCmd(cmd)
	display.Transitions(transitionTable(changedOnly))
}

func transitionTable(changedOnly bool) []transitionRow {
	var rows []transitionRow
	for _, sub := range rostermodel.StoredSubscriptions {
		for _, pt := range subscription.SubscriptionDirections {
			next, changed := subscription.Transition(sub, pt)
			if changedOnly && !changed {
				continue
			}
			rows = append(rows, transitionRow{
				From:     sub.String(),
				Presence: pt.String(),
				To:       next.String(),
				Changed:  changed,
			})
		}
	}
	return rows
}
