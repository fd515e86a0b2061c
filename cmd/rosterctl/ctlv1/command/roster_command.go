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
	"fmt"

	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/spf13/cobra"
)

var (
	itemName         string
	itemGroups       []string
	itemSubscription string
)

// NewRosterCommand returns the cobra command for "roster".
func NewRosterCommand() *cobra.Command {
	rc := &cobra.Command{
		Use:   "roster <subcommand>",
		Short: "Roster related commands",
	}

	rc.AddCommand(newRosterListCommand())
	rc.AddCommand(newRosterSetCommand())
	rc.AddCommand(newRosterRemoveCommand())

	return rc
}

func newRosterListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <user jid>",
		Short: "Lists user roster items",
		Run:   rosterListCommandFunc,
	}
}

func newRosterSetCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "set <user jid> <contact jid> [options]",
		Short: "Creates or updates a roster item",
		Run:   rosterSetCommandFunc,
	}

	cmd.Flags().StringVar(&itemName, "name", "", "contact display name")
	cmd.Flags().StringSliceVar(&itemGroups, "group", nil, "contact roster group (may be repeated)")
	cmd.Flags().StringVar(&itemSubscription, "subscription", "", "stored subscription state (none, to, from, both, none_pending_out...)")

	return &cmd
}

func newRosterRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user jid> <contact jid>",
		Short: "Removes a roster item",
		Run:   rosterRemoveCommandFunc,
	}
}

// rosterListCommandFunc executes the "roster list" command.
func rosterListCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		ExitWithError(ExitBadArgs, fmt.Errorf("roster list command requires user JID as its argument"))
	}
	owner := mustParseUserJID(args[0])

	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	items, err := c.Roster().Items(ctx, owner)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	display.RosterItems(owner.String(), items)
}

// rosterSetCommandFunc executes the "roster set" command.
func rosterSetCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) != 2 {
		ExitWithError(ExitBadArgs, fmt.Errorf("roster set command requires user and contact JIDs as its arguments"))
	}
	owner := mustParseUserJID(args[0])
	contact := mustParseJID(args[1]).ToBareJID()

	var sub *rostermodel.Subscription
	if len(itemSubscription) > 0 {
		s, err := rostermodel.ParseSubscription(itemSubscription)
		if err != nil || s == rostermodel.Remove {
			ExitWithError(ExitBadArgs, fmt.Errorf("invalid subscription value: %s", itemSubscription))
		}
		sub = &s
	}
	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	itm, err := c.Roster().Get(ctx, owner, contact)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	if itm == nil {
		itm = &rostermodel.Item{JID: contact, Subscription: rostermodel.None}
	}
	if cmd.Flags().Changed("name") {
		itm.Name = itemName
	}
	if cmd.Flags().Changed("group") {
		itm.Groups = itemGroups
	}
	if sub != nil {
		itm.Subscription = *sub
	}
	if err := c.Roster().Upsert(ctx, owner, itm); err != nil {
		ExitWithError(ExitError, err)
	}
	display.RosterItemSet(owner.String(), itm)
}

// rosterRemoveCommandFunc executes the "roster remove" command.
func rosterRemoveCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) != 2 {
		ExitWithError(ExitBadArgs, fmt.Errorf("roster remove command requires user and contact JIDs as its arguments"))
	}
	owner := mustParseUserJID(args[0])
	contact := mustParseJID(args[1]).ToBareJID()

	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	itm, err := c.Roster().Get(ctx, owner, contact)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	if itm == nil {
		ExitWithError(ExitInvalidInput, fmt.Errorf("%s is not in %s roster", contact.String(), owner.String()))
	}
	if err := c.Roster().Remove(ctx, owner, contact); err != nil {
		ExitWithError(ExitError, err)
	}
	display.RosterItemRemoved(owner.String(), contact.String())
}
