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

	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/spf13/cobra"
)

// NewBlockCommand returns the cobra command for "block".
func NewBlockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "block <user jid> <jid>...",
		Short: "Blocks communication between a user and a set of addresses",
		Run:   blockCommandFunc,
	}
}

// NewUnblockCommand returns the cobra command for "unblock".
func NewUnblockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <user jid> [jid...]",
		Short: "Unblocks a set of addresses. Every blocked address is unblocked when none is given",
		Run:   unblockCommandFunc,
	}
}

// blockCommandFunc executes the "block" command.
func blockCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		ExitWithError(ExitBadArgs, fmt.Errorf("block command requires user JID and at least one address as its arguments"))
	}
	owner := mustParseUserJID(args[0])
	jids := parseJIDs(args[1:])

	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	blocked, err := c.Blocker().Block(ctx, owner, jids)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	display.Blocked(owner.String(), blocked)
}

// unblockCommandFunc executes the "unblock" command.
func unblockCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		ExitWithError(ExitBadArgs, fmt.Errorf("unblock command requires user JID as its argument"))
	}
	owner := mustParseUserJID(args[0])
	jids := parseJIDs(args[1:])

	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	unblocked, err := c.Blocker().Unblock(ctx, owner, jids)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	display.Unblocked(owner.String(), unblocked)
}

func parseJIDs(args []string) []*jid.JID {
	jids := make([]*jid.JID, 0, len(args))
	for _, arg := range args {
		jids = append(jids, mustParseJID(arg))
	}
	return jids
}
