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

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
	"github.com/ortuman/jackal-presence/pkg/privacy"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
	"github.com/spf13/cobra"
)

var (
	checkKind      string
	checkList      string
	checkDirection string
)

// NewPrivacyCommand returns the cobra command for "privacy".
func NewPrivacyCommand() *cobra.Command {
	pc := &cobra.Command{
		Use:   "privacy <subcommand>",
		Short: "Privacy list related commands",
	}

	pc.AddCommand(newPrivacyListsCommand())
	pc.AddCommand(newPrivacyShowCommand())
	pc.AddCommand(newPrivacyCheckCommand())

	return pc
}

func newPrivacyListsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lists <user jid>",
		Short: "Lists user privacy list names",
		Run:   privacyListsCommandFunc,
	}
}

func newPrivacyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user jid> [list name]",
		Short: "Shows a privacy list rules. Default list is shown when no name is given",
		Run:   privacyShowCommandFunc,
	}
}

func newPrivacyCheckCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "check <user jid> <contact jid> [options]",
		Short: "Evaluates whether a stanza exchanged with contact is allowed",
		Run:   privacyCheckCommandFunc,
	}

	cmd.Flags().StringVar(&checkKind, "kind", "message", "stanza kind (message, iq, presence-in, presence-out)")
	cmd.Flags().StringVar(&checkList, "list", "", "privacy list name (defaults to user default list)")
	cmd.Flags().StringVar(&checkDirection, "direction", "in", "message and iq direction (in, out)")

	return &cmd
}

// privacyListsCommandFunc executes the "privacy lists" command.
func privacyListsCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		ExitWithError(ExitBadArgs, fmt.Errorf("privacy lists command requires user JID as its argument"))
	}
	owner := mustParseUserJID(args[0])

	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	names, err := c.PrivacyLists().ListNames(ctx, owner)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	defName, err := c.PrivacyLists().DefaultListName(ctx, owner)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	display.PrivacyLists(owner.String(), names, defName)
}

// privacyShowCommandFunc executes the "privacy show" command.
func privacyShowCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) < 1 || len(args) > 2 {
		ExitWithError(ExitBadArgs, fmt.Errorf("privacy show command requires user JID and an optional list name as its arguments"))
	}
	owner := mustParseUserJID(args[0])

	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	defName, err := c.PrivacyLists().DefaultListName(ctx, owner)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	name := defName
	if len(args) == 2 {
		name = args[1]
	}
	if len(name) == 0 {
		ExitWithError(ExitInvalidInput, fmt.Errorf("%s has no default privacy list", owner.String()))
	}
	l, err := c.PrivacyLists().GetList(ctx, owner, name)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	if l == nil {
		ExitWithError(ExitInvalidInput, fmt.Errorf("privacy list %s not found", name))
	}
	display.PrivacyList(owner.String(), l, name == defName)
}

// privacyCheckCommandFunc executes the "privacy check" command.
func privacyCheckCommandFunc(cmd *cobra.Command, args []string) {
	if len(args) != 2 {
		ExitWithError(ExitBadArgs, fmt.Errorf("privacy check command requires user and contact JIDs as its arguments"))
	}
	owner := mustParseUserJID(args[0])
	contact := mustParseJID(args[1])

	kind, err := privacymodel.ParseStanzaKind(checkKind)
	if err != nil {
		ExitWithError(ExitBadArgs, err)
	}
	stanza, dir, err := checkStanza(owner, contact, kind, checkDirection)
	if err != nil {
		ExitWithError(ExitBadArgs, err)
	}
	c, ctx, release := mustCoreFromCmd(cmd)
	defer release()

	var l *privacymodel.List
	if len(checkList) > 0 {
		l, err = c.PrivacyLists().GetList(ctx, owner, checkList)
		if err == nil && l == nil {
			err = fmt.Errorf("privacy list %s not found", checkList)
		}
	} else {
		l, err = c.Evaluator().DefaultList(ctx, owner)
	}
	if err != nil {
		ExitWithError(ExitError, err)
	}
	allowed := c.Evaluator().Allowed(ctx, owner, stanza, dir, l)

	display.PrivacyCheck(owner.String(), contact.String(), checkKind, allowed)
}

// checkStanza builds the probe stanza evaluated by the "privacy check" command.
func checkStanza(owner, contact *jid.JID, kind privacymodel.StanzaKind, direction string) (stravaganza.Stanza, privacy.Direction, error) {
	var dir privacy.Direction
	switch {
	case kind == privacymodel.PresenceIn:
		dir = privacy.Inbound
	case kind == privacymodel.PresenceOut:
		dir = privacy.Outbound
	case direction == "in":
		dir = privacy.Inbound
	case direction == "out":
		dir = privacy.Outbound
	default:
		return nil, 0, fmt.Errorf("invalid direction: %s", direction)
	}
	from, to := contact, owner
	if dir == privacy.Outbound {
		from, to = owner, contact
	}
	switch kind {
	case privacymodel.PresenceIn, privacymodel.PresenceOut:
		pr, err := xmpputil.MakePresence(from, to, "", nil)
		if err != nil {
			return nil, 0, err
		}
		return pr, dir, nil

	case privacymodel.Message:
		msg, err := stravaganza.NewMessageBuilder().
			WithAttribute(stravaganza.From, from.String()).
			WithAttribute(stravaganza.To, to.String()).
			BuildMessage()
		return msg, dir, err

	default:
		iq, err := stravaganza.NewIQBuilder().
			WithAttribute(stravaganza.ID, "privacy_check").
			WithAttribute(stravaganza.From, from.String()).
			WithAttribute(stravaganza.To, to.String()).
			WithAttribute(stravaganza.Type, stravaganza.GetType).
			WithChild(stravaganza.NewBuilder("ping").WithAttribute(stravaganza.Namespace, "urn:xmpp:ping").Build()).
			BuildIQ()
		return iq, dir, err
	}
}
