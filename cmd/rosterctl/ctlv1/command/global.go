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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/core"
	"github.com/ortuman/jackal-presence/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var display printer

// GlobalFlags are flags that defined globally and are inherited to all sub-commands.
type GlobalFlags struct {
	ConfigFile     string
	Output         string
	CommandTimeOut time.Duration
}

// mustCoreFromCmd loads the configured core and starts it.
// Returned release function stops the core and cancels the command context.
func mustCoreFromCmd(cmd *cobra.Command) (*core.Core, context.Context, func()) {
	initDisplayFromCmd(cmd)

	cfg, err := core.LoadConfig(configFileFromCmd(cmd))
	if err != nil {
		ExitWithError(ExitError, err)
	}
	c, err := core.New(*cfg, log.NewDefaultLogger(cfg.Logger.Level, cfg.Logger.Format))
	if err != nil {
		ExitWithError(ExitError, err)
	}
	ctx, cancel := commandCtx(cmd)
	if err := c.Start(ctx); err != nil {
		cancel()
		ExitWithError(ExitBadConnection, err)
	}
	return c, ctx, func() {
		_ = c.Stop(context.Background())
		cancel()
	}
}

func initDisplayFromCmd(cmd *cobra.Command) {
	p, err := newPrinter(stringFlag(cmd.Flags(), "output"), os.Stdout)
	if err != nil {
		ExitWithError(ExitBadArgs, err)
	}
	display = p
}

func commandCtx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeOut, err := cmd.Flags().GetDuration("command-timeout")
	if err != nil {
		ExitWithError(ExitError, err)
	}
	return context.WithTimeout(context.Background(), timeOut)
}

func configFileFromCmd(cmd *cobra.Command) string {
	return stringFlag(cmd.Flags(), "config")
}

func stringFlag(fs *pflag.FlagSet, name string) string {
	v, err := fs.GetString(name)
	if err != nil {
		ExitWithError(ExitError, err)
	}
	return v
}

func mustParseJID(s string) *jid.JID {
	j, err := jid.NewWithString(s, false)
	if err == nil && len(j.Domain()) == 0 {
		err = errors.New("empty domain")
	}
	if err != nil {
		ExitWithError(ExitBadArgs, fmt.Errorf("invalid JID %s: %v", s, err))
	}
	return j
}

func mustParseUserJID(s string) *jid.JID {
	j := mustParseJID(s)
	if len(j.Node()) == 0 {
		ExitWithError(ExitBadArgs, fmt.Errorf("%s is not a user JID", s))
	}
	return j.ToBareJID()
}
