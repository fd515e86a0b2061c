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

	"github.com/ortuman/jackal-presence/pkg/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand prints out the version of rosterctl.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version of rosterctl",
		Run:   versionCommandFunc,
	}
}

func versionCommandFunc(_ *cobra.Command, _ []string) {
	fmt.Println("rosterctl version:", version.Version)
}
