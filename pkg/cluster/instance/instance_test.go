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

package instance

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOsEnvironmentIdentifier(t *testing.T) {
	// given
	readCachedResults = false
	defer func() { readCachedResults = true }()

	someUUID := "6967de42-315c-49b6-a051-0361640f961d"
	_ = os.Setenv(envInstanceID, someUUID)
	defer func() { _ = os.Unsetenv(envInstanceID) }()

	// when
	id := ID()

	// then
	require.Equal(t, someUUID, id)
}

func TestRandomIdentifier(t *testing.T) {
	// given
	readCachedResults = false
	defer func() { readCachedResults = true }()

	_ = os.Setenv(envInstanceID, "")

	// when
	id1 := ID()
	id2 := ID()

	// then
	require.True(t, len(id1) > 0)
	require.NotEqual(t, id1, id2)
}

func TestCachedIdentifier(t *testing.T) {
	require.Equal(t, ID(), ID())
}
