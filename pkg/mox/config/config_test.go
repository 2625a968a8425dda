// Copyright 2020-2021 The Mox Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"mox/pkg/mox/threadpool"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	require.Equal(t, runtime.GOMAXPROCS(0), c.WorkerCount)
	require.Equal(t, DefaultKAGSize, c.KAGSize)
	require.Equal(t, 0, c.DefaultVideoQuality)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mox.yaml")
	raw := []byte("workerCount: 3\nkagSize: 1024\ndefaultVideoQuality: 85\n")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, c.WorkerCount)
	require.Equal(t, 1024, c.KAGSize)
	require.Equal(t, 85, c.DefaultVideoQuality)
}

func TestLoadAppliesDefaultsToZeroFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaultVideoQuality: 50\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, runtime.GOMAXPROCS(0), c.WorkerCount)
	require.Equal(t, DefaultKAGSize, c.KAGSize)
	require.Equal(t, 50, c.DefaultVideoQuality)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplySizesSharedPool(t *testing.T) {
	c := Defaults()
	c.WorkerCount = 2
	c.Apply()
	require.Equal(t, 2, threadpool.Global().Size())
}
