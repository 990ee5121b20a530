// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestUnmarshal(t *testing.T) {
	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)

	// [database]
	assert.Equal(t, "sqlite://ratings.db", config.Database.DataStore)
	assert.Equal(t, "redis://localhost:6379/0", config.Database.CacheStore)
	assert.Equal(t, "recsys_", config.Database.TablePrefix)
	// [item_knn]
	assert.Equal(t, 30, config.ItemKNN.NeighborhoodSize)
	assert.Equal(t, 100, config.ItemKNN.ModelSize)
	assert.Equal(t, 4, config.ItemKNN.NumJobs)
	assert.Equal(t, 512, config.ItemKNN.BatchSize)
	assert.Equal(t, FallbackUserMean, config.ItemKNN.Fallback)
	assert.Equal(t, 20, config.ItemKNN.N)
	// [non_personalized]
	assert.Equal(t, "rating >= 4", config.NonPersonalized.Liked)
	assert.Equal(t, ScoreSimple, config.NonPersonalized.Score)
	assert.Equal(t, 10, config.NonPersonalized.NumOutput)
	assert.Equal(t, []int64{122, 603, 194}, config.NonPersonalized.Movies)
}

func TestSetDefault(t *testing.T) {
	v := viper.New()
	setDefault(v)
	v.SetConfigType("toml")
	err := v.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = v.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)

	config2, err := LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config2)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("RECSYS_DATA_STORE", "sqlite:///tmp/data.db")
	t.Setenv("RECSYS_CACHE_STORE", "redis://127.0.0.1:6379/1")
	t.Setenv("RECSYS_TABLE_PREFIX", "test_")
	t.Setenv("RECSYS_NUM_JOBS", "8")

	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/data.db", config.Database.DataStore)
	assert.Equal(t, "redis://127.0.0.1:6379/1", config.Database.CacheStore)
	assert.Equal(t, "test_", config.Database.TablePrefix)
	assert.Equal(t, 8, config.ItemKNN.NumJobs)
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte("[item_knn]\nfallback = \"global_mean\"\n"), 0644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "Fallback")

	assert.NoError(t, os.WriteFile(path, []byte("[non_personalized]\nnum_output = 0\n"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "NumOutput")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
