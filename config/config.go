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
	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	FallbackNone     = "none"
	FallbackUserMean = "user_mean"

	ScoreLift   = "lift"
	ScoreSimple = "simple"
)

// Config is the configuration for the recommenders.
type Config struct {
	Database        DatabaseConfig        `mapstructure:"database"`
	ItemKNN         ItemKNNConfig         `mapstructure:"item_knn"`
	NonPersonalized NonPersonalizedConfig `mapstructure:"non_personalized"`
}

// DatabaseConfig is the configuration for the data store and the cache store. Empty
// stores are disabled.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store"`
	CacheStore  string `mapstructure:"cache_store"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// ItemKNNConfig is the configuration for the item-item model builder and scorer.
type ItemKNNConfig struct {
	NeighborhoodSize int    `mapstructure:"neighborhood_size" validate:"gt=0"`
	ModelSize        int    `mapstructure:"model_size" validate:"gte=0"`
	NumJobs          int    `mapstructure:"n_jobs" validate:"gt=0"`
	BatchSize        int    `mapstructure:"batch_size" validate:"gt=0"`
	Fallback         string `mapstructure:"fallback" validate:"oneof=none user_mean"`
	N                int    `mapstructure:"n" validate:"gt=0"`
}

// NonPersonalizedConfig is the configuration for the "people who liked X also liked" recommender.
type NonPersonalizedConfig struct {
	Liked     string  `mapstructure:"liked" validate:"required"`
	Score     string  `mapstructure:"score" validate:"oneof=lift simple"`
	NumOutput int     `mapstructure:"num_output" validate:"gt=0"`
	Movies    []int64 `mapstructure:"movies"`
}

func GetDefaultConfig() *Config {
	return &Config{
		ItemKNN: ItemKNNConfig{
			NeighborhoodSize: 20,
			ModelSize:        0,
			NumJobs:          1,
			BatchSize:        1024,
			Fallback:         FallbackNone,
			N:                10,
		},
		NonPersonalized: NonPersonalizedConfig{
			Liked:     "rating > 0",
			Score:     ScoreLift,
			NumOutput: 5,
			Movies:    []int64{11, 121, 8587},
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.cache_store", defaultConfig.Database.CacheStore)
	v.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [item_knn]
	v.SetDefault("item_knn.neighborhood_size", defaultConfig.ItemKNN.NeighborhoodSize)
	v.SetDefault("item_knn.model_size", defaultConfig.ItemKNN.ModelSize)
	v.SetDefault("item_knn.n_jobs", defaultConfig.ItemKNN.NumJobs)
	v.SetDefault("item_knn.batch_size", defaultConfig.ItemKNN.BatchSize)
	v.SetDefault("item_knn.fallback", defaultConfig.ItemKNN.Fallback)
	v.SetDefault("item_knn.n", defaultConfig.ItemKNN.N)
	// [non_personalized]
	v.SetDefault("non_personalized.liked", defaultConfig.NonPersonalized.Liked)
	v.SetDefault("non_personalized.score", defaultConfig.NonPersonalized.Score)
	v.SetDefault("non_personalized.num_output", defaultConfig.NonPersonalized.NumOutput)
	v.SetDefault("non_personalized.movies", defaultConfig.NonPersonalized.Movies)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"database.data_store", "RECSYS_DATA_STORE"},
	{"database.cache_store", "RECSYS_CACHE_STORE"},
	{"database.table_prefix", "RECSYS_TABLE_PREFIX"},
	{"item_knn.n_jobs", "RECSYS_NUM_JOBS"},
}

// LoadConfig loads configuration from a TOML file. An empty path yields the defaults.
// Environment variables override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks value ranges.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Annotate(err, "invalid config")
	}
	return nil
}
