// Copyright 2025 gorse Project Authors
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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gorse-io/itemknn/base/log"
	"github.com/gorse-io/itemknn/cmd/version"
	"github.com/gorse-io/itemknn/config"
	"github.com/gorse-io/itemknn/dataset"
	"github.com/gorse-io/itemknn/logics"
	"github.com/gorse-io/itemknn/storage/cache"
	"github.com/gorse-io/itemknn/storage/data"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var globalConfig *config.Config

var rootCommand = &cobra.Command{
	Use:   "itemknn",
	Short: "Item-item collaborative filtering.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		// load config
		configPath, _ := cmd.Flags().GetString("config")
		var err error
		if globalConfig, err = config.LoadConfig(configPath); err != nil {
			return errors.Trace(err)
		}
		log.Logger().Debug("load config",
			zap.String("config", configPath),
			zap.String("data_store", log.RedactDBURL(globalConfig.Database.DataStore)),
			zap.String("cache_store", log.RedactDBURL(globalConfig.Database.CacheStore)))
		cmd.SilenceUsage = true
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.Flags().BoolP("version", "v", false, "show version")
}

// openDAO reads ratings from a CSV file if given, otherwise connects to the data store.
func openDAO(csvPath, sep string) (dataset.DAO, func() error, error) {
	if csvPath != "" {
		ratings, err := dataset.LoadRatings(csvPath, sep, dataset.ParseRating)
		if err != nil {
			if ratings.CountRatings() == 0 {
				return nil, nil, errors.Trace(err)
			}
			log.Logger().Error("failed to read all ratings, continue with partial data",
				zap.Int("n_ratings", ratings.CountRatings()), zap.Error(err))
		}
		return ratings, func() error { return nil }, nil
	}
	if globalConfig.Database.DataStore == "" {
		return nil, nil, errors.NotValidf("empty data store")
	}
	database, err := data.Open(globalConfig.Database.DataStore, globalConfig.Database.TablePrefix)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	if err = database.Init(); err != nil {
		_ = database.Close()
		return nil, nil, errors.Trace(err)
	}
	return database, database.Close, nil
}

// openCache connects to the cache store. It returns nil if no cache store is configured.
func openCache() (cache.Database, error) {
	if globalConfig.Database.CacheStore == "" {
		return nil, nil
	}
	database, err := cache.Open(globalConfig.Database.CacheStore, globalConfig.Database.TablePrefix)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = database.Init(); err != nil {
		_ = database.Close()
		return nil, errors.Trace(err)
	}
	return database, nil
}

// loadCachedModel loads the model from the cache store. It returns nil if there is no
// cache store or no model in it.
func loadCachedModel(ctx context.Context) (*logics.ItemToItem, error) {
	database, err := openCache()
	if err != nil || database == nil {
		return nil, errors.Trace(err)
	}
	defer database.Close()
	model, err := logics.LoadItemToItem(ctx, database)
	if errors.Is(err, errors.NotFound) {
		log.Logger().Info("no model in cache store, build from ratings")
		return nil, nil
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return model, nil
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
