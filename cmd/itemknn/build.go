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
	"fmt"

	"github.com/gorse-io/itemknn/base/log"
	"github.com/gorse-io/itemknn/logics"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCommand.AddCommand(buildCommand)
	buildCommand.Flags().String("csv", "", "read ratings from a CSV file instead of the data store")
	buildCommand.Flags().String("sep", ",", "field separator")
	buildCommand.Flags().Int("n-jobs", 0, "number of jobs (overrides config)")
	buildCommand.Flags().Bool("progress", true, "show progress bar")
}

var buildCommand = &cobra.Command{
	Use:   "build",
	Short: "Build the item-item model and save it to the cache store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		csvPath, _ := cmd.Flags().GetString("csv")
		sep, _ := cmd.Flags().GetString("sep")
		dao, closeDAO, err := openDAO(csvPath, sep)
		if err != nil {
			return errors.Trace(err)
		}
		defer closeDAO()

		cfg := globalConfig.ItemKNN
		if nJobs, _ := cmd.Flags().GetInt("n-jobs"); nJobs > 0 {
			cfg.NumJobs = nJobs
		}
		builder := logics.NewItemToItemBuilder(dao, dao, cfg)
		progress, _ := cmd.Flags().GetBool("progress")
		builder.SetProgress(progress)
		model, err := builder.Build(ctx)
		if err != nil {
			return errors.Trace(err)
		}

		database, err := openCache()
		if err != nil {
			return errors.Trace(err)
		}
		if database == nil {
			log.Logger().Warn("cache store is not configured, model is not saved")
		} else {
			defer database.Close()
			if err = model.Save(ctx, database); err != nil {
				return errors.Trace(err)
			}
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "built %d items with %d neighbors\n", len(model.Items()), model.CountPairs())
		return errors.Trace(err)
	},
}
