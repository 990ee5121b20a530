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
	"github.com/gorse-io/itemknn/dataset"
	"github.com/gorse-io/itemknn/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(importCommand)
	importCommand.Flags().String("sep", ",", "field separator")
	importCommand.Flags().Bool("purge", false, "remove existing ratings before import")
}

var importCommand = &cobra.Command{
	Use:   "import <ratings.csv>",
	Short: "Import ratings into the data store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sep, _ := cmd.Flags().GetString("sep")
		ratings, err := dataset.LoadRatings(args[0], sep, dataset.ParseRating)
		if err != nil {
			if ratings.CountRatings() == 0 {
				return errors.Trace(err)
			}
			log.Logger().Error("failed to read all ratings, continue with partial data", zap.Error(err))
		}
		if globalConfig.Database.DataStore == "" {
			return errors.NotValidf("empty data store")
		}
		database, err := data.Open(globalConfig.Database.DataStore, globalConfig.Database.TablePrefix)
		if err != nil {
			return errors.Trace(err)
		}
		defer database.Close()
		if err = database.Init(); err != nil {
			return errors.Trace(err)
		}
		if purge, _ := cmd.Flags().GetBool("purge"); purge {
			if err = database.Purge(); err != nil {
				return errors.Trace(err)
			}
		}
		// insert items first so that items without ratings are kept
		itemIds, err := ratings.GetItemIds(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		if err = database.BatchInsertItems(ctx, itemIds); err != nil {
			return errors.Trace(err)
		}
		bar := progressbar.Default(int64(ratings.CountRatings()), "import ratings")
		for _, chunk := range lo.Chunk(ratings.GetRatings(), globalConfig.ItemKNN.BatchSize) {
			if err = database.BatchInsertRatings(ctx, chunk); err != nil {
				return errors.Trace(err)
			}
			_ = bar.Add(len(chunk))
		}
		_ = bar.Finish()
		count, err := database.CountRatings(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d ratings, %d ratings in data store\n", ratings.CountRatings(), count)
		return errors.Trace(err)
	},
}
