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
	"strconv"

	"github.com/gorse-io/itemknn/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCommand.AddCommand(scoreCommand)
	scoreCommand.Flags().String("csv", "", "read ratings from a CSV file instead of the data store")
	scoreCommand.Flags().String("sep", ",", "field separator")
	scoreCommand.Flags().IntP("n", "n", 0, "number of recommendations (overrides config)")
}

var scoreCommand = &cobra.Command{
	Use:   "score <user> [items...]",
	Short: "Predict ratings of items for a user, or recommend items if none are given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ids := make([]int64, len(args))
		for i, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return errors.Annotatef(err, "invalid id %s", arg)
			}
			ids[i] = id
		}
		userId, itemIds := ids[0], ids[1:]

		csvPath, _ := cmd.Flags().GetString("csv")
		sep, _ := cmd.Flags().GetString("sep")
		dao, closeDAO, err := openDAO(csvPath, sep)
		if err != nil {
			return errors.Trace(err)
		}
		defer closeDAO()
		var model *logics.ItemToItem
		if csvPath == "" {
			if model, err = loadCachedModel(ctx); err != nil {
				return errors.Trace(err)
			}
		}
		if model == nil {
			if model, err = logics.NewItemToItemBuilder(dao, dao, globalConfig.ItemKNN).Build(ctx); err != nil {
				return errors.Trace(err)
			}
		}
		scorer := logics.NewItemToItemScorer(model, dao, globalConfig.ItemKNN)

		var scores []logics.Score
		if len(itemIds) == 0 {
			n := globalConfig.ItemKNN.N
			if flagN, _ := cmd.Flags().GetInt("n"); flagN > 0 {
				n = flagN
			}
			if scores, err = scorer.Recommend(ctx, userId, n); err != nil {
				return errors.Trace(err)
			}
		} else {
			predictions, err := scorer.Score(ctx, userId, itemIds)
			if err != nil {
				return errors.Trace(err)
			}
			// keep the order of arguments
			scores = lo.FilterMap(lo.Uniq(itemIds), func(itemId int64, _ int) (logics.Score, bool) {
				score, ok := predictions[itemId]
				return logics.Score{Id: itemId, Score: score}, ok
			})
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("item", "score")
		for _, score := range scores {
			if err = table.Append([]string{
				strconv.FormatInt(score.Id, 10),
				strconv.FormatFloat(score.Score, 'f', 4, 64),
			}); err != nil {
				return errors.Trace(err)
			}
		}
		return errors.Trace(table.Render())
	},
}
