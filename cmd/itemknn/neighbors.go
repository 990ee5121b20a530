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
	"github.com/spf13/cobra"
)

func init() {
	rootCommand.AddCommand(neighborsCommand)
	neighborsCommand.Flags().String("csv", "", "build the model from a CSV file instead of loading it")
	neighborsCommand.Flags().String("sep", ",", "field separator")
	neighborsCommand.Flags().IntP("n", "n", 10, "number of neighbors to show")
}

var neighborsCommand = &cobra.Command{
	Use:   "neighbors <item>",
	Short: "Show the most similar items of an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		itemId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errors.Annotate(err, "invalid item id")
		}
		csvPath, _ := cmd.Flags().GetString("csv")
		sep, _ := cmd.Flags().GetString("sep")
		var model *logics.ItemToItem
		if csvPath == "" {
			if model, err = loadCachedModel(ctx); err != nil {
				return errors.Trace(err)
			}
		}
		if model == nil {
			dao, closeDAO, err := openDAO(csvPath, sep)
			if err != nil {
				return errors.Trace(err)
			}
			defer closeDAO()
			if model, err = logics.NewItemToItemBuilder(dao, dao, globalConfig.ItemKNN).Build(ctx); err != nil {
				return errors.Trace(err)
			}
		}
		neighbors := model.GetNeighbors(itemId)
		if n, _ := cmd.Flags().GetInt("n"); n > 0 && len(neighbors) > n {
			neighbors = neighbors[:n]
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("rank", "item", "similarity")
		for i, neighbor := range neighbors {
			if err = table.Append([]string{
				strconv.Itoa(i + 1),
				strconv.FormatInt(neighbor.Id, 10),
				strconv.FormatFloat(neighbor.Score, 'f', 4, 64),
			}); err != nil {
				return errors.Trace(err)
			}
		}
		return errors.Trace(table.Render())
	},
}
