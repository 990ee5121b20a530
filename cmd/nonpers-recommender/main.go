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
	"io"
	"os"

	"github.com/gorse-io/itemknn/base/log"
	"github.com/gorse-io/itemknn/cmd/version"
	"github.com/gorse-io/itemknn/config"
	"github.com/gorse-io/itemknn/dataset"
	"github.com/gorse-io/itemknn/logics"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "nonpers-recommender [flags] <ratings.csv>",
		Short: "Print movies that people who liked a movie also liked.",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show version
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
				return nil
			}
			cmd.SilenceUsage = true
			// setup logger
			debug, _ := cmd.Flags().GetBool("debug")
			log.SetLogger(cmd.Flags(), debug)
			// load config
			configPath, _ := cmd.Flags().GetString("config")
			conf, err := config.LoadConfig(configPath)
			if err != nil {
				return errors.Trace(err)
			}
			if cmd.Flags().Changed("movies") {
				conf.NonPersonalized.Movies, _ = cmd.Flags().GetInt64Slice("movies")
			}
			if cmd.Flags().Changed("score") {
				conf.NonPersonalized.Score, _ = cmd.Flags().GetString("score")
			}
			sep, _ := cmd.Flags().GetString("sep")
			return recommend(cmd.OutOrStdout(), args[0], sep, conf.NonPersonalized)
		},
	}
	log.AddFlags(command.Flags())
	command.Flags().Bool("debug", false, "use debug log mode")
	command.Flags().StringP("config", "c", "", "configuration file path")
	command.Flags().BoolP("version", "v", false, "show version")
	command.Flags().Int64Slice("movies", nil, "movies to recommend for")
	command.Flags().String("score", config.ScoreLift, "association score (lift or simple)")
	command.Flags().String("sep", ",", "field separator")
	return command
}

func recommend(w io.Writer, path, sep string, cfg config.NonPersonalizedConfig) error {
	data, err := dataset.LoadRatings(path, sep, dataset.ParseMovieRating)
	if err != nil {
		if data.CountRatings() == 0 {
			return errors.Trace(err)
		}
		log.Logger().Error("failed to read all ratings, continue with partial data",
			zap.Int("n_ratings", data.CountRatings()), zap.Error(err))
	}
	recommender, err := logics.NewNonPersonalized(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	recommender.Fit(data)
	for _, movie := range cfg.Movies {
		scores, err := recommender.RecommendedFor(movie)
		if err != nil {
			log.Logger().Warn("no recommendations", zap.Int64("movie", movie), zap.Error(err))
		}
		if _, err = fmt.Fprintf(w, "%d", movie); err != nil {
			return errors.Trace(err)
		}
		for _, score := range scores {
			if _, err = fmt.Fprintf(w, ",%d,%.2f", score.Id, score.Score); err != nil {
				return errors.Trace(err)
			}
		}
		if _, err = fmt.Fprintln(w); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
