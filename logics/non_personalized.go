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

package logics

import (
	"math"
	"reflect"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/itemknn/base/log"
	"github.com/gorse-io/itemknn/config"
	"github.com/gorse-io/itemknn/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ErrNoLikes is returned when nobody likes the target movie.
var ErrNoLikes = errors.New("no user likes the movie")

// NonPersonalized recommends "people who liked X also liked Y" by association scores.
type NonPersonalized struct {
	scoreType string
	numOutput int
	likedFunc *vm.Program
	users     *dataset.FreqDict
	movies    *dataset.FreqDict
	likes     []*bitset.BitSet
}

func NewNonPersonalized(cfg config.NonPersonalizedConfig) (*NonPersonalized, error) {
	// Compile liked expression
	likedFunc, err := expr.Compile(cfg.Liked, expr.Env(map[string]any{
		"rating": float64(0),
		"user":   int64(0),
		"movie":  int64(0),
	}))
	if err != nil {
		return nil, errors.Annotate(err, "compile liked expression")
	}
	if likedFunc.Node().Type().Kind() != reflect.Bool {
		return nil, errors.New("liked expression must return bool")
	}
	switch cfg.Score {
	case config.ScoreLift, config.ScoreSimple:
	default:
		return nil, errors.NotValidf("score %s", cfg.Score)
	}
	return &NonPersonalized{
		scoreType: cfg.Score,
		numOutput: cfg.NumOutput,
		likedFunc: likedFunc,
		users:     dataset.NewFreqDict(),
		movies:    dataset.NewFreqDict(),
	}, nil
}

// Push adds a rating. Every user and movie pushed belongs to the population, liked or not.
// A later rating of the same pair replaces the earlier one.
func (l *NonPersonalized) Push(rating dataset.Rating) {
	userIndex := l.users.Id(rating.UserId)
	movieIndex := l.movies.Id(rating.ItemId)
	l.grow()
	// Evaluate liked function
	result, err := expr.Run(l.likedFunc, map[string]any{
		"rating": rating.Rating,
		"user":   rating.UserId,
		"movie":  rating.ItemId,
	})
	if err != nil {
		log.Logger().Error("evaluate liked function", zap.Error(err))
		return
	}
	if result.(bool) {
		l.likes[movieIndex].Set(uint(userIndex))
	} else {
		l.likes[movieIndex].Clear(uint(userIndex))
	}
}

func (l *NonPersonalized) grow() {
	for len(l.likes) < l.movies.Count() {
		l.likes = append(l.likes, bitset.New(0))
	}
}

// Fit adds all ratings of a dataset. Movies keep their order of first appearance in the
// dataset.
func (l *NonPersonalized) Fit(data *dataset.Dataset) {
	for _, movie := range data.GetItemDict().Values() {
		l.movies.NotCount(movie)
	}
	for _, user := range data.GetUserDict().Values() {
		l.users.NotCount(user)
	}
	l.grow()
	for _, rating := range data.GetRatings() {
		l.Push(rating)
	}
	log.Logger().Info("fit non-personalized recommender",
		zap.Int("n_users", l.users.Count()),
		zap.Int("n_movies", l.movies.Count()))
}

// Score returns the association score of a candidate movie for a target movie.
func (l *NonPersonalized) Score(target, candidate int64) (float64, error) {
	targetIndex, ok := l.movies.Lookup(target)
	if !ok {
		return 0, errors.NotFoundf("movie %d", target)
	}
	candidateIndex, ok := l.movies.Lookup(candidate)
	if !ok {
		return 0, errors.NotFoundf("movie %d", candidate)
	}
	return l.score(targetIndex, candidateIndex)
}

func (l *NonPersonalized) score(targetIndex, candidateIndex int) (float64, error) {
	targetLikes := l.likes[targetIndex]
	candidateLikes := l.likes[candidateIndex]
	x := targetLikes.Count()
	if x == 0 {
		return 0, ErrNoLikes
	}
	both := targetLikes.IntersectionCardinality(candidateLikes)
	numerator := float64(both) / float64(x)
	if l.scoreType == config.ScoreSimple {
		return numerator, nil
	}
	// users who do not like the target but like the candidate
	notX := uint(l.users.Count()) - x
	notBoth := candidateLikes.Count() - both
	if notX == 0 || notBoth == 0 {
		if numerator > 0 {
			return math.Inf(1), nil
		}
		return 0, nil
	}
	return numerator / (float64(notBoth) / float64(notX)), nil
}

// RecommendedFor returns movies with the highest scores for a target movie, excluding
// the target itself and movies liked by nobody. Ties keep the order of first appearance.
func (l *NonPersonalized) RecommendedFor(target int64) ([]Score, error) {
	targetIndex, ok := l.movies.Lookup(target)
	if !ok {
		return nil, errors.NotFoundf("movie %d", target)
	}
	scores := make([]Score, 0, l.movies.Count())
	for candidateIndex, candidate := range l.movies.Values() {
		// movies nobody likes are never "also liked"
		if candidateIndex == targetIndex || l.likes[candidateIndex].None() {
			continue
		}
		score, err := l.score(targetIndex, candidateIndex)
		if err != nil {
			return nil, errors.Trace(err)
		}
		scores = append(scores, Score{Id: candidate, Score: score})
	}
	slices.SortStableFunc(scores, func(a, b Score) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(scores) > l.numOutput {
		scores = scores[:l.numOutput]
	}
	return scores, nil
}
