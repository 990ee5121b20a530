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
	"context"

	"github.com/gorse-io/itemknn/base"
	"github.com/gorse-io/itemknn/base/heap"
	"github.com/gorse-io/itemknn/config"
	"github.com/gorse-io/itemknn/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Score is a scored item.
type Score struct {
	Id    int64
	Score float64
}

// ItemToItemScorer predicts ratings by the weighted average of ratings on similar items.
type ItemToItemScorer struct {
	model            *ItemToItem
	events           dataset.UserEventDAO
	neighborhoodSize int
	fallback         string
}

func NewItemToItemScorer(model *ItemToItem, events dataset.UserEventDAO, cfg config.ItemKNNConfig) *ItemToItemScorer {
	return &ItemToItemScorer{
		model:            model,
		events:           events,
		neighborhoodSize: cfg.NeighborhoodSize,
		fallback:         cfg.Fallback,
	}
}

// Score predicts ratings of items for a user. Items without prediction are absent from
// the result.
func (s *ItemToItemScorer) Score(ctx context.Context, userId int64, itemIds []int64) (map[int64]float64, error) {
	history, err := s.events.GetEventsForUser(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ratings := history.RatingVector()
	scores := make(map[int64]float64, len(itemIds))
	for _, itemId := range itemIds {
		if score, ok := s.predict(ratings, itemId); ok {
			scores[itemId] = score
		}
	}
	return scores, nil
}

// Recommend returns the top n predictions among items the user has not rated.
func (s *ItemToItemScorer) Recommend(ctx context.Context, userId int64, n int) ([]Score, error) {
	history, err := s.events.GetEventsForUser(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ratings := history.RatingVector()
	filter := heap.NewTopKFilter[int64, float64](n)
	for _, itemId := range s.model.Items() {
		if ratings.Contains(itemId) {
			continue
		}
		if score, ok := s.predict(ratings, itemId); ok {
			filter.Push(itemId, score)
		}
	}
	return lo.Map(filter.PopAll(), func(elem heap.Elem[int64, float64], _ int) Score {
		return Score{Id: elem.Value, Score: elem.Weight}
	}), nil
}

func (s *ItemToItemScorer) predict(ratings *base.SparseVector, itemId int64) (float64, bool) {
	var sum, weights float64
	used := 0
	for _, neighbor := range s.model.GetNeighbors(itemId) {
		if used >= s.neighborhoodSize {
			break
		}
		// unrated neighbors are not counted
		rating, ok := ratings.Get(neighbor.Id)
		if !ok {
			continue
		}
		sum += neighbor.Score * rating
		weights += neighbor.Score
		used++
	}
	if used > 0 && weights > 0 {
		return sum / weights, true
	}
	if s.fallback == config.FallbackUserMean && ratings.Len() > 0 {
		return ratings.Mean(), true
	}
	return 0, false
}
