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
	"slices"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/itemknn/base"
	"github.com/gorse-io/itemknn/base/heap"
	"github.com/gorse-io/itemknn/base/log"
	"github.com/gorse-io/itemknn/common/parallel"
	"github.com/gorse-io/itemknn/config"
	"github.com/gorse-io/itemknn/dataset"
	"github.com/gorse-io/itemknn/storage/cache"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Neighbor is a similar item and its similarity.
type Neighbor struct {
	Id    int64
	Score float64
}

// ItemToItemBuilder builds item-item models from rating histories.
type ItemToItemBuilder struct {
	items    dataset.ItemDAO
	events   dataset.UserEventDAO
	cfg      config.ItemKNNConfig
	progress bool
}

func NewItemToItemBuilder(items dataset.ItemDAO, events dataset.UserEventDAO, cfg config.ItemKNNConfig) *ItemToItemBuilder {
	return &ItemToItemBuilder{items: items, events: events, cfg: cfg}
}

// SetProgress enables the progress bar on standard error.
func (b *ItemToItemBuilder) SetProgress(progress bool) {
	b.progress = progress
}

// ItemVectors returns a vector per item mapping users to mean-centered ratings. Items
// rated but missing from the item list are included.
func (b *ItemToItemBuilder) ItemVectors(ctx context.Context) (map[int64]*base.SparseVector, error) {
	itemIds, err := b.items.GetItemIds(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	accumulators := make(map[int64]map[int64]float64, len(itemIds))
	for _, itemId := range itemIds {
		accumulators[itemId] = make(map[int64]float64)
	}
	unlisted := mapset.NewThreadUnsafeSet[int64]()
	numUsers := 0
	historyChan, errChan := b.events.StreamEventsByUser(ctx, b.cfg.BatchSize)
	for histories := range historyChan {
		for _, history := range histories {
			ratings := history.RatingVector()
			if ratings.Len() == 0 {
				continue
			}
			numUsers++
			mean := ratings.Mean()
			ratings.ForEach(func(_ int, itemId int64, rating float64) {
				accumulator, exist := accumulators[itemId]
				if !exist {
					unlisted.Add(itemId)
					accumulator = make(map[int64]float64)
					accumulators[itemId] = accumulator
				}
				accumulator[history.UserId] = rating - mean
			})
		}
	}
	if err = <-errChan; err != nil {
		return nil, errors.Trace(err)
	}
	if unlisted.Cardinality() > 0 {
		log.Logger().Warn("rated items missing from item list",
			zap.Int("n_items", unlisted.Cardinality()))
	}
	vectors := make(map[int64]*base.SparseVector, len(accumulators))
	for itemId, accumulator := range accumulators {
		vectors[itemId] = base.NewSparseVectorFromMap(accumulator)
	}
	log.Logger().Debug("collect item vectors",
		zap.Int("n_items", len(vectors)),
		zap.Int("n_users", numUsers))
	return vectors, nil
}

// Build computes positive adjusted cosine similarities between all pairs of items.
func (b *ItemToItemBuilder) Build(ctx context.Context) (*ItemToItem, error) {
	start := time.Now()
	vectors, err := b.ItemVectors(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	itemIds := lo.Keys(vectors)
	slices.Sort(itemIds)

	var bar *progressbar.ProgressBar
	if b.progress {
		bar = progressbar.Default(int64(len(itemIds)), "build item-item model")
	}
	rows := make([][]Neighbor, len(itemIds))
	err = parallel.Parallel(ctx, len(itemIds), b.cfg.NumJobs, func(_, jobId int) error {
		itemId := itemIds[jobId]
		vector := vectors[itemId]
		filter := heap.NewTopKFilter[int64, float64](b.cfg.ModelSize)
		for _, otherId := range itemIds {
			if otherId == itemId {
				continue
			}
			if score := base.CosineSimilarity(vector, vectors[otherId]); score > 0 {
				filter.Push(otherId, score)
			}
		}
		rows[jobId] = lo.Map(filter.PopAll(), func(elem heap.Elem[int64, float64], _ int) Neighbor {
			return Neighbor{Id: elem.Value, Score: elem.Weight}
		})
		if bar != nil {
			_ = bar.Add(1)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	neighbors := make(map[int64][]Neighbor, len(itemIds))
	for i, itemId := range itemIds {
		neighbors[itemId] = rows[i]
	}
	model := NewItemToItem(neighbors)
	log.Logger().Info("build item-item model",
		zap.Int("n_items", len(itemIds)),
		zap.Int("n_pairs", model.CountPairs()),
		zap.Duration("used_time", time.Since(start)))
	return model, nil
}

// ItemToItem is an immutable item-item similarity table.
type ItemToItem struct {
	neighbors map[int64][]Neighbor
	items     []int64
}

// NewItemToItem creates a model. Neighbor lists are sorted by descending score.
func NewItemToItem(neighbors map[int64][]Neighbor) *ItemToItem {
	for _, list := range neighbors {
		slices.SortStableFunc(list, func(a, b Neighbor) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			default:
				return 0
			}
		})
	}
	items := lo.Keys(neighbors)
	slices.Sort(items)
	return &ItemToItem{neighbors: neighbors, items: items}
}

// GetNeighbors returns neighbors of an item by descending similarity. Unknown items
// have no neighbors.
func (m *ItemToItem) GetNeighbors(itemId int64) []Neighbor {
	return m.neighbors[itemId]
}

// Items returns items in the model in ascending order.
func (m *ItemToItem) Items() []int64 {
	return m.items
}

func (m *ItemToItem) CountPairs() int {
	count := 0
	for _, list := range m.neighbors {
		count += len(list)
	}
	return count
}

// Save writes the item list and every neighbor list to the cache.
func (m *ItemToItem) Save(ctx context.Context, db cache.Database) error {
	items := make([]cache.Score, 0, len(m.items))
	for _, itemId := range m.items {
		list := m.neighbors[itemId]
		scores := lo.Map(list, func(neighbor Neighbor, _ int) cache.Score {
			return cache.Score{Id: strconv.FormatInt(neighbor.Id, 10), Score: neighbor.Score}
		})
		if err := db.SetScores(ctx, cache.Neighbors, strconv.FormatInt(itemId, 10), scores); err != nil {
			return errors.Trace(err)
		}
		items = append(items, cache.Score{Id: strconv.FormatInt(itemId, 10), Score: float64(len(list))})
	}
	return errors.Trace(db.SetScores(ctx, cache.ModelItems, cache.ModelItems, items))
}

// LoadItemToItem reads a model written by Save.
func LoadItemToItem(ctx context.Context, db cache.Database) (*ItemToItem, error) {
	items, err := db.GetScores(ctx, cache.ModelItems, cache.ModelItems, 0, -1)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(items) == 0 {
		return nil, errors.NotFoundf("item-item model")
	}
	neighbors := make(map[int64][]Neighbor, len(items))
	for _, item := range items {
		itemId, err := strconv.ParseInt(item.Id, 10, 64)
		if err != nil {
			return nil, errors.Annotatef(err, "item %s", item.Id)
		}
		list := make([]Neighbor, 0, int(item.Score))
		if item.Score > 0 {
			scores, err := db.GetScores(ctx, cache.Neighbors, item.Id, 0, -1)
			if err != nil {
				return nil, errors.Trace(err)
			}
			for _, score := range scores {
				neighborId, err := strconv.ParseInt(score.Id, 10, 64)
				if err != nil {
					return nil, errors.Annotatef(err, "neighbor %s of item %s", score.Id, item.Id)
				}
				list = append(list, Neighbor{Id: neighborId, Score: score.Score})
			}
		}
		neighbors[itemId] = list
	}
	return NewItemToItem(neighbors), nil
}
