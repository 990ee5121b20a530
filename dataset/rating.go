// Copyright 2024 gorse Project Authors
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

package dataset

import (
	"context"

	"github.com/gorse-io/itemknn/base"
)

// Rating is an explicit rating of an item by a user.
type Rating struct {
	UserId int64
	ItemId int64
	Rating float64
}

// UserHistory is the rating history of a single user in input order.
type UserHistory struct {
	UserId  int64
	Ratings []Rating
}

// RatingVector summarizes the history as item -> rating. Later ratings of the same item
// replace earlier ones.
func (h UserHistory) RatingVector() *base.SparseVector {
	ratings := make(map[int64]float64, len(h.Ratings))
	for _, rating := range h.Ratings {
		ratings[rating.ItemId] = rating.Rating
	}
	return base.NewSparseVectorFromMap(ratings)
}

// ItemDAO enumerates known items.
type ItemDAO interface {
	GetItemIds(ctx context.Context) ([]int64, error)
}

// UserEventDAO provides rating histories grouped by user.
type UserEventDAO interface {
	// StreamEventsByUser sends every user history exactly once in batches of at most
	// batchSize. The error channel receives nil after the last batch.
	StreamEventsByUser(ctx context.Context, batchSize int) (chan []UserHistory, chan error)
	// GetEventsForUser returns the history of a user. Unknown users have an empty history.
	GetEventsForUser(ctx context.Context, userId int64) (UserHistory, error)
}

// DAO is the data access required by the item-item model builder and scorer.
type DAO interface {
	ItemDAO
	UserEventDAO
}
