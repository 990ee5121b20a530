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
	"slices"

	"github.com/juju/errors"
)

// Dataset keeps ratings in memory grouped by user. It implements DAO.
type Dataset struct {
	userDict    *FreqDict
	itemDict    *FreqDict
	userRatings [][]Rating
	numRatings  int
}

func NewDataset() *Dataset {
	return &Dataset{
		userDict:    NewFreqDict(),
		itemDict:    NewFreqDict(),
		userRatings: make([][]Rating, 0),
	}
}

// AddRating appends a rating to the history of its user.
func (d *Dataset) AddRating(rating Rating) {
	userIndex := d.userDict.Id(rating.UserId)
	if userIndex == len(d.userRatings) {
		d.userRatings = append(d.userRatings, nil)
	}
	d.itemDict.Id(rating.ItemId)
	d.userRatings[userIndex] = append(d.userRatings[userIndex], rating)
	d.numRatings++
}

// AddItem registers an item without ratings.
func (d *Dataset) AddItem(itemId int64) {
	d.itemDict.NotCount(itemId)
}

func (d *Dataset) CountUsers() int {
	return d.userDict.Count()
}

func (d *Dataset) CountItems() int {
	return d.itemDict.Count()
}

func (d *Dataset) CountRatings() int {
	return d.numRatings
}

// GetUserDict returns users in order of first appearance. Frequencies are rating counts.
func (d *Dataset) GetUserDict() *FreqDict {
	return d.userDict
}

// GetItemDict returns items in order of first appearance. Frequencies are rating counts.
func (d *Dataset) GetItemDict() *FreqDict {
	return d.itemDict
}

// GetRatings returns all ratings grouped by user.
func (d *Dataset) GetRatings() []Rating {
	ratings := make([]Rating, 0, d.numRatings)
	for _, userRatings := range d.userRatings {
		ratings = append(ratings, userRatings...)
	}
	return ratings
}

// GetItemIds returns known item ids in ascending order.
func (d *Dataset) GetItemIds(_ context.Context) ([]int64, error) {
	itemIds := slices.Clone(d.itemDict.Values())
	slices.Sort(itemIds)
	return itemIds, nil
}

func (d *Dataset) StreamEventsByUser(ctx context.Context, batchSize int) (chan []UserHistory, chan error) {
	historyChan := make(chan []UserHistory, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(historyChan)
		defer close(errChan)
		if batchSize <= 0 {
			errChan <- errors.NotValidf("batch size %d", batchSize)
			return
		}
		histories := make([]UserHistory, 0, batchSize)
		for userIndex, userRatings := range d.userRatings {
			userId, _ := d.userDict.Value(userIndex)
			histories = append(histories, UserHistory{UserId: userId, Ratings: userRatings})
			if len(histories) == batchSize {
				select {
				case <-ctx.Done():
					errChan <- errors.Trace(ctx.Err())
					return
				case historyChan <- histories:
				}
				histories = make([]UserHistory, 0, batchSize)
			}
		}
		if len(histories) > 0 {
			select {
			case <-ctx.Done():
				errChan <- errors.Trace(ctx.Err())
				return
			case historyChan <- histories:
			}
		}
		errChan <- nil
	}()
	return historyChan, errChan
}

func (d *Dataset) GetEventsForUser(_ context.Context, userId int64) (UserHistory, error) {
	userIndex, ok := d.userDict.Lookup(userId)
	if !ok {
		return UserHistory{UserId: userId}, nil
	}
	return UserHistory{UserId: userId, Ratings: d.userRatings[userIndex]}, nil
}
