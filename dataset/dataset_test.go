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
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func collectHistories(t *testing.T, dao UserEventDAO, batchSize int) []UserHistory {
	histories := make([]UserHistory, 0)
	historyChan, errChan := dao.StreamEventsByUser(context.Background(), batchSize)
	for batch := range historyChan {
		assert.LessOrEqual(t, len(batch), batchSize)
		histories = append(histories, batch...)
	}
	assert.NoError(t, <-errChan)
	return histories
}

func TestDataset(t *testing.T) {
	dataset := NewDataset()
	dataset.AddRating(Rating{UserId: 1, ItemId: 10, Rating: 5})
	dataset.AddRating(Rating{UserId: 2, ItemId: 10, Rating: 3})
	dataset.AddRating(Rating{UserId: 1, ItemId: 30, Rating: 4})
	dataset.AddRating(Rating{UserId: 3, ItemId: 20, Rating: 1})
	dataset.AddItem(40)
	assert.Equal(t, 3, dataset.CountUsers())
	assert.Equal(t, 4, dataset.CountItems())
	assert.Equal(t, 4, dataset.CountRatings())
	assert.Equal(t, []int64{10, 30, 20, 40}, dataset.GetItemDict().Values())
	assert.Equal(t, []Rating{
		{UserId: 1, ItemId: 10, Rating: 5},
		{UserId: 1, ItemId: 30, Rating: 4},
		{UserId: 2, ItemId: 10, Rating: 3},
		{UserId: 3, ItemId: 20, Rating: 1},
	}, dataset.GetRatings())

	itemIds, err := dataset.GetItemIds(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30, 40}, itemIds)

	histories := collectHistories(t, dataset, 2)
	assert.Equal(t, []UserHistory{
		{UserId: 1, Ratings: []Rating{{UserId: 1, ItemId: 10, Rating: 5}, {UserId: 1, ItemId: 30, Rating: 4}}},
		{UserId: 2, Ratings: []Rating{{UserId: 2, ItemId: 10, Rating: 3}}},
		{UserId: 3, Ratings: []Rating{{UserId: 3, ItemId: 20, Rating: 1}}},
	}, histories)

	history, err := dataset.GetEventsForUser(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, history.Ratings, 2)
	history, err = dataset.GetEventsForUser(context.Background(), 100)
	assert.NoError(t, err)
	assert.Equal(t, UserHistory{UserId: 100}, history)
}

func TestDataset_StreamInvalidBatchSize(t *testing.T) {
	dataset := NewDataset()
	dataset.AddRating(Rating{UserId: 1, ItemId: 10, Rating: 5})
	historyChan, errChan := dataset.StreamEventsByUser(context.Background(), 0)
	for range historyChan {
		t.Fatal("unexpected batch")
	}
	assert.True(t, errors.Is(<-errChan, errors.NotValid))
}

func TestDataset_StreamCancel(t *testing.T) {
	dataset := NewDataset()
	for i := int64(0); i < 10; i++ {
		dataset.AddRating(Rating{UserId: i, ItemId: 10, Rating: 5})
	}
	ctx, cancel := context.WithCancel(context.Background())
	historyChan, errChan := dataset.StreamEventsByUser(ctx, 1)
	<-historyChan
	cancel()
	// at most one more batch fits in the buffer before the producer observes cancellation
	assert.ErrorIs(t, <-errChan, context.Canceled)
}

func TestUserHistory_RatingVector(t *testing.T) {
	history := UserHistory{UserId: 1, Ratings: []Rating{
		{UserId: 1, ItemId: 30, Rating: 2},
		{UserId: 1, ItemId: 10, Rating: 5},
		{UserId: 1, ItemId: 30, Rating: 4},
	}}
	vec := history.RatingVector()
	assert.Equal(t, []int64{10, 30}, vec.Indices)
	assert.Equal(t, []float64{5, 4}, vec.Values)
	assert.Zero(t, UserHistory{}.RatingVector().Len())
}

func TestParseRating(t *testing.T) {
	rating, err := ParseRating([]string{"1", "11", "4.5", "978300760"})
	assert.NoError(t, err)
	assert.Equal(t, Rating{UserId: 1, ItemId: 11, Rating: 4.5}, rating)
	rating, err = ParseRating([]string{" 2", "121 "})
	assert.NoError(t, err)
	assert.Equal(t, Rating{UserId: 2, ItemId: 121, Rating: DefaultRating}, rating)
	_, err = ParseRating([]string{"1"})
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ParseRating([]string{"userId", "movieId"})
	assert.Error(t, err)
	_, err = ParseRating([]string{"1", "movie"})
	assert.Error(t, err)
	_, err = ParseRating([]string{"1", "11", "five"})
	assert.Error(t, err)
}

func TestParseMovieRating(t *testing.T) {
	rating, err := ParseMovieRating([]string{"1", "11"})
	assert.NoError(t, err)
	assert.Equal(t, Rating{UserId: 1, ItemId: 11, Rating: 11}, rating)
	rating, err = ParseMovieRating([]string{"1", "-3"})
	assert.NoError(t, err)
	assert.Equal(t, Rating{UserId: 1, ItemId: -3, Rating: -3}, rating)
	rating, err = ParseMovieRating([]string{"1", "11", "0"})
	assert.NoError(t, err)
	assert.Equal(t, Rating{UserId: 1, ItemId: 11, Rating: 0}, rating)
	rating, err = ParseMovieRating([]string{"1", "11", ""})
	assert.NoError(t, err)
	assert.Equal(t, Rating{UserId: 1, ItemId: 11, Rating: 11}, rating)
	_, err = ParseMovieRating([]string{"1"})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestReadRatings(t *testing.T) {
	text := "userId,movieId,rating\n1,11,5\n\n1,121,x\n2,11,3\nbad\n"
	dataset := NewDataset()
	err := ReadRatings(strings.NewReader(text), ",", ParseRating, dataset)
	assert.NoError(t, err)
	assert.Equal(t, 2, dataset.CountUsers())
	assert.Equal(t, []Rating{
		{UserId: 1, ItemId: 11, Rating: 5},
		{UserId: 2, ItemId: 11, Rating: 3},
	}, dataset.GetRatings())
}

func TestReadRatings_PartialData(t *testing.T) {
	r := io.MultiReader(strings.NewReader("1,11,5\n2,121,4\n"), iotest.ErrReader(io.ErrUnexpectedEOF))
	dataset := NewDataset()
	err := ReadRatings(r, ",", ParseRating, dataset)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 2, dataset.CountRatings())
}

func TestLoadRatings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.csv")
	assert.NoError(t, os.WriteFile(path, []byte("1,11\n1,121\n2,11\n"), 0644))
	dataset, err := LoadRatings(path, ",", ParseRating)
	assert.NoError(t, err)
	assert.Equal(t, 2, dataset.CountUsers())
	assert.Equal(t, []int64{11, 121}, dataset.GetItemDict().Values())

	dataset, err = LoadRatings(filepath.Join(t.TempDir(), "missing.csv"), ",", ParseRating)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotNil(t, dataset)
	assert.Zero(t, dataset.CountRatings())
}
