// Copyright 2020 gorse Project Authors
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

package data

import (
	"context"
	"database/sql"

	"github.com/gorse-io/itemknn/dataset"
	"github.com/gorse-io/itemknn/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const bufSize = 1

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// Items is the gorm model of the items table.
type Items struct {
	ItemId int64 `gorm:"column:item_id;primaryKey;autoIncrement:false"`
}

// Ratings is the gorm model of the ratings table.
type Ratings struct {
	UserId int64   `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	ItemId int64   `gorm:"column:item_id;primaryKey;autoIncrement:false;index"`
	Rating float64 `gorm:"column:rating;not null"`
}

// SQLDatabase keeps ratings in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init creates tables if they do not exist.
func (d *SQLDatabase) Init() error {
	tx := d.gormDB
	if d.driver == MySQL {
		tx = tx.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := tx.AutoMigrate(Items{}, Ratings{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Close the connection.
func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge removes all items and ratings.
func (d *SQLDatabase) Purge() error {
	for _, table := range []string{d.RatingsTable(), d.ItemsTable()} {
		if err := d.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// BatchInsertItems inserts items. Existing items are left untouched.
func (d *SQLDatabase) BatchInsertItems(ctx context.Context, itemIds []int64) error {
	if len(itemIds) == 0 {
		return nil
	}
	rows := lo.Map(lo.Uniq(itemIds), func(itemId int64, _ int) Items {
		return Items{ItemId: itemId}
	})
	err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	return errors.Trace(err)
}

// BatchInsertRatings inserts ratings and their items. A rating of an existing (user, item)
// pair replaces the previous one.
func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	// the last rating of a pair wins
	index := make(map[lo.Tuple2[int64, int64]]int, len(ratings))
	rows := make([]Ratings, 0, len(ratings))
	for _, rating := range ratings {
		key := lo.Tuple2[int64, int64]{A: rating.UserId, B: rating.ItemId}
		if i, exist := index[key]; exist {
			rows[i].Rating = rating.Rating
			continue
		}
		index[key] = len(rows)
		rows = append(rows, Ratings{UserId: rating.UserId, ItemId: rating.ItemId, Rating: rating.Rating})
	}
	itemIds := lo.Map(ratings, func(rating dataset.Rating, _ int) int64 {
		return rating.ItemId
	})
	if err := d.BatchInsertItems(ctx, itemIds); err != nil {
		return errors.Trace(err)
	}
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating"}),
		}).
		Create(&rows).Error
	return errors.Trace(err)
}

// CountRatings returns the number of stored ratings.
func (d *SQLDatabase) CountRatings(ctx context.Context) (int, error) {
	var count int64
	if err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Count(&count).Error; err != nil {
		return 0, errors.Trace(err)
	}
	return int(count), nil
}

// GetItemIds returns known item ids in ascending order.
func (d *SQLDatabase) GetItemIds(ctx context.Context) ([]int64, error) {
	var itemIds []int64
	err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).
		Order("item_id").
		Pluck("item_id", &itemIds).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return itemIds, nil
}

// StreamEventsByUser scans ratings ordered by user and groups them into histories.
func (d *SQLDatabase) StreamEventsByUser(ctx context.Context, batchSize int) (chan []dataset.UserHistory, chan error) {
	historyChan := make(chan []dataset.UserHistory, bufSize)
	errChan := make(chan error, 1)
	go func() {
		defer close(historyChan)
		defer close(errChan)
		if batchSize <= 0 {
			errChan <- errors.NotValidf("batch size %d", batchSize)
			return
		}
		// send query
		result, err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
			Select("user_id, item_id, rating").
			Order("user_id, item_id").
			Rows()
		if err != nil {
			errChan <- errors.Trace(err)
			return
		}
		defer result.Close()
		// fetch result
		histories := make([]dataset.UserHistory, 0, batchSize)
		send := func() bool {
			select {
			case <-ctx.Done():
				errChan <- errors.Trace(ctx.Err())
				return false
			case historyChan <- histories:
				histories = make([]dataset.UserHistory, 0, batchSize)
				return true
			}
		}
		var current *dataset.UserHistory
		for result.Next() {
			var rating dataset.Rating
			if err = result.Scan(&rating.UserId, &rating.ItemId, &rating.Rating); err != nil {
				errChan <- errors.Trace(err)
				return
			}
			if current == nil || current.UserId != rating.UserId {
				if current != nil {
					histories = append(histories, *current)
					if len(histories) == batchSize && !send() {
						return
					}
				}
				current = &dataset.UserHistory{UserId: rating.UserId}
			}
			current.Ratings = append(current.Ratings, rating)
		}
		if err = result.Err(); err != nil {
			errChan <- errors.Trace(err)
			return
		}
		if current != nil {
			histories = append(histories, *current)
		}
		if len(histories) > 0 && !send() {
			return
		}
		errChan <- nil
	}()
	return historyChan, errChan
}

// GetEventsForUser returns ratings of a user. Unknown users have an empty history.
func (d *SQLDatabase) GetEventsForUser(ctx context.Context, userId int64) (dataset.UserHistory, error) {
	history := dataset.UserHistory{UserId: userId}
	result, err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Select("user_id, item_id, rating").
		Where("user_id = ?", userId).
		Order("item_id").
		Rows()
	if err != nil {
		return history, errors.Trace(err)
	}
	defer result.Close()
	for result.Next() {
		var rating dataset.Rating
		if err = result.Scan(&rating.UserId, &rating.ItemId, &rating.Rating); err != nil {
			return history, errors.Trace(err)
		}
		history.Ratings = append(history.Ratings, rating)
	}
	return history, errors.Trace(result.Err())
}
