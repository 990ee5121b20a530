// Copyright 2022 gorse Project Authors
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

package cache

import (
	"context"
	"database/sql"
	"math"

	"github.com/gorse-io/itemknn/storage"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// Scores is the gorm model of the scores table.
type Scores struct {
	Collection string  `gorm:"column:collection;type:varchar(256);primaryKey;index:scores_subset,priority:1"`
	Subset     string  `gorm:"column:subset;type:varchar(256);primaryKey;index:scores_subset,priority:2"`
	Id         string  `gorm:"column:id;type:varchar(256);primaryKey"`
	Score      float64 `gorm:"column:score;not null;index:scores_subset,priority:3"`
}

// SQLDatabase keeps all lists in a single table.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

func (db *SQLDatabase) Init() error {
	tx := db.gormDB
	if db.driver == MySQL {
		tx = tx.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	return errors.Trace(tx.AutoMigrate(Scores{}))
}

func (db *SQLDatabase) Close() error {
	return db.client.Close()
}

func (db *SQLDatabase) Purge(ctx context.Context) error {
	err := db.gormDB.WithContext(ctx).Exec("DELETE FROM " + db.ScoresTable()).Error
	return errors.Trace(err)
}

func (db *SQLDatabase) SetScores(ctx context.Context, collection, subset string, scores []Score) error {
	// duplicate members keep the last score
	rows := make([]Scores, 0, len(scores))
	index := make(map[string]int, len(scores))
	for _, score := range scores {
		if i, exist := index[score.Id]; exist {
			rows[i].Score = score.Score
			continue
		}
		index[score.Id] = len(rows)
		rows = append(rows, Scores{Collection: collection, Subset: subset, Id: score.Id, Score: score.Score})
	}
	return db.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(db.ScoresTable()).
			Where("collection = ? AND subset = ?", collection, subset).
			Delete(&Scores{}).Error; err != nil {
			return errors.Trace(err)
		}
		if len(rows) == 0 {
			return nil
		}
		return errors.Trace(tx.Table(db.ScoresTable()).Create(&rows).Error)
	})
}

func (db *SQLDatabase) GetScores(ctx context.Context, collection, subset string, begin, end int) ([]Score, error) {
	tx := db.gormDB.WithContext(ctx).Table(db.ScoresTable()).
		Select("id, score").
		Where("collection = ? AND subset = ?", collection, subset).
		Order("score DESC").
		Offset(begin)
	if end >= begin {
		tx = tx.Limit(end - begin + 1)
	} else {
		// OFFSET requires LIMIT in MySQL and SQLite
		tx = tx.Limit(math.MaxInt32)
	}
	rows, err := tx.Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	scores := make([]Score, 0)
	for rows.Next() {
		var score Score
		if err = rows.Scan(&score.Id, &score.Score); err != nil {
			return nil, errors.Trace(err)
		}
		scores = append(scores, score)
	}
	return scores, errors.Trace(rows.Err())
}

func (db *SQLDatabase) ListSubsets(ctx context.Context, collection string) ([]string, error) {
	var subsets []string
	err := db.gormDB.WithContext(ctx).Table(db.ScoresTable()).
		Where("collection = ?", collection).
		Distinct("subset").
		Order("subset").
		Pluck("subset", &subsets).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return subsets, nil
}
