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
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gorse-io/itemknn/base"
	"github.com/gorse-io/itemknn/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// DefaultRating is assigned to rows without a rating column.
const DefaultRating = 1.0

// RatingParser converts the fields of a row to a rating.
type RatingParser func(fields []string) (Rating, error)

// ParseRating parses fields `user,item[,rating[,...]]`. Extra fields such as timestamps
// are ignored.
func ParseRating(fields []string) (Rating, error) {
	if len(fields) < 2 {
		return Rating{}, errors.NotValidf("row with %d fields", len(fields))
	}
	userId, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Rating{}, errors.Annotate(err, "invalid user id")
	}
	itemId, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return Rating{}, errors.Annotate(err, "invalid item id")
	}
	rating := Rating{UserId: userId, ItemId: itemId, Rating: DefaultRating}
	if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
		if rating.Rating, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
			return Rating{}, errors.Annotate(err, "invalid rating")
		}
	}
	return rating, nil
}

// ParseMovieRating parses fields `user,movieRating[,rating[,...]]`. A row of two fields
// uses its second field both as the movie and as the rating, so a non-positive value is
// a rating below the liked threshold.
func ParseMovieRating(fields []string) (Rating, error) {
	rating, err := ParseRating(fields)
	if err != nil {
		return Rating{}, errors.Trace(err)
	}
	if len(fields) == 2 || strings.TrimSpace(fields[2]) == "" {
		rating.Rating = float64(rating.ItemId)
	}
	return rating, nil
}

// ReadRatings reads ratings into the dataset. Malformed rows are logged and skipped; an
// unparsable first row is treated as a header. Ratings read before an I/O error are kept.
func ReadRatings(r io.Reader, sep string, parse RatingParser, dataset *Dataset) error {
	sc := bufio.NewScanner(r)
	err := base.ReadLines(sc, sep, func(lineNumber int, fields []string) bool {
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		rating, err := parse(fields)
		if err != nil {
			if lineNumber == 0 {
				log.Logger().Debug("skip header", zap.Strings("fields", fields))
			} else {
				log.Logger().Warn("skip malformed row", zap.Int("line", lineNumber+1), zap.Error(err))
			}
			return true
		}
		dataset.AddRating(rating)
		return true
	})
	return errors.Trace(err)
}

// LoadRatings reads ratings from a file. The returned dataset is never nil: it holds
// whatever was read before an error occurred.
func LoadRatings(path, sep string, parse RatingParser) (*Dataset, error) {
	dataset := NewDataset()
	file, err := os.Open(path)
	if err != nil {
		return dataset, errors.Trace(err)
	}
	defer file.Close()
	if err = ReadRatings(file, sep, parse, dataset); err != nil {
		return dataset, errors.Trace(err)
	}
	log.Logger().Info("load ratings",
		zap.String("path", path),
		zap.Int("n_users", dataset.CountUsers()),
		zap.Int("n_items", dataset.CountItems()),
		zap.Int("n_ratings", dataset.CountRatings()))
	return dataset, nil
}
