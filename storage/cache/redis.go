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

package cache

import (
	"context"
	"slices"

	"github.com/gorse-io/itemknn/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// Redis keeps each list in a sorted set. Subsets of a collection are tracked in a set.
type Redis struct {
	storage.TablePrefix
	client *redis.Client
}

// Close redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Init nothing.
func (r *Redis) Init() error {
	return nil
}

func (r *Redis) sortedKey(collection, subset string) string {
	return r.Key(collection + "/" + subset)
}

// Purge deletes every key with the table prefix.
func (r *Redis) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		var (
			keys []string
			err  error
		)
		keys, cursor, err = r.client.Scan(ctx, cursor, r.Key("*"), 100).Result()
		if err != nil {
			return errors.Trace(err)
		}
		if len(keys) > 0 {
			if err = r.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Trace(err)
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

// SetScores set scores in sorted set and clear previous scores.
func (r *Redis) SetScores(ctx context.Context, collection, subset string, scores []Score) error {
	members := lo.Map(scores, func(score Score, _ int) redis.Z {
		return redis.Z{Member: score.Id, Score: score.Score}
	})
	key := r.sortedKey(collection, subset)
	pipeline := r.client.TxPipeline()
	pipeline.Del(ctx, key)
	if len(members) > 0 {
		pipeline.ZAdd(ctx, key, members...)
		pipeline.SAdd(ctx, r.Key(collection), subset)
	} else {
		pipeline.SRem(ctx, r.Key(collection), subset)
	}
	_, err := pipeline.Exec(ctx)
	return errors.Trace(err)
}

// GetScores get scores from sorted set.
func (r *Redis) GetScores(ctx context.Context, collection, subset string, begin, end int) ([]Score, error) {
	if end < 0 {
		end = -1
	}
	members, err := r.client.ZRevRangeWithScores(ctx, r.sortedKey(collection, subset), int64(begin), int64(end)).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	results := make([]Score, 0, len(members))
	for _, member := range members {
		results = append(results, Score{Id: member.Member.(string), Score: member.Score})
	}
	return results, nil
}

func (r *Redis) ListSubsets(ctx context.Context, collection string) ([]string, error) {
	subsets, err := r.client.SMembers(ctx, r.Key(collection)).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	slices.Sort(subsets)
	return subsets, nil
}
