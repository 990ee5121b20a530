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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) SetupTest() {
	err := suite.Database.Purge(context.Background())
	suite.NoError(err)
}

func (suite *baseTestSuite) TearDownSuite() {
	err := suite.Database.Close()
	suite.NoError(err)
}

func (suite *baseTestSuite) TestScores() {
	ctx := context.Background()
	scores := []Score{
		{Id: "2", Score: 0.8},
		{Id: "5", Score: 0.3},
		{Id: "4", Score: 0.9},
		{Id: "3", Score: 0.5},
	}
	err := suite.Database.SetScores(ctx, Neighbors, "1", scores)
	suite.NoError(err)
	// get all
	result, err := suite.Database.GetScores(ctx, Neighbors, "1", 0, -1)
	suite.NoError(err)
	suite.Equal([]Score{{"4", 0.9}, {"2", 0.8}, {"3", 0.5}, {"5", 0.3}}, result)
	// get range
	result, err = suite.Database.GetScores(ctx, Neighbors, "1", 1, 2)
	suite.NoError(err)
	suite.Equal([]Score{{"2", 0.8}, {"3", 0.5}}, result)
	result, err = suite.Database.GetScores(ctx, Neighbors, "1", 2, -1)
	suite.NoError(err)
	suite.Equal([]Score{{"3", 0.5}, {"5", 0.3}}, result)
	// replace
	err = suite.Database.SetScores(ctx, Neighbors, "1", []Score{{Id: "6", Score: 0.1}})
	suite.NoError(err)
	result, err = suite.Database.GetScores(ctx, Neighbors, "1", 0, -1)
	suite.NoError(err)
	suite.Equal([]Score{{"6", 0.1}}, result)
	// unknown subset
	result, err = suite.Database.GetScores(ctx, Neighbors, "100", 0, -1)
	suite.NoError(err)
	suite.Empty(result)
}

func (suite *baseTestSuite) TestListSubsets() {
	ctx := context.Background()
	subsets, err := suite.Database.ListSubsets(ctx, Neighbors)
	suite.NoError(err)
	suite.Empty(subsets)
	suite.NoError(suite.Database.SetScores(ctx, Neighbors, "3", []Score{{Id: "1", Score: 1}}))
	suite.NoError(suite.Database.SetScores(ctx, Neighbors, "1", []Score{{Id: "3", Score: 1}}))
	suite.NoError(suite.Database.SetScores(ctx, "other", "2", []Score{{Id: "3", Score: 1}}))
	subsets, err = suite.Database.ListSubsets(ctx, Neighbors)
	suite.NoError(err)
	suite.Equal([]string{"1", "3"}, subsets)
	// empty lists are removed
	suite.NoError(suite.Database.SetScores(ctx, Neighbors, "3", nil))
	subsets, err = suite.Database.ListSubsets(ctx, Neighbors)
	suite.NoError(err)
	suite.Equal([]string{"1"}, subsets)
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("unknown://127.0.0.1", "")
	assert.Error(t, err)
}
