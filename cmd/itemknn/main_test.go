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

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const ratings = `user,item,rating
1,1,5
1,2,5
1,3,1
1,4,1
2,1,4
2,2,2
2,3,3
3,1,1
3,3,5
`

func execute(args ...string) (string, error) {
	var stdout bytes.Buffer
	rootCommand.SetOut(&stdout)
	rootCommand.SetErr(&bytes.Buffer{})
	rootCommand.SetArgs(args)
	err := rootCommand.Execute()
	return stdout.String(), err
}

func TestCommands(t *testing.T) {
	temp := t.TempDir()
	csvPath := filepath.Join(temp, "ratings.csv")
	assert.NoError(t, os.WriteFile(csvPath, []byte(ratings), 0o644))
	configPath := filepath.Join(temp, "config.toml")
	assert.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
[database]
data_store = "sqlite://%s"
cache_store = "sqlite://%s"
table_prefix = "test_"
`, filepath.Join(temp, "data.db"), filepath.Join(temp, "cache.db"))), 0o644))

	// import ratings into the data store
	stdout, err := execute("--config", configPath, "import", csvPath)
	assert.NoError(t, err)
	assert.Contains(t, stdout, "imported 9 ratings")

	// build from the data store and save to the cache store
	stdout, err = execute("--config", configPath, "build", "--csv", "", "--progress=false")
	assert.NoError(t, err)
	assert.Contains(t, stdout, "built 4 items with 4 neighbors")

	// neighbors from the cache store
	stdout, err = execute("--config", configPath, "neighbors", "--csv", "", "1")
	assert.NoError(t, err)
	assert.Contains(t, stdout, "0.4472")

	// neighbors from a CSV file
	stdout, err = execute("--config", configPath, "neighbors", "--csv", csvPath, "3")
	assert.NoError(t, err)
	assert.Contains(t, stdout, "0.7071")

	// recommend
	stdout, err = execute("--config", configPath, "score", "--csv", "", "3")
	assert.NoError(t, err)
	assert.Contains(t, stdout, "5.0000")
	assert.Contains(t, stdout, "1.0000")

	// predict
	stdout, err = execute("--config", configPath, "score", "--csv", csvPath, "3", "4")
	assert.NoError(t, err)
	assert.Contains(t, stdout, "5.0000")
	assert.NotContains(t, stdout, "1.0000")

	// invalid arguments
	_, err = execute("--config", configPath, "neighbors", "--csv", "", "abc")
	assert.Error(t, err)
	_, err = execute("--config", configPath, "score", "--csv", "")
	assert.Error(t, err)
}
