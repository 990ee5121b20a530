// Copyright 2021 gorse Project Authors
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

package base

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SparseVector is the data structure for the sparse vector. A missing index means
// there is no entry, not a zero entry. Indices must be unique.
type SparseVector struct {
	Indices []int64
	Values  []float64
	Sorted  bool
}

// NewSparseVector creates a SparseVector.
func NewSparseVector() *SparseVector {
	return &SparseVector{
		Indices: make([]int64, 0),
		Values:  make([]float64, 0),
	}
}

// NewSparseVectorFromMap creates a SparseVector sorted by indices. The returned vector
// is safe for concurrent reads.
func NewSparseVectorFromMap(m map[int64]float64) *SparseVector {
	vec := &SparseVector{
		Indices: make([]int64, 0, len(m)),
		Values:  make([]float64, 0, len(m)),
	}
	for index, value := range m {
		vec.Indices = append(vec.Indices, index)
		vec.Values = append(vec.Values, value)
	}
	vec.SortIndex()
	return vec
}

// Add a new item.
func (vec *SparseVector) Add(index int64, value float64) {
	vec.Indices = append(vec.Indices, index)
	vec.Values = append(vec.Values, value)
	vec.Sorted = false
}

// Len returns the number of items.
func (vec *SparseVector) Len() int {
	return len(vec.Values)
}

// Less returns true if the index of i-th item is less than the index of j-th item.
func (vec *SparseVector) Less(i, j int) bool {
	return vec.Indices[i] < vec.Indices[j]
}

// Swap two items.
func (vec *SparseVector) Swap(i, j int) {
	vec.Indices[i], vec.Indices[j] = vec.Indices[j], vec.Indices[i]
	vec.Values[i], vec.Values[j] = vec.Values[j], vec.Values[i]
}

// SortIndex sorts items by indices.
func (vec *SparseVector) SortIndex() {
	if !vec.Sorted {
		sort.Sort(vec)
		vec.Sorted = true
	}
}

// ForEach iterates items in the sparse vector.
func (vec *SparseVector) ForEach(f func(i int, index int64, value float64)) {
	for i := range vec.Indices {
		f(i, vec.Indices[i], vec.Values[i])
	}
}

// Get returns the value at index and whether the entry exists.
func (vec *SparseVector) Get(index int64) (float64, bool) {
	vec.SortIndex()
	i := sort.Search(len(vec.Indices), func(i int) bool {
		return vec.Indices[i] >= index
	})
	if i < len(vec.Indices) && vec.Indices[i] == index {
		return vec.Values[i], true
	}
	return 0, false
}

// Contains returns true if there is an entry at index.
func (vec *SparseVector) Contains(index int64) bool {
	_, ok := vec.Get(index)
	return ok
}

// Mean of values. The mean of an empty vector is zero.
func (vec *SparseVector) Mean() float64 {
	if vec.Len() == 0 {
		return 0
	}
	return stat.Mean(vec.Values, nil)
}

// Norm returns the Euclidean norm over all entries.
func (vec *SparseVector) Norm() float64 {
	if vec.Len() == 0 {
		return 0
	}
	return floats.Norm(vec.Values, 2)
}

// Dot returns the dot product over common indices.
func (vec *SparseVector) Dot(other *SparseVector) float64 {
	sum := 0.0
	vec.ForIntersection(other, func(_ int64, a, b float64) {
		sum += a * b
	})
	return sum
}

// Centered returns a copy with the mean subtracted from every value.
func (vec *SparseVector) Centered() *SparseVector {
	mean := vec.Mean()
	centered := &SparseVector{
		Indices: make([]int64, vec.Len()),
		Values:  make([]float64, vec.Len()),
		Sorted:  vec.Sorted,
	}
	copy(centered.Indices, vec.Indices)
	for i, value := range vec.Values {
		centered.Values[i] = value - mean
	}
	return centered
}

// ForIntersection iterates items in the intersection of two vectors. The method sorts two vectors
// by indices first, then find common indices in linear time.
func (vec *SparseVector) ForIntersection(other *SparseVector, f func(index int64, a, b float64)) {
	// Sort indices of the left vec
	vec.SortIndex()
	// Sort indices of the right vec
	other.SortIndex()
	// Iterate
	i, j := 0, 0
	for i < vec.Len() && j < other.Len() {
		if vec.Indices[i] == other.Indices[j] {
			f(vec.Indices[i], vec.Values[i], other.Values[j])
			i++
			j++
		} else if vec.Indices[i] < other.Indices[j] {
			i++
		} else {
			j++
		}
	}
}
