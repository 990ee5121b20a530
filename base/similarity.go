package base

// FuncSimilarity computes the similarity between a pair of vectors.
type FuncSimilarity func(a, b *SparseVector) float64

// CosineSimilarity computes the cosine similarity between a pair of vectors. The dot product
// runs over common indices while each norm runs over all entries of its own vector. Applied
// to user mean-centered item vectors this is the adjusted cosine. Zero vectors have zero
// similarity to everything.
func CosineSimilarity(a, b *SparseVector) float64 {
	normA, normB := a.Norm(), b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	return a.Dot(b) / (normA * normB)
}
