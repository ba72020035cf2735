package pipeline

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingEmbedder returns a deterministic bag-of-words embedder. Every lowercased
// token is hashed into one of dimension buckets and the vector is L2 normalized.
// It needs no model files and is used when no embedding model is available.
func HashingEmbedder(dimension int) EmbedFunc {
	return func(text string) ([]float32, error) {
		vector := make([]float32, dimension)
		if dimension <= 0 {
			return vector, nil
		}

		tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, token := range tokens {
			h := fnv.New32a()
			_, _ = h.Write([]byte(token))
			vector[h.Sum32()%uint32(dimension)]++
		}

		var norm float64
		for _, v := range vector {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			return vector, nil
		}
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
		return vector, nil
	}
}
