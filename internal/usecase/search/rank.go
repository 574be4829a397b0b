package search

import (
	"math"
	"sort"

	"github.com/kailas-cloud/bookscout/internal/domain/book"
)

// DefaultTieEpsilon is the distance gap under which two hits count as tied.
const DefaultTieEpsilon = 1e-6

// rankByDistance orders hits by ascending distance. Runs of hits whose distance
// is within eps of the run's first hit are ordered by rating average desc,
// then rating count desc. Hits without a distance sort last.
func rankByDistance(books []book.Book, eps float64) {
	sort.SliceStable(books, func(i, j int) bool {
		return distanceOf(books[i]) < distanceOf(books[j])
	})

	for start := 0; start < len(books); {
		end := start + 1
		base := distanceOf(books[start])
		for end < len(books) && distanceOf(books[end])-base <= eps {
			end++
		}
		if end-start > 1 {
			run := books[start:end]
			sort.SliceStable(run, func(i, j int) bool {
				if run[i].RatingAvg != run[j].RatingAvg {
					return run[i].RatingAvg > run[j].RatingAvg
				}
				return run[i].RatingCount > run[j].RatingCount
			})
		}
		start = end
	}
}

func distanceOf(b book.Book) float64 {
	if b.Distance == nil || math.IsNaN(*b.Distance) {
		return math.Inf(1)
	}
	return *b.Distance
}
