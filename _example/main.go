package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/hupe1980/kdgo"
	"github.com/hupe1980/kdgo/testutil"
)

func main() {
	seed := int64(4711)
	dims := 3
	size := 200_000
	numQueries := 1000

	rng := testutil.NewRNG(seed)
	data := testutil.UniformPoints[float32](rng, size, dims, 1000)

	queries := make([][]float32, numQueries)
	for i := range queries {
		queries[i] = testutil.QueryPoint[float32](rng, dims, 1000, 50)
	}

	db, err := kdgo.New(data, dims)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	fmt.Println("--- Tree ---")

	start := time.Now()
	for _, q := range queries {
		if _, err := db.FindClosest(q); err != nil {
			log.Fatal(err)
		}
	}
	treeTime := time.Since(start)
	fmt.Println("Time:", treeTime)

	fmt.Println("--- Brute force ---")

	start = time.Now()
	for _, q := range queries {
		testutil.BruteForceClosest(data, dims, q, float32(math.Inf(1)))
	}
	bruteTime := time.Since(start)
	fmt.Println("Time:", bruteTime)

	fmt.Printf("Speedup: %.0fx\n", float64(bruteTime)/float64(treeTime))
}
