package interval_test

import (
	"fmt"

	"github.com/crystalix007/cafe/interval"
)

func Example() {
	coverage := interval.New[string]()

	coverage.Add(interval.Interval{Start: 1, End: 5}, "H1")
	coverage.Add(interval.Interval{Start: 7, End: 10}, "L1")
	coverage.Add(interval.Interval{Start: 1, End: 2}, "V1")

	intersections, ok := coverage.AllIntersections(5, 8)

	fmt.Printf("Found intersecting values: %t\n", ok)
	fmt.Printf("Values: %v\n", intersections)
	fmt.Printf("Anything in [11, 20]: %t\n", coverage.Intersects(11, 20))

	// Output:
	// Found intersecting values: true
	// Values: [H1 L1]
	// Anything in [11, 20]: false
}
