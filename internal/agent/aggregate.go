package agent

import "fmt"

// Aggregate is the running total over the pages folded so far.
type Aggregate struct {
	Total int
	Pages int
}

// Fold adds page's items. Pages must arrive in order, each exactly once.
func (a *Aggregate) Fold(page int, items []int) (int, error) {
	if page != a.Pages+1 {
		return 0, fmt.Errorf("fold page %d after %d pages", page, a.Pages)
	}
	sum := Sum(items)
	a.Total += sum
	a.Pages = page
	return sum, nil
}

func Sum(items []int) int {
	total := 0
	for _, n := range items {
		total += n
	}
	return total
}
