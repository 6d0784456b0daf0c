package mylistings

import domain "github.com/donaldgifford/auto-marketplace/pkg/types"

// Collection is the accumulated set of the user's listings plus the local
// pagination view over it.
type Collection struct {
	Items    []domain.Listing
	PageSize int

	// ServerCount is the count reported with page 1, zero when absent.
	ServerCount  int
	PagesFetched int
	StoppedAt    string

	// Provisional is set on the page-1 snapshot handed to the first-page
	// callback, while later pages are still loading.
	Provisional bool
}

// Len returns the number of accumulated listings.
func (c *Collection) Len() int {
	return len(c.Items)
}

// PageCount returns the number of local pages. A provisional collection
// uses the server count when it has one.
func (c *Collection) PageCount() int {
	if c.PageSize <= 0 {
		return 0
	}
	n := len(c.Items)
	if c.Provisional && c.ServerCount > 0 {
		n = c.ServerCount
	}
	return pages(n, c.PageSize)
}

func pages(n, size int) int {
	count := n / size
	if n%size != 0 {
		count++
	}
	return count
}

// Page returns the listings on local page n (1-based). Out-of-range pages
// are empty.
func (c *Collection) Page(n int) []domain.Listing {
	if n < 1 || c.PageSize <= 0 || n > pages(len(c.Items), c.PageSize) {
		return []domain.Listing{}
	}
	start := (n - 1) * c.PageSize
	end := min(start+c.PageSize, len(c.Items))
	return c.Items[start:end]
}

// Remove drops the listing with id and returns the page to show given the
// page currently shown: the same page, or the new last page when current
// is now past the end.
func (c *Collection) Remove(id int64, current int) int {
	kept := c.Items[:0]
	for _, l := range c.Items {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	c.Items = kept

	pages := c.PageCount()
	if pages > 0 && current > pages {
		return pages
	}
	return max(current, 1)
}
