package scopetrace

import "strings"

// siteKey identifies a traced function independently of the line it was entered from.
type siteKey struct {
	file     string
	function string
}

// depthTracker keeps the nesting level of each goroutine and the last line each traced
// function was entered from.
type depthTracker struct {
	threads map[ThreadID]int
	sites   map[siteKey]int

	// total is the sum of all per-goroutine depths.
	total int
}

// enterHierarchy adds a depth level for id unless site is already open from a different line.
// The result tells the caller whether it owns a matching exit.
func (d *depthTracker) enterHierarchy(id ThreadID, site siteKey, line int) bool {
	if last, ok := d.sites[site]; ok && last != line {
		return false
	}
	if d.sites == nil {
		d.sites = map[siteKey]int{}
	}
	d.sites[site] = line
	d.increment(id)
	return true
}

func (d *depthTracker) increment(id ThreadID) {
	if d.threads == nil {
		d.threads = map[ThreadID]int{}
	}
	d.threads[id]++
	d.total++
}

// exit undoes one level for id and forgets site, if given. It returns false when id had no
// depth left to remove; the decrement is then skipped.
func (d *depthTracker) exit(id ThreadID, site *siteKey) bool {
	level := d.threads[id]
	if level == 0 {
		d.settle()
		return false
	}
	if level == 1 {
		delete(d.threads, id)
	} else {
		d.threads[id] = level - 1
	}
	d.total--
	if site != nil {
		delete(d.sites, *site)
	}
	d.settle()
	return true
}

// settle drops all bookkeeping once nothing is open anywhere, so keys leaked by abnormal exits
// cannot suppress depth later on.
func (d *depthTracker) settle() {
	if d.total != 0 {
		return
	}
	clear(d.threads)
	clear(d.sites)
}

func (d *depthTracker) level(id ThreadID) int {
	return d.threads[id]
}

// indent is two spaces per level below the outermost one.
func (d *depthTracker) indent(id ThreadID) string {
	return strings.Repeat(" ", 2*max(d.level(id)-1, 0))
}
