package loader

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"jaytaylor.com/wikigraph/domain"
)

// DefaultNamespaces are accepted when a Filter names none.
var DefaultNamespaces = []domain.Namespace{
	domain.NamespaceArticle,
	domain.NamespaceCategory,
}

// Decision is the outcome of evaluating a page against a Filter.
type Decision int

const (
	Accepted Decision = iota
	RejectedNoNamespace
	RejectedInvalidID
	RejectedNamespace
	RejectedQuota
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case RejectedNoNamespace:
		return "rejected-no-namespace"
	case RejectedInvalidID:
		return "rejected-invalid-id"
	case RejectedNamespace:
		return "rejected-namespace"
	case RejectedQuota:
		return "rejected-quota"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Filter is the acceptance predicate applied to every parsed page.
type Filter struct {
	Namespaces []domain.Namespace
	ValidIDs   *roaring.Bitmap       // Optional.
	Quota      *LanguageQuotaTracker // Optional.
}

func (f *Filter) acceptsNamespace(ns domain.Namespace) bool {
	namespaces := f.Namespaces
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces
	}
	for _, accepted := range namespaces {
		if accepted == ns {
			return true
		}
	}
	return false
}

// Accept evaluates the checks in order and stops at the first rejection.  The
// quota is only consumed by pages which pass every other check.
func (f *Filter) Accept(page *domain.RawPage) Decision {
	if _, ok := domain.NamespaceFromID(int(page.Namespace)); !ok {
		return RejectedNoNamespace
	}
	if f.ValidIDs != nil && (page.PageID < 0 || uint64(page.PageID) > math.MaxUint32 || !f.ValidIDs.Contains(uint32(page.PageID))) {
		return RejectedInvalidID
	}
	if !f.acceptsNamespace(page.Namespace) {
		return RejectedNamespace
	}
	if f.Quota != nil && !f.Quota.TryAcquire(page.Language) {
		return RejectedQuota
	}
	return Accepted
}

// LoadValidIDs reads one page id per line.  Blank lines and lines starting
// with '#' are skipped.
func LoadValidIDs(path string) (*roaring.Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		ids     = roaring.New()
		scanner = bufio.NewScanner(f)
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%v:%v: parsing page id %q: %w", path, lineNo, line, err)
		}
		ids.Add(uint32(id))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %v: %w", path, err)
	}
	ids.RunOptimize()
	return ids, nil
}
