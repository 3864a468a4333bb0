// Package pdf implements the PDF operations: split, merge, rearrange,
// extract-text and convert-to-pdf. Page manipulation delegates to pdfcpu,
// text extraction to MuPDF via go-fitz.
package pdf

import (
	"strconv"
	"strings"

	"multitool/internal/tools"
)

// ParseRanges expands a page range expression such as "1-3,5,7-" into an
// ordered, de-duplicated list of 1-based page numbers. An empty expression
// selects every page. Tokens are a single page, a closed range "a-b", or an
// open-ended range "a-" running through the last page.
func ParseRanges(expr string, totalPages int) ([]int, error) {
	if strings.TrimSpace(expr) == "" {
		pages := make([]int, totalPages)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	seen := make(map[int]bool)
	var pages []int
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}

	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if idx := strings.Index(token, "-"); idx >= 0 {
			startStr := strings.TrimSpace(token[:idx])
			endStr := strings.TrimSpace(token[idx+1:])

			start := 1
			if startStr != "" {
				v, err := strconv.Atoi(startStr)
				if err != nil {
					return nil, tools.Invalidf("invalid page range start %q", startStr)
				}
				start = v
			}
			end := totalPages
			if endStr != "" {
				v, err := strconv.Atoi(endStr)
				if err != nil {
					return nil, tools.Invalidf("invalid page range end %q", endStr)
				}
				end = v
			}
			if start < 1 || end > totalPages || start > end {
				return nil, tools.Invalidf("page range %q is out of bounds for a %d-page document", token, totalPages)
			}
			for p := start; p <= end; p++ {
				add(p)
			}
			continue
		}

		p, err := strconv.Atoi(token)
		if err != nil {
			return nil, tools.Invalidf("invalid page number %q", token)
		}
		if p < 1 || p > totalPages {
			return nil, tools.Invalidf("page %d is out of bounds for a %d-page document", p, totalPages)
		}
		add(p)
	}

	if len(pages) == 0 {
		return nil, tools.Invalidf("page expression %q selects no pages", expr)
	}
	return pages, nil
}
