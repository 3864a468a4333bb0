package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"multitool/internal/registry"
	"multitool/internal/storage"
	"multitool/internal/tools"
	"multitool/pkg/zip"
)

// Ops bundles the output store dependency shared by all PDF operations.
type Ops struct {
	Out *storage.OutputStore
}

func pageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, tools.Failf(err, "could not read PDF")
	}
	return count, nil
}

// Split writes one single-page PDF per selected page. When the optional pages
// expression is empty every page is selected. Splits producing more than one
// part also emit a zip artifact bundling them.
func (o *Ops) Split(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	total, err := pageCount(inputs[0])
	if err != nil {
		return nil, err
	}
	pages, err := ParseRanges(p.String("pages"), total)
	if err != nil {
		return nil, err
	}

	artifacts := make([]storage.Artifact, 0, len(pages))
	outputs := make([]map[string]any, 0, len(pages))
	for _, page := range pages {
		art := o.Out.Create(".pdf")
		if err := api.TrimFile(inputs[0], art.Path, []string{strconv.Itoa(page)}, nil); err != nil {
			return nil, tools.Failf(err, "could not extract page %d", page)
		}
		artifacts = append(artifacts, art)
		outputs = append(outputs, map[string]any{
			"page": page,
			"id":   art.ID,
			"url":  art.URL,
		})
	}

	meta := map[string]any{
		"total_pages": total,
		"outputs":     outputs,
	}
	if len(artifacts) > 1 {
		zipArt, err := o.zipArtifacts(artifacts, pages)
		if err != nil {
			return nil, err
		}
		meta["zip_url"] = zipArt.URL
	}

	return &tools.Result{
		Message:   fmt.Sprintf("PDF split into %d file(s)", len(artifacts)),
		Artifacts: artifacts,
		Metadata:  meta,
	}, nil
}

func (o *Ops) zipArtifacts(artifacts []storage.Artifact, pages []int) (storage.Artifact, error) {
	entries := make([]zip.Entry, 0, len(artifacts))
	for i, art := range artifacts {
		data, err := os.ReadFile(art.Path)
		if err != nil {
			return storage.Artifact{}, tools.Failf(err, "could not bundle split outputs")
		}
		entries = append(entries, zip.Entry{
			Name: fmt.Sprintf("page_%d.pdf", pages[i]),
			Data: data,
		})
	}
	data, err := zip.Archive(entries)
	if err != nil {
		return storage.Artifact{}, tools.Failf(err, "could not bundle split outputs")
	}
	return o.Out.Put(data, ".zip")
}

// Merge concatenates two or more PDFs. The optional order parameter is a
// permutation of 0-based submission indices; without it files are merged in
// submission order.
func (o *Ops) Merge(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	ordered := inputs
	if p.Has("order") {
		order := p.Ints("order")
		if err := validatePermutation(order, 0, len(inputs)-1); err != nil {
			return nil, err
		}
		ordered = make([]string, len(inputs))
		for i, idx := range order {
			ordered[i] = inputs[idx]
		}
	}

	art := o.Out.Create(".pdf")
	if err := api.MergeCreateFile(ordered, art.Path, false, nil); err != nil {
		return nil, tools.Failf(err, "could not merge PDFs")
	}
	total, err := pageCount(art.Path)
	if err != nil {
		return nil, err
	}

	return &tools.Result{
		Message:   fmt.Sprintf("%d PDFs merged", len(inputs)),
		Artifacts: []storage.Artifact{art},
		Metadata: map[string]any{
			"files":       len(inputs),
			"total_pages": total,
		},
	}, nil
}

// Rearrange reorders pages according to page_order, which must be a full
// permutation of 1..pageCount.
func (o *Ops) Rearrange(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	total, err := pageCount(inputs[0])
	if err != nil {
		return nil, err
	}
	order := p.Ints("page_order")
	if err := validatePermutation(order, 1, total); err != nil {
		return nil, err
	}

	selected := make([]string, len(order))
	for i, page := range order {
		selected[i] = strconv.Itoa(page)
	}
	art := o.Out.Create(".pdf")
	if err := api.CollectFile(inputs[0], art.Path, selected, nil); err != nil {
		return nil, tools.Failf(err, "could not rearrange PDF")
	}

	return &tools.Result{
		Message:   "PDF pages rearranged",
		Artifacts: []storage.Artifact{art},
		Metadata: map[string]any{
			"page_order":  order,
			"total_pages": total,
		},
	}, nil
}

// ExtractText returns the concatenated text of the selected pages. It
// produces no artifact; the text travels in metadata.
func (o *Ops) ExtractText(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	doc, err := fitz.New(inputs[0])
	if err != nil {
		return nil, tools.Failf(err, "could not read PDF")
	}
	defer doc.Close()

	total := doc.NumPage()
	pages, err := ParseRanges(p.String("pages"), total)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for i, page := range pages {
		text, err := doc.Text(page - 1)
		if err != nil {
			return nil, tools.Failf(err, "could not extract text from page %d", page)
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s", page, text)
	}

	return &tools.Result{
		Message: fmt.Sprintf("text extracted from %d page(s)", len(pages)),
		Metadata: map[string]any{
			"pages_extracted": pages,
			"total_pages":     total,
			"text":            b.String(),
		},
	}, nil
}

// ConvertToPDF turns an image into a single-page PDF. A PDF input passes
// through unchanged as a fresh artifact.
func (o *Ops) ConvertToPDF(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	if strings.EqualFold(filepath.Ext(inputs[0]), ".pdf") {
		data, err := os.ReadFile(inputs[0])
		if err != nil {
			return nil, tools.Failf(err, "could not read PDF")
		}
		art, err := o.Out.Put(data, ".pdf")
		if err != nil {
			return nil, err
		}
		return &tools.Result{
			Message:   "file was already a PDF",
			Artifacts: []storage.Artifact{art},
			Metadata:  map[string]any{"source_format": "pdf"},
		}, nil
	}

	art := o.Out.Create(".pdf")
	if err := api.ImportImagesFile(inputs[0:1], art.Path, nil, nil); err != nil {
		return nil, tools.Failf(err, "could not convert to PDF")
	}
	return &tools.Result{
		Message:   "converted to PDF",
		Artifacts: []storage.Artifact{art},
		Metadata: map[string]any{
			"source_format": strings.TrimPrefix(strings.ToLower(filepath.Ext(inputs[0])), "."),
		},
	}, nil
}

// validatePermutation checks that values is exactly a permutation of lo..hi.
func validatePermutation(values []int, lo, hi int) error {
	want := hi - lo + 1
	if len(values) != want {
		return tools.Invalidf("expected a permutation of %d..%d, got %d value(s)", lo, hi, len(values))
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	for i, v := range sorted {
		if v != lo+i {
			return tools.Invalidf("expected a permutation of %d..%d", lo, hi)
		}
	}
	return nil
}
