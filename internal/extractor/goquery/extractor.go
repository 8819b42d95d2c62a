// Package goqueryextractor implements crawler.Extractor over listing markup
// using goquery selectors.
package goqueryextractor

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/paste-harvester/internal/crawler"
	"github.com/JakeFAU/paste-harvester/internal/model"
)

// Config holds the selectors describing the listing layout.
type Config struct {
	PaginationSelector string `mapstructure:"pagination_selector"`
	ItemSelector       string `mapstructure:"item_selector"`
	HeaderSelector     string `mapstructure:"header_selector"`
	TitleSelector      string `mapstructure:"title_selector"`
	ContentSelector    string `mapstructure:"content_selector"`
	FooterSelector     string `mapstructure:"footer_selector"`
	// FooterPrefix is removed from the author part of the footer.
	FooterPrefix string `mapstructure:"footer_prefix"`
	// FooterSeparator splits the footer into author and date.
	FooterSeparator string `mapstructure:"footer_separator"`
}

// DefaultConfig matches the paste site layout.
func DefaultConfig() Config {
	return Config{
		PaginationSelector: "ul.pagination a",
		ItemSelector:       "div.col-sm-12",
		HeaderSelector:     "div.pre-header",
		TitleSelector:      "h4",
		ContentSelector:    "ol",
		FooterSelector:     "div.pre-footer div.col-sm-6",
		FooterPrefix:       "Posted by",
		FooterSeparator:    " at ",
	}
}

// Extractor parses listing pages.
type Extractor struct {
	cfg Config
}

// New builds an Extractor; empty Config fields fall back to DefaultConfig.
func New(cfg Config) *Extractor {
	def := DefaultConfig()
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&cfg.PaginationSelector, def.PaginationSelector},
		{&cfg.ItemSelector, def.ItemSelector},
		{&cfg.HeaderSelector, def.HeaderSelector},
		{&cfg.TitleSelector, def.TitleSelector},
		{&cfg.ContentSelector, def.ContentSelector},
		{&cfg.FooterSelector, def.FooterSelector},
		{&cfg.FooterPrefix, def.FooterPrefix},
		{&cfg.FooterSeparator, def.FooterSeparator},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
	return &Extractor{cfg: cfg}
}

// PageIndices returns the numeric entries of the pagination control in
// ascending order without duplicates. Non-numeric entries are ignored.
func (e *Extractor) PageIndices(content string) (iter.Seq[int], error) {
	doc, err := parse(content)
	if err != nil {
		return nil, err
	}
	anchors := doc.Find(e.cfg.PaginationSelector)
	if anchors.Length() == 0 {
		return nil, &crawler.ParseError{What: "pagination", Err: crawler.ErrNoPagination}
	}
	var indices []int
	anchors.Each(func(_ int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(s.Text()))
		if err != nil || n < 0 {
			return
		}
		indices = append(indices, n)
	})
	slices.Sort(indices)
	return slices.Values(slices.Compact(indices)), nil
}

// Records yields one paste per item block in page order. Blocks without a
// header are skipped. A block with a header but no content or footer yields
// a *crawler.ParseError and ends the sequence.
func (e *Extractor) Records(content string) iter.Seq2[*model.Paste, error] {
	return func(yield func(*model.Paste, error) bool) {
		doc, err := parse(content)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, block := range doc.Find(e.cfg.ItemSelector).EachIter() {
			header := block.Find(e.cfg.HeaderSelector).First()
			if header.Length() == 0 {
				continue
			}
			paste, err := e.record(header, block)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(paste, nil) {
				return
			}
		}
	}
}

func (e *Extractor) record(header, block *goquery.Selection) (*model.Paste, error) {
	title := header.Find(e.cfg.TitleSelector).First()
	body := block.Find(e.cfg.ContentSelector).First()
	if body.Length() == 0 {
		return nil, malformed("content block missing")
	}
	footer := block.Find(e.cfg.FooterSelector).First()
	if footer.Length() == 0 {
		return nil, malformed("footer block missing")
	}
	author, date, err := e.splitFooter(footer.Text())
	if err != nil {
		return nil, err
	}
	return model.NewPaste(map[string]string{
		model.FieldAuthor:  author,
		model.FieldTitle:   title.Text(),
		model.FieldContent: body.Text(),
		model.FieldDate:    date,
	})
}

// splitFooter splits "Posted by <author> at <date>" on the last separator so
// author names containing the token stay intact.
func (e *Extractor) splitFooter(footer string) (string, string, error) {
	footer = strings.Join(strings.Fields(footer), " ")
	idx := strings.LastIndex(footer, e.cfg.FooterSeparator)
	if idx < 0 {
		return "", "", malformed(fmt.Sprintf("footer %q has no separator %q", footer, e.cfg.FooterSeparator))
	}
	author := footer[:idx]
	date := footer[idx+len(e.cfg.FooterSeparator):]
	author = strings.Replace(author, e.cfg.FooterPrefix, "", 1)
	return author, strings.TrimSpace(date), nil
}

func malformed(detail string) error {
	return &crawler.ParseError{What: "record", Err: fmt.Errorf("%w: %s", crawler.ErrMalformedRecord, detail)}
}

func parse(content string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &crawler.ParseError{What: "document", Err: err}
	}
	return doc, nil
}
