// Package htmlcart extracts product records from saved Amazon cart and
// saved-for-later HTML snapshots. The markup has no stable schema, so every
// field is resolved through an ordered chain of heuristics; the first one
// that yields a value wins.
package htmlcart

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/cartledger/cartledger/internal/normalize"
	"github.com/cartledger/cartledger/internal/product"
)

// Options controls a single extraction call. Debug enables per-container
// diagnostics; it is an explicit argument rather than a process-wide switch.
type Options struct {
	Debug bool
}

// spinnerRe matches placeholder/loading images that must never be reported
// as product images.
var spinnerRe = regexp.MustCompile(`(?i)loading|spinner`)

// titleResolver yields a normalized title for a product container, or ""
// when this strategy does not apply.
type titleResolver func(*goquery.Selection) string

// Ordered by specificity: the dedicated product-title link, the generic
// title class, then the truncated-title variants used inside h4 blocks.
var titleResolvers = []titleResolver{
	titleFrom("a.sc-product-link.sc-product-title"),
	titleFrom(".sc-product-title"),
	titleFrom("h4 .a-truncate-full"),
	titleFrom("h4 .a-truncate-cut"),
}

func titleFrom(selector string) titleResolver {
	return func(div *goquery.Selection) string {
		return normalize.CollapseWhitespace(div.Find(selector).First().Text())
	}
}

// Parse walks the document and returns one candidate record per product
// container, in document order. Containers without an ASIN attribute or a
// resolvable title are dropped; price and image degrade to 0 and "".
// Positions are not assigned here; that is the importing caller's job.
func Parse(r io.Reader, opts Options) ([]product.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var records []product.Record
	doc.Find("div[data-asin]").Each(func(i int, div *goquery.Selection) {
		asin := strings.TrimSpace(div.AttrOr("data-asin", ""))
		if asin == "" {
			return
		}
		title := resolveTitle(div)
		if title == "" {
			if opts.Debug {
				log.Debug().Str("asin", asin).Msg("container has no resolvable title; skipping")
			}
			return
		}
		rec := product.Record{
			ASIN:  asin,
			Title: title,
			Price: resolvePrice(div),
			Image: resolveImage(div),
		}
		if opts.Debug {
			log.Debug().Str("asin", rec.ASIN).Float64("price", rec.Price).Bool("image", rec.Image != "").Msg("extracted container")
		}
		records = append(records, rec)
	})
	return records, nil
}

func resolveTitle(div *goquery.Selection) string {
	for _, resolve := range titleResolvers {
		if title := resolve(div); title != "" {
			return title
		}
	}
	return ""
}

// resolvePrice prefers the visible formatted price, then the raw
// data-price attribute, then 0.
func resolvePrice(div *goquery.Selection) float64 {
	if text := div.Find(".a-price .a-offscreen").First().Text(); text != "" {
		if price, ok := normalize.ParsePrice(text); ok {
			return price
		}
	}
	if attr, ok := div.Attr("data-price"); ok {
		if price, ok := normalize.ParsePrice(attr); ok {
			return price
		}
	}
	return 0
}

// resolveImage picks the product image element and then resolves its source
// URL through an attribute preference chain. Spinner URLs are treated as no
// image at all.
func resolveImage(div *goquery.Selection) string {
	img := findImageElement(div)
	if img == nil {
		return ""
	}

	src := firstNonEmptyAttr(img, "data-savepage-src", "src", "data-src", "data-image", "data-old-hires")
	if src == "" {
		src = firstSrcsetCandidate(img)
	}
	if src == "" {
		src = widestDynamicImage(img)
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	if spinnerRe.MatchString(src) {
		return ""
	}
	return src
}

func findImageElement(div *goquery.Selection) *goquery.Selection {
	// Prefer an image nested inside the product anchor link.
	link := div.Find(`a.sc-product-link[href*="saved_image"], a.sc-product-link`).First()
	if link.Length() > 0 {
		if img := link.Find("img.sc-product-image, img").First(); img.Length() > 0 {
			return img
		}
	}
	if img := div.Find("img.sc-product-image").First(); img.Length() > 0 {
		return img
	}
	// Last resort: first image that is neither inside a loading indicator
	// nor itself a spinner asset.
	var found *goquery.Selection
	div.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if img.Closest(".sc-list-item-spinner").Length() > 0 {
			return true
		}
		src := img.AttrOr("src", "")
		savepageSrc := img.AttrOr("data-savepage-src", "")
		if spinnerRe.MatchString(src) || spinnerRe.MatchString(savepageSrc) {
			return true
		}
		found = img
		return false
	})
	return found
}

func firstNonEmptyAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

// firstSrcsetCandidate returns the URL of the first srcset entry, checking
// the savepage capture attribute before the live one.
func firstSrcsetCandidate(img *goquery.Selection) string {
	srcset := firstNonEmptyAttr(img, "data-savepage-srcset", "srcset")
	if srcset == "" {
		return ""
	}
	first := strings.TrimSpace(strings.Split(srcset, ",")[0])
	if first == "" {
		return ""
	}
	return strings.Fields(first)[0]
}

// widestDynamicImage parses the data-a-dynamic-image attribute, a JSON map
// of URL -> [width, height], and returns the widest-declared URL. Malformed
// payloads are ignored.
func widestDynamicImage(img *goquery.Selection) string {
	raw, ok := img.Attr("data-a-dynamic-image")
	if !ok || raw == "" {
		return ""
	}
	var entries map[string][]float64
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return ""
	}
	var best string
	bestWidth := -1.0
	for url, dims := range entries {
		width := 0.0
		if len(dims) > 0 {
			width = dims[0]
		}
		if width > bestWidth || (width == bestWidth && url < best) {
			best = url
			bestWidth = width
		}
	}
	return best
}
