package fakebackend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// Scraper fetches a listing page and turns its product cards into agent-format records.
type Scraper struct {
	httpClient *http.Client
}

func NewScraper(timeout time.Duration) *Scraper {
	jar, _ := cookiejar.New(nil)
	return &Scraper{httpClient: &http.Client{Jar: jar, Timeout: timeout}}
}

func (s *Scraper) Scrape(ctx context.Context, source string) ([]model.RawProduct, error) {
	base, err := url.Parse(source)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid source url %q", source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", base.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return ExtractProducts(body, base)
}

// ExtractProducts reads search-result and bestseller cards. Relative links and images are
// resolved against base.
func ExtractProducts(r io.Reader, base *url.URL) ([]model.RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var out []model.RawProduct
	doc.Find(`[data-component-type="s-search-result"]`).Each(func(i int, card *goquery.Selection) {
		title := cleanText(card.Find("h2 span").First().Text())
		if title == "" {
			title = cleanText(card.Find("h2").First().Text())
		}
		href, _ := card.Find("h2 a").First().Attr("href")
		if href == "" {
			href, _ = card.Find("a.a-link-normal").First().Attr("href")
		}
		img, _ := card.Find("img.s-image").First().Attr("src")

		out = appendCard(out, base, cardFields{
			title:  title,
			price:  searchResultPrice(card),
			image:  img,
			link:   href,
			rating: ratingText(card),
		})
	})

	doc.Find("#gridItemRoot").Each(func(i int, card *goquery.Selection) {
		img := card.Find("img").First()
		src, _ := img.Attr("src")
		alt, _ := img.Attr("alt")
		href, _ := card.Find("a.a-link-normal").First().Attr("href")

		out = appendCard(out, base, cardFields{
			title:  cleanText(alt),
			price:  cleanText(card.Find(`[class*="p13n-sc-price"]`).First().Text()),
			image:  src,
			link:   href,
			rating: ratingText(card),
		})
	})

	return out, nil
}

type cardFields struct {
	title  string
	price  string
	image  string
	link   string
	rating string
}

func appendCard(out []model.RawProduct, base *url.URL, f cardFields) []model.RawProduct {
	if f.title == "" {
		return out
	}
	rec := model.RawProduct{
		"titulo":  f.title,
		"posicao": len(out) + 1,
	}
	if f.price != "" {
		rec["preco"] = f.price
	}
	if f.image != "" {
		rec["imagem"] = resolveURL(base, f.image)
	}
	if f.link != "" {
		rec["url_produto"] = resolveURL(base, f.link)
	}
	if f.rating != "" {
		rec["avaliacao"] = f.rating
	}
	return append(out, rec)
}

func searchResultPrice(card *goquery.Selection) string {
	price := card.Find(".a-price").First()
	whole := digitsOnly(price.Find(".a-price-whole").First().Text())
	if whole != "" {
		fraction := digitsOnly(price.Find(".a-price-fraction").First().Text())
		if fraction == "" {
			fraction = "00"
		}
		return "R$ " + whole + "," + fraction
	}
	return cleanText(price.Find(".a-offscreen").First().Text())
}

// ratingText keeps the leading number of texts like "4,8 de 5 estrelas".
func ratingText(card *goquery.Selection) string {
	alt := cleanText(card.Find(".a-icon-alt").First().Text())
	if alt == "" {
		return ""
	}
	first, _, _ := strings.Cut(alt, " ")
	return first
}

func resolveURL(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
