package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ResultLinks extracts organic result URLs from a DuckDuckGo HTML results
// page. Redirect links are unwrapped, ads and engine-internal links are
// dropped, and the result is deduplicated in page order.
func ResultLinks(htmlContent string, pageURL string, maxResults int) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if maxResults > 0 && len(links) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && isResultAnchor(n) {
			if link := resolveResultURL(baseURL, attr(n, "href")); link != "" && !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return links, nil
}

// isResultAnchor matches organic result title links
func isResultAnchor(n *html.Node) bool {
	for _, class := range strings.Fields(attr(n, "class")) {
		if class == "result__a" || class == "result-link" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// resolveResultURL resolves href against the results page and unwraps the
// engine's click-tracking redirect (/l/?uddg=<target>)
func resolveResultURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)

	if target := resolved.Query().Get("uddg"); target != "" {
		inner, err := url.Parse(target)
		if err != nil {
			return ""
		}
		resolved = inner
	}

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	// Sponsored and internal links point back at the engine
	if resolved.Host == base.Host || strings.HasSuffix(resolved.Host, "duckduckgo.com") {
		return ""
	}

	resolved.Fragment = ""
	return resolved.String()
}
