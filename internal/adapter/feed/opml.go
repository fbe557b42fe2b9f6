package feed

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/cwygoda/get/internal/domain"
)

type opmlDoc struct {
	Body struct {
		Outlines []outline `xml:"outline"`
	} `xml:"body"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	XMLURL   string    `xml:"xmlUrl,attr"`
	Outlines []outline `xml:"outline"`
}

// ReadOPML returns the feed URLs of an OPML subscription list in document
// order. Nested outlines are flattened.
func ReadOPML(r io.Reader) ([]string, error) {
	var doc opmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: opml: %v", domain.ErrMalformedFeed, err)
	}
	var urls []string
	var walk func([]outline)
	walk = func(items []outline) {
		for _, o := range items {
			if o.XMLURL != "" {
				urls = append(urls, o.XMLURL)
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)
	return urls, nil
}
