package site

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// feedPageSize is the number of items requested per story-feed page.
const feedPageSize = 100

// feedFilter selects the item fields returned by the content API. The %s is
// the edition's Arc site name.
const feedFilter = `{content_elements{_id,credits{by{additional_properties{original{byline}}},name,type,url}},description{basic},display_date,headlines{basic},label{basic{display,text,url}},owner{sponsored},promo_items{basic{_id,auth{1},type,url,caption},lead_art{promo_items{basic{_id,auth{1},type,url}}},type},type,websites{%s{website_section{_id,name},website_url}},content_elements{type,content,url,caption{basic}}},count,next}`

// feedQuery is the JSON query document carried in the story-feed URL.
type feedQuery struct {
	Feature string `json:"feature"`
	Offset  int    `json:"offset"`
	Query   string `json:"query"`
	Size    int    `json:"size"`
}

// feedURL builds one page of the publisher's story-feed-query endpoint for a
// display-date window and offset.
func feedURL(arcSite string, offset int, begin, end time.Time) string {
	q := feedQuery{
		Feature: "results-list",
		Offset:  offset,
		Query:   fmt.Sprintf("display_date:[%s TO %s]", begin.Format("2006-01-02"), end.Format("2006-01-02")),
		Size:    feedPageSize,
	}
	queryJSON, _ := json.Marshal(q)
	filter := fmt.Sprintf(feedFilter, arcSite)

	return fmt.Sprintf(
		"%s/pf/api/v3/content/fetch/story-feed-query?query=%s&filter=%s&d=147&mxId=00000000&_website=%s",
		BaseURL, url.QueryEscape(string(queryJSON)), url.QueryEscape(filter), arcSite,
	)
}

// feedOffset recovers the offset encoded in a story-feed URL so pagination can
// continue from a frontier entry alone.
func feedOffset(feedRawURL string) (int, error) {
	u, err := url.Parse(feedRawURL)
	if err != nil {
		return 0, fmt.Errorf("parse feed url: %w", err)
	}
	raw := u.Query().Get("query")
	if raw == "" {
		return 0, fmt.Errorf("feed url %q carries no query document", feedRawURL)
	}
	var q feedQuery
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return 0, fmt.Errorf("decode feed query document: %w", err)
	}
	return q.Offset, nil
}

// feedResponse is the slice of the story-feed payload the adapter consumes.
type feedResponse struct {
	Count           int        `json:"count"`
	ContentElements []feedItem `json:"content_elements"`
}

type feedItem struct {
	ID          string `json:"_id"`
	DisplayDate string `json:"display_date"`
	Headlines   struct {
		Basic string `json:"basic"`
	} `json:"headlines"`
	Websites map[string]struct {
		WebsiteURL string `json:"website_url"`
	} `json:"websites"`
	PromoItems struct {
		Basic struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"basic"`
	} `json:"promo_items"`
	ContentElements []struct {
		Type    string `json:"type"`
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"content_elements"`
}

// imageURLs collects the promo image and every inline image of one feed item.
func (it feedItem) imageURLs() []string {
	var urls []string
	if u := it.PromoItems.Basic.URL; u != "" {
		urls = append(urls, u)
	}
	for _, el := range it.ContentElements {
		if el.Type == "image" && el.Content != "" {
			urls = append(urls, el.Content)
		}
	}
	return urls
}
