package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blogwatch/backend/internal/posts"
)

// JSONParser parses the feed's JSON document: a top-level `posts` array of
// entries. Entries missing a title or a parsable publish date are skipped;
// the rest of the document still parses.
type JSONParser struct{}

// NewJSONParser returns the default feed parser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

type jsonFeed struct {
	Posts []jsonFeedEntry `json:"posts"`
}

type jsonFeedEntry struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	PublishDate string  `json:"publish_date"`
	Location    string  `json:"location"`
	Department  string  `json:"department"`
	Category    string  `json:"category"`
	Link        *string `json:"link"`
	ImageURL    *string `json:"image_url"`
	IsUrgent    bool    `json:"is_urgent"`
	Likes       int     `json:"likes"`
	Comments    int     `json:"comments"`
	HasImage    bool    `json:"has_image"`
}

// Parse implements Parser.
func (p *JSONParser) Parse(raw []byte) ([]posts.Candidate, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty feed document")
	}

	var doc jsonFeed
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding feed document: %w", err)
	}

	candidates := make([]posts.Candidate, 0, len(doc.Posts))
	for _, entry := range doc.Posts {
		if entry.Title == "" {
			continue
		}
		publishDate, err := parseDate(entry.PublishDate)
		if err != nil {
			continue
		}
		candidates = append(candidates, posts.Candidate{
			Title:       entry.Title,
			Content:     entry.Content,
			PublishDate: publishDate,
			Location:    entry.Location,
			Department:  entry.Department,
			Category:    entry.Category,
			Link:        entry.Link,
			ImageURL:    entry.ImageURL,
			IsUrgent:    entry.IsUrgent,
			Likes:       entry.Likes,
			Comments:    entry.Comments,
			HasImage:    entry.HasImage,
		})
	}
	return candidates, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable publish date %q", value)
}
