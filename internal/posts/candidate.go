package posts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Candidate is one parsed feed entry before persistence. Parsers produce
// Candidates; the repository decides which of them are new.
type Candidate struct {
	Title       string
	Content     string
	PublishDate time.Time
	Location    string
	Department  string
	Category    string
	Link        *string
	ImageURL    *string
	IsUrgent    bool
	Likes       int
	Comments    int
	HasImage    bool
}

// ID derives the content-addressed post id. Identical title, content and
// publish metadata always yield the same id, so re-polling the same feed is
// idempotent. The trailing unix timestamp keeps ids sortable by publish time.
func (c Candidate) ID() string {
	h := sha256.New()
	h.Write([]byte(c.Title))
	h.Write([]byte(c.Content))
	h.Write([]byte(c.PublishDate.UTC().Format(time.RFC3339)))
	h.Write([]byte(c.Location))
	h.Write([]byte(c.Department))
	h.Write([]byte(c.Category))
	digest := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s-%d", digest[:8], c.PublishDate.Unix())
}
