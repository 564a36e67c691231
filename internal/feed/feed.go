// Package feed fetches and parses the upstream blog feed. The transport and
// the document format are independent: Client owns the HTTP side, a Parser
// turns the raw document into post candidates, and Source is the composition
// the poller consumes.
package feed

import (
	"context"

	"github.com/blogwatch/backend/internal/posts"
)

// Parser turns one raw feed document into post candidates. Implementations
// must tolerate partially malformed documents: skip the broken entry, return
// the rest.
type Parser interface {
	Parse(raw []byte) ([]posts.Candidate, error)
}

// Source produces the current set of feed candidates. internal/ingest depends
// on this interface only.
type Source interface {
	FetchPosts(ctx context.Context) ([]posts.Candidate, error)
}
