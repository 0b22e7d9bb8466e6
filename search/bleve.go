// Package search provides the best-effort full text index collaborator. The
// dispatcher notifies it after commits; failures are logged by the caller and
// never roll back ledger state.
package search

import (
	"errors"
	"strconv"

	"github.com/blevesearch/bleve/v2"
)

// Indexer maintains a bleve index over post text.
type Indexer struct {
	idx bleve.Index
}

type postDoc struct {
	Content string `json:"content"`
}

// Open opens the index at path, creating it on first use.
func Open(path string) (*Indexer, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, err
	}
	return &Indexer{idx: idx}, nil
}

// Index adds or replaces a post document. Create and update are the same
// bleve operation; the flag exists for collaborators that distinguish them.
func (s *Indexer) Index(postID uint, text string, create bool) error {
	return s.idx.Index(docID(postID), postDoc{Content: text})
}

// Delete drops a post from the index.
func (s *Indexer) Delete(postID uint) error {
	return s.idx.Delete(docID(postID))
}

// Search returns the ids of posts matching the query, best first.
func (s *Indexer) Search(query string, limit int) ([]uint, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// Close releases the index files.
func (s *Indexer) Close() error {
	return s.idx.Close()
}

func docID(postID uint) string {
	return strconv.FormatUint(uint64(postID), 10)
}
