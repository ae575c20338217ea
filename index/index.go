package index

import (
	"log"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
)

const defaultIndexPath = "wallfetch.bleve"

// Item is one downloaded wallpaper as stored in the Bleve index. All
// fields are indexed and searchable by their lowercase JSON tag names
// (e.g. query '+source:wallhaven' or '+theme:nord').
type Item struct {
	ID           string    `json:"id"`                     // Dedup key, <source>-<remote_id>
	Source       string    `json:"source"`                 // Provider name (wallhaven, unsplash)
	Query        string    `json:"query,omitempty"`        // Search query that found it
	Resolution   string    `json:"resolution,omitempty"`   // Remote resolution, e.g. 2560x1440
	Theme        string    `json:"theme,omitempty"`        // gowall theme, set on converted copies
	FilePath     string    `json:"filePath"`               // Absolute path on disk
	DownloadedAt time.Time `json:"downloadedAt,omitempty"` // Commit timestamp
}

// OpenOrCreateIndex opens an existing Bleve index or creates a new one if it doesn't exist.
func OpenOrCreateIndex(indexPath string) (bleve.Index, error) {
	if indexPath == "" {
		indexPath = defaultIndexPath
	}

	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		log.Printf("Creating new index at: %s", indexPath)
		mapping := bleve.NewIndexMapping()
		index, err = bleve.New(indexPath, mapping)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return index, nil
}

// IndexItem adds or updates a wallpaper in the Bleve index.
func IndexItem(index bleve.Index, item Item) error {
	return index.Index(item.ID, item)
}

// SearchIndex performs a query-string search against the index.
func SearchIndex(index bleve.Index, query string) (*bleve.SearchResult, error) {
	searchQuery := bleve.NewQueryStringQuery(query)
	searchRequest := bleve.NewSearchRequest(searchQuery)
	searchRequest.Fields = []string{"*"}
	return index.Search(searchRequest)
}

// DeleteItem removes one wallpaper from the index by its dedup key.
func DeleteItem(index bleve.Index, id string) error {
	return index.Delete(id)
}

// DeleteIndex removes the index directory. Use with caution!
func DeleteIndex(indexPath string) error {
	if indexPath == "" {
		indexPath = defaultIndexPath
	}
	log.Printf("Attempting to delete index at: %s", indexPath)
	return os.RemoveAll(indexPath)
}
