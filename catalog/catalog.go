/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package catalog holds the immutable list of films a vote can be run over.
//
// Only the Title of each record is interpreted; every other field is kept
// verbatim and handed back to clients unchanged.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrMissingTitle   = errors.New("catalog item has no Title")
	ErrDuplicateTitle = errors.New("duplicate catalog Title")
)

// Item is a single film record.
type Item struct {
	Title string

	raw json.RawMessage
}

// NewItem returns an Item carrying only a title.
func NewItem(title string) Item {
	return Item{Title: title}
}

// UnmarshalJSON accepts either a full record object or a bare title string.
func (i *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var title string
		if err := json.Unmarshal(data, &title); err != nil {
			return err
		}
		*i = Item{Title: title}

		return nil
	}

	var head struct {
		Title string `json:"Title"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	*i = Item{
		Title: head.Title,
		raw:   append(json.RawMessage(nil), data...),
	}

	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.raw) == 0 {
		return json.Marshal(struct {
			Title string `json:"Title"`
		}{i.Title})
	}

	return i.raw, nil
}

// Catalog is safe for concurrent use; it is never modified after Parse.
type Catalog struct {
	items   []Item
	byTitle map[string]int
}

// Load reads a JSON array of film records from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

func Parse(r io.Reader) (*Catalog, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		items:   items,
		byTitle: make(map[string]int, len(items)),
	}

	for idx, item := range items {
		if item.Title == "" {
			return nil, fmt.Errorf("item %d: %w", idx, ErrMissingTitle)
		}
		if _, ok := c.byTitle[item.Title]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTitle, item.Title)
		}
		c.byTitle[item.Title] = idx
	}

	return c, nil
}

// Len is nil-safe.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}

	return len(c.items)
}

// Items returns a copy of every record in file order.
func (c *Catalog) Items() []Item {
	if c == nil {
		return []Item{}
	}

	out := make([]Item, len(c.items))
	copy(out, c.items)

	return out
}

func (c *Catalog) Lookup(title string) (Item, bool) {
	if c == nil {
		return Item{}, false
	}

	idx, ok := c.byTitle[title]
	if !ok {
		return Item{}, false
	}

	return c.items[idx], true
}

// Resolve maps a client-supplied candidate list onto catalog records by
// Title, keeping the supplied order. Unknown titles and repeats are dropped.
// An empty catalog trusts the supplied records and only removes repeats.
func (c *Catalog) Resolve(candidates []Item) []Item {
	seen := make(map[string]bool, len(candidates))
	out := make([]Item, 0, len(candidates))

	for _, candidate := range candidates {
		if candidate.Title == "" || seen[candidate.Title] {
			continue
		}

		item := candidate
		if c.Len() > 0 {
			var ok bool
			item, ok = c.Lookup(candidate.Title)
			if !ok {
				continue
			}
		}

		seen[candidate.Title] = true
		out = append(out, item)
	}

	return out
}
