/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package vote

import (
	"math/rand/v2"
	"strings"

	"github.com/Seednode/filmvote/catalog"
)

// Style selects how many films leave the pool per elimination.
type Style string

const (
	OneByOne   Style = "one-by-one"
	FiftyFifty Style = "fifty-fifty"
	Hybrid     Style = "hybrid"

	DefaultHybridThreshold = 10
)

// ParseStyle accepts the canonical names plus their underscore spellings.
// An empty string yields OneByOne.
func ParseStyle(s string) (Style, bool) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", string(OneByOne):
		return OneByOne, true
	case string(FiftyFifty):
		return FiftyFifty, true
	case string(Hybrid):
		return Hybrid, true
	default:
		return "", false
	}
}

// Shuffler permutes items in place.
type Shuffler func([]catalog.Item)

func randomShuffle(items []catalog.Item) {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// Engine holds the films of one vote. Remaining and Eliminated always
// partition the set passed to Start; groups are only populated while the
// active strategy is the paired-group one.
type Engine struct {
	Style     Style
	Threshold int

	Remaining  []catalog.Item
	Eliminated []catalog.Item
	GroupA     []catalog.Item
	GroupB     []catalog.Item

	shuffle Shuffler
}

func NewEngine(shuffle Shuffler) *Engine {
	if shuffle == nil {
		shuffle = randomShuffle
	}

	return &Engine{
		Style:     OneByOne,
		Threshold: DefaultHybridThreshold,
		shuffle:   shuffle,
	}
}

// Start shuffles films into the pool and prepares the first pair of groups
// if the style calls for them.
func (e *Engine) Start(films []catalog.Item, style Style, threshold int) {
	e.Style = style
	e.Threshold = threshold

	e.Remaining = make([]catalog.Item, len(films))
	copy(e.Remaining, films)
	e.shuffle(e.Remaining)

	e.Eliminated = []catalog.Item{}
	e.GroupA, e.GroupB = nil, nil

	if e.grouped() {
		e.splitAtMidpoint()
	}
}

// Grouped reports whether the next elimination names a group rather than a film.
func (e *Engine) Grouped() bool {
	return e.grouped()
}

func (e *Engine) grouped() bool {
	switch e.Style {
	case FiftyFifty:
		return true
	case Hybrid:
		return len(e.Remaining) > e.Threshold
	default:
		return false
	}
}

// Eliminate applies one elimination using whichever strategy is active for
// the current pool size. It returns false and leaves state untouched when
// the payload does not fit that strategy.
func (e *Engine) Eliminate(film, group string) bool {
	if len(e.Remaining) < 2 {
		return false
	}

	var ok bool
	if e.grouped() {
		ok = e.eliminateGroup(group)
	} else {
		ok = e.eliminateFilm(film)
	}
	if !ok {
		return false
	}

	e.regroup()

	return true
}

func (e *Engine) eliminateFilm(title string) bool {
	if title == "" {
		return false
	}

	for i, item := range e.Remaining {
		if item.Title != title {
			continue
		}

		e.Remaining = append(e.Remaining[:i:i], e.Remaining[i+1:]...)
		e.Eliminated = append(e.Eliminated, item)

		return true
	}

	return false
}

func (e *Engine) eliminateGroup(tag string) bool {
	var out, keep []catalog.Item

	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "A":
		out, keep = e.GroupA, e.GroupB
	case "B":
		out, keep = e.GroupB, e.GroupA
	default:
		return false
	}

	if len(out) == 0 || len(keep) == 0 {
		return false
	}

	e.Eliminated = append(e.Eliminated, out...)
	e.Remaining = make([]catalog.Item, len(keep))
	copy(e.Remaining, keep)

	return true
}

// regroup refreshes the groups after an elimination. Crossing the hybrid
// threshold clears them.
func (e *Engine) regroup() {
	if !e.grouped() {
		e.GroupA, e.GroupB = nil, nil
		return
	}

	switch {
	case len(e.Remaining) > 2:
		e.shuffle(e.Remaining)
		e.splitAtMidpoint()
	case len(e.Remaining) == 2:
		e.splitAtMidpoint()
	default:
		e.GroupA, e.GroupB = nil, nil
	}
}

// splitAtMidpoint puts the lower half in A; odd counts give B the extra item.
func (e *Engine) splitAtMidpoint() {
	mid := len(e.Remaining) / 2

	e.GroupA = make([]catalog.Item, mid)
	copy(e.GroupA, e.Remaining[:mid])

	e.GroupB = make([]catalog.Item, len(e.Remaining)-mid)
	copy(e.GroupB, e.Remaining[mid:])
}
