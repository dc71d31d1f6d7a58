package session

import (
	"context"

	"github.com/odmlbook/inkvision/hwr"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
)

// CachedRecognizer answers repeated recognitions of the same ink from the
// store.
type CachedRecognizer struct {
	next  hwr.Recognizer
	store *Store
}

func NewCachedRecognizer(next hwr.Recognizer, store *Store) *CachedRecognizer {
	return &CachedRecognizer{next: next, store: store}
}

func (c *CachedRecognizer) Recognize(ctx context.Context, in ink.Ink) (hwr.Result, error) {
	hash := HashInk(in)
	if r, ok, err := c.store.Lookup(hash); err != nil {
		log.Warning.Printf("recognition cache unavailable: %v", err)
	} else if ok {
		log.Trace.Printf("ink %s: cached result %s", in.ID, hash[:12])
		return r, nil
	}

	r, err := c.next.Recognize(ctx, in)
	if err != nil {
		return r, err
	}
	if err := c.store.Put(hash, r); err != nil {
		log.Warning.Printf("can't cache recognition result: %v", err)
	}
	return r, nil
}
