// Package history persists the playback position of every opened stream so it
// can be resumed later.
package history

import (
	"time"

	"github.com/hlsplay/hlsplay/filesystem"
	"github.com/hlsplay/hlsplay/where"
	"github.com/metafates/gache"
	"github.com/samber/mo"
)

const (
	// positions closer than this to either end are not worth resuming
	minResume      = 5.0
	finishedMargin = 10.0
)

var cacher = gache.New[map[string]*Position](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every saved position keyed by URL.
func Get() (map[string]*Position, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Position), nil
	}
	return cached, nil
}

// Save records position t of a stream lasting duration seconds.
func Save(url string, t, duration float64, quality string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	saved[url] = &Position{
		URL:      url,
		Time:     t,
		Duration: duration,
		Quality:  quality,
		SavedAt:  time.Now(),
	}
	return cacher.Set(saved)
}

// Remove forgets the position of url.
func Remove(url string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, url)
	return cacher.Set(saved)
}

// Clear forgets every position.
func Clear() error {
	return cacher.Set(make(map[string]*Position))
}

// Resume returns where url should start, if there is anything to resume.
func Resume(url string) mo.Option[float64] {
	saved, err := Get()
	if err != nil {
		return mo.None[float64]()
	}

	p, ok := saved[url]
	if !ok || p.Time < minResume || p.Finished() {
		return mo.None[float64]()
	}
	return mo.Some(p.Time)
}
