package stream

import (
	"context"
	"fmt"

	"github.com/hlsplay/hlsplay/player"
)

// NativeEngine hands the URL straight to the surface. There is no ladder, so
// level selection is unavailable.
type NativeEngine struct {
	base
}

func NewNativeEngine() *NativeEngine {
	return &NativeEngine{}
}

func (n *NativeEngine) Name() string { return "native" }

func (n *NativeEngine) Attach(el player.Element) {
	n.attach(el, n.onSurface)
}

func (n *NativeEngine) Load(ctx context.Context, url string, start float64) error {
	el := n.element()
	if el == nil {
		return fmt.Errorf("native engine: not attached")
	}

	n.beginLoad(url)

	if err := el.Load(ctx, url, start); err != nil {
		return n.fail(classify(err), fmt.Errorf("load media: %w", err))
	}
	return nil
}

func (n *NativeEngine) Destroy() {
	n.destroy()
}

func (n *NativeEngine) CurrentLevel() int { return -1 }

func (n *NativeEngine) SetCurrentLevel(context.Context, int) error {
	return fmt.Errorf("native playback has no quality levels")
}
