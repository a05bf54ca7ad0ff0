package provider

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// ErrNoNewFrame is returned by Grab(GrabNoWait) when no frame newer than
// the previous grab is available.
var ErrNoNewFrame = errors.New("provider: no new frame available")

// DisplayGeometry opens a connection to the given X display (empty means
// $DISPLAY) only long enough to read the root screen dimensions. Used by
// callers that want to capture the full framebuffer without hardcoding a
// size.
func DisplayGeometry(display string) (Geometry, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return Geometry{}, fmt.Errorf("provider: unable to open display: %w", err)
	}
	defer conn.Close()

	screen := xproto.Setup(conn).DefaultScreen(conn)
	return Geometry{
		Width:  int(screen.WidthInPixels),
		Height: int(screen.HeightInPixels),
	}, nil
}
