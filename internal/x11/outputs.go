package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	// Initialize RandR if not already done
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	// Get screen resources
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor

	// Query each CRTC for active monitors
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		// Get output name
		outputName := fmt.Sprintf("Monitor%d", i)
		if len(crtcInfo.Outputs) > 0 {
			outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
			if err == nil {
				outputName = string(outputInfo.Name)
			}
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}

	return monitors, nil
}

// Outputs caches monitor geometry for point-to-output lookups during
// reconciliation. Call Refresh when the server reports an output change.
type Outputs struct {
	conn     *Connection
	monitors []Monitor
}

// NewOutputs queries the initial monitor layout.
func NewOutputs(c *Connection) (*Outputs, error) {
	o := &Outputs{conn: c}
	if err := o.Refresh(); err != nil {
		return nil, err
	}
	return o, nil
}

// Refresh re-reads the monitor layout from the server.
func (o *Outputs) Refresh() error {
	monitors, err := o.conn.GetMonitors()
	if err != nil {
		return err
	}
	if len(monitors) == 0 {
		// A single-output setup without usable RandR data still needs a
		// geometry to compare pointer positions against.
		monitors = []Monitor{{
			ID:     0,
			Name:   "default",
			Width:  int(o.conn.screen.WidthInPixels),
			Height: int(o.conn.screen.HeightInPixels),
		}}
	}
	o.monitors = monitors
	return nil
}

// OutputAt returns the ID of the monitor containing the point, or -1 when
// the point is outside every monitor.
func (o *Outputs) OutputAt(x, y int) int {
	for i := range o.monitors {
		mon := &o.monitors[i]
		if x >= mon.X && x < mon.X+mon.Width &&
			y >= mon.Y && y < mon.Y+mon.Height {
			return mon.ID
		}
	}
	return -1
}
