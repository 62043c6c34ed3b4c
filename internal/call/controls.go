package call

import "fmt"

// AudioRoute selects the output device during a call.
type AudioRoute int

const (
	Earpiece AudioRoute = iota
	Speaker
)

func (r AudioRoute) String() string {
	switch r {
	case Earpiece:
		return "earpiece"
	case Speaker:
		return "speaker"
	default:
		return fmt.Sprintf("AudioRoute(%d)", int(r))
	}
}

// Toggle switches between earpiece and speaker.
func (r AudioRoute) Toggle() AudioRoute {
	if r == Speaker {
		return Earpiece
	}
	return Speaker
}

// CameraState is the local camera state of a video call.
type CameraState int

const (
	CameraOn CameraState = iota
	CameraOff
	CameraSwitching
)

func (c CameraState) String() string {
	switch c {
	case CameraOn:
		return "on"
	case CameraOff:
		return "off"
	case CameraSwitching:
		return "switching"
	default:
		return fmt.Sprintf("CameraState(%d)", int(c))
	}
}

// Controls is the local media state of one call. It is owned by a single
// goroutine; the media engine applying it is external.
type Controls struct {
	Muted  bool
	Audio  AudioRoute
	Camera CameraState
}

// NewControls returns the initial controls: speaker and camera on for video
// calls, earpiece and camera off for voice calls.
func NewControls(isVideo bool) Controls {
	if isVideo {
		return Controls{Audio: Speaker, Camera: CameraOn}
	}
	return Controls{Audio: Earpiece, Camera: CameraOff}
}

// ToggleCamera turns the camera on or off. It is a no-op while switching.
func (c *Controls) ToggleCamera() {
	switch c.Camera {
	case CameraOn:
		c.Camera = CameraOff
	case CameraOff:
		c.Camera = CameraOn
	}
}

// BeginSwitch marks a front/back camera switch in progress. It returns false
// when the camera is not on.
func (c *Controls) BeginSwitch() bool {
	if c.Camera != CameraOn {
		return false
	}
	c.Camera = CameraSwitching
	return true
}

// EndSwitch completes a camera switch.
func (c *Controls) EndSwitch() {
	if c.Camera == CameraSwitching {
		c.Camera = CameraOn
	}
}
