package display

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// GlyphSize is the pixel height of the panel font. Rows are 10px apart, so
// an 8px face keeps each row's descenders clear of the next row's caps.
const GlyphSize = 8

var (
	faceMu    sync.Mutex
	panelFace = mustPanelFace()
)

func mustPanelFace() font.Face {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse go mono: %v", err))
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    GlyphSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		panic(fmt.Sprintf("go mono face: %v", err))
	}
	return face
}

// SSD1306Display drives a 128x64 SSD1306 OLED on an I2C bus.
type SSD1306Display struct {
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// OpenSSD1306 opens the named I2C bus ("" for the first one) and the panel on it.
func OpenSSD1306(busName string) (*SSD1306Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	opts := ssd1306.DefaultOpts
	opts.W, opts.H = Width, Height
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("ssd1306: %w", err)
	}
	return &SSD1306Display{bus: bus, dev: dev}, nil
}

func (d *SSD1306Display) Show(lines []Line) error {
	img := Frame(lines)
	if err := d.dev.Draw(d.dev.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306 draw: %w", err)
	}
	return nil
}

func (d *SSD1306Display) Close() error {
	haltErr := d.dev.Halt()
	if err := d.bus.Close(); err != nil {
		return err
	}
	return haltErr
}

// Frame rasterizes lines into a blank 1-bit image the size of the panel.
func Frame(lines []Line) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: panelFace,
	}
	faceMu.Lock()
	defer faceMu.Unlock()
	ascent := panelFace.Metrics().Ascent.Ceil()
	for _, l := range lines {
		drawer.Dot = fixed.P(l.X, l.Y+ascent)
		drawer.DrawString(l.Text)
	}
	return img
}
