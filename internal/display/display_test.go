package display

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"cloudpico-client/internal/station"
)

func TestLines(t *testing.T) {
	tests := []struct {
		name    string
		reading station.SensorReading
		want    []string
	}{
		{
			name:    "rainy night good air",
			reading: station.SensorReading{Temperature: 25, Humidity: "61.0", RainRaw: 2000, LightRaw: 4000, AirRaw: 500},
			want:    []string{"Temp: 25.0 C", "Humidity: 61.0 %", "Rain: Yes", "Light: Night", "Air Q: Good"},
		},
		{
			name:    "dry day bad air",
			reading: station.SensorReading{Temperature: 31.26, Humidity: "40", RainRaw: 3500, LightRaw: 1000, AirRaw: 1500},
			want:    []string{"Temp: 31.3 C", "Humidity: 40 %", "Rain: No", "Light: Daytime", "Air Q: Bad"},
		},
		{
			name:    "at thresholds",
			reading: station.SensorReading{Temperature: 20, Humidity: "55", RainRaw: 3000, LightRaw: 3000, AirRaw: 1000},
			want:    []string{"Temp: 20.0 C", "Humidity: 55 %", "Rain: No", "Light: Daytime", "Air Q: Bad"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines(tt.reading, station.DefaultThresholds)
			if len(got) != 5 {
				t.Fatalf("len(Lines) = %d, want 5", len(got))
			}
			for i, l := range got {
				if l.Text != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, l.Text, tt.want[i])
				}
				if l.X != 0 || l.Y != 10*(i+1) {
					t.Errorf("line %d at (%d,%d), want (0,%d)", i, l.X, l.Y, 10*(i+1))
				}
			}
		})
	}
}

func TestFrame(t *testing.T) {
	img := Frame([]Line{{X: 0, Y: 10, Text: "Humidity: 61.5 %"}})

	if got := img.Bounds().Dx(); got != Width {
		t.Fatalf("width = %d, want %d", got, Width)
	}
	if got := img.Bounds().Dy(); got != Height {
		t.Fatalf("height = %d, want %d", got, Height)
	}

	lit := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if img.BitAt(x, y) == image1bit.On {
				lit++
				if y < 10 || y >= 20 {
					t.Fatalf("pixel (%d,%d) lit outside the row band [10,20)", x, y)
				}
			}
		}
	}
	if lit == 0 {
		t.Fatal("no pixels lit")
	}

	full := Frame(Lines(station.SensorReading{Temperature: 25, Humidity: "61.5", RainRaw: 2000, LightRaw: 4000, AirRaw: 500}, station.DefaultThresholds))
	for row := 1; row <= 5; row++ {
		rowLit := false
		for y := 10 * row; y < 10*row+10 && !rowLit; y++ {
			for x := 0; x < Width; x++ {
				if full.BitAt(x, y) == image1bit.On {
					rowLit = true
					break
				}
			}
		}
		if !rowLit {
			t.Errorf("row %d has no lit pixels", row)
		}
	}

	if blank := Frame(nil); blank.BitAt(5, 15) != image1bit.Off {
		t.Error("empty frame has lit pixels")
	}
}

func TestTerminalDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplay(&buf)
	lines := Lines(station.SensorReading{Temperature: 19.5, Humidity: "70", RainRaw: 100, LightRaw: 100, AirRaw: 100}, station.DefaultThresholds)

	if err := d.Show(lines); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Temp: 19.5 C", "Humidity: 70 %", "Rain: Yes", "Light: Daytime", "Air Q: Good"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "\n") < 7 {
		t.Errorf("expected a bordered box of at least 7 rows, got:\n%s", out)
	}
}

func TestLogDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDisplay(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := d.Show([]Line{{Text: "Rain: No"}}); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Rain: No") {
		t.Errorf("log output missing line text: %q", buf.String())
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
