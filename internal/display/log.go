package display

import "log/slog"

// LogDisplay writes each frame to the logger. Used when no panel is attached.
type LogDisplay struct {
	logger *slog.Logger
}

func NewLogDisplay(logger *slog.Logger) *LogDisplay {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDisplay{logger: logger}
}

func (d *LogDisplay) Show(lines []Line) error {
	d.logger.Info("display", "lines", Texts(lines))
	return nil
}

func (d *LogDisplay) Close() error { return nil }
