package x_log

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

//
// ---------- IBM Carbon Colors ----------

const (
	ColorTeal40    = "#3ddbd9"
	ColorBlue60    = "#4589ff"
	ColorBlue40    = "#78a9ff"
	ColorBlue70    = "#0043ce"
	ColorBlueBase  = "#0f62fe"
	ColorRed60     = "#da1e28"
	ColorRedStrong = "#ff0000"
	ColorOrange40  = "#ff832b"
	ColorGray60    = "#8d8d8d"
	ColorGray10    = "#f4f4f4"
	ColorGray90    = "#262626"
)

//
// ---------- Styles Definition ----------

// Styles defines all formatting styles used for structured output
type Styles struct {
	Out               io.Writer                        // output target
	NoColor           bool                             // plain output, e.g. when not a TTY
	Timestamp         lipgloss.Style                   // style for timestamps
	Levels            map[zerolog.Level]lipgloss.Style // level-to-style mapping
	Keys              map[string]lipgloss.Style        // custom field keys
	Values            map[string]lipgloss.Style        // custom field values
	DefaultKeyStyle   lipgloss.Style                   // fallback for unknown keys
	DefaultValueStyle lipgloss.Style                   // fallback for unknown values
}

//
// ---------- Theme Selectors ----------

// DefaultStylesByName returns a theme by name ("dark", "light")
func DefaultStylesByName(name string) *Styles {
	switch strings.ToLower(name) {
	case "light":
		return DefaultStylesLight()
	default:
		return DefaultStylesDark()
	}
}

//
// ---------- Console Formatter ----------

// levelColor maps a zerolog level name to its badge color.
func levelColor(lvl string) string {
	switch lvl {
	case "debug":
		return ColorTeal40
	case "info":
		return ColorBlue60
	case "warn":
		return ColorOrange40
	case "error":
		return ColorRed60
	case "fatal", "panic":
		return ColorRedStrong
	default:
		return ColorGray60
	}
}

// ConsoleWriterWithStyles builds a zerolog.ConsoleWriter with styles
func ConsoleWriterWithStyles(styles *Styles) zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{
		Out:        styles.Out,
		NoColor:    styles.NoColor,
		TimeFormat: "01-02 15:04:05",
	}
	if styles.NoColor {
		return w
	}

	w.FormatLevel = func(i any) string {
		lvl := strings.ToLower(fmt.Sprint(i))
		label := strings.ToUpper(lvl)
		if len(label) > 3 {
			label = label[:3]
		}
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color(levelColor(lvl))).
			Padding(0, 1).
			Render(label)
	}

	w.FormatTimestamp = func(i any) string {
		return styles.Timestamp.Render(fmt.Sprintf("[%s]", i))
	}

	w.FormatFieldName = func(i any) string {
		key := fmt.Sprint(i)
		style, ok := styles.Keys[key]
		if !ok {
			style = styles.DefaultKeyStyle
		}
		eqStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray60))
		return style.Render(key) + eqStyle.Render("=")
	}

	w.FormatMessage = func(i any) string {
		if i == nil {
			return ""
		}
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray10)).
			Render(fmt.Sprint(i))
	}

	return w
}

//
// ---------- Dark Theme ----------

func DefaultStylesDark() *Styles {
	return &Styles{
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray60)),

		DefaultKeyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue40)),

		DefaultValueStyle: lipgloss.NewStyle(),

		Levels: map[zerolog.Level]lipgloss.Style{
			zerolog.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTeal40)),
			zerolog.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue60)),
			zerolog.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorOrange40)),
			zerolog.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed60)),
			zerolog.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRedStrong)),
		},

		Keys: map[string]lipgloss.Style{
			"module": lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue40)),
			"table":  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue40)),
			"op":     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue40)),
			"pk":     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue40)),
			"user":   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue40)),
			"error":  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed60)),
		},

		Values: map[string]lipgloss.Style{
			"user":  lipgloss.NewStyle().Italic(true),
			"table": lipgloss.NewStyle().Italic(true),
			"op":    lipgloss.NewStyle().Bold(true),
			"error": lipgloss.NewStyle().Bold(true),
		},
	}
}

//
// ---------- Light Theme ----------

func DefaultStylesLight() *Styles {
	return &Styles{
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray60)),

		DefaultKeyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlueBase)),

		DefaultValueStyle: lipgloss.NewStyle(),

		Levels: map[zerolog.Level]lipgloss.Style{
			zerolog.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray90)),
			zerolog.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlue70)),
			zerolog.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorOrange40)),
			zerolog.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed60)),
			zerolog.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRedStrong)),
		},

		Keys: map[string]lipgloss.Style{
			"module": lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlueBase)),
			"table":  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlueBase)),
			"op":     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlueBase)),
			"pk":     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlueBase)),
			"user":   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlueBase)),
			"error":  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed60)),
		},

		Values: map[string]lipgloss.Style{
			"user":  lipgloss.NewStyle().Italic(true),
			"table": lipgloss.NewStyle().Italic(true),
			"op":    lipgloss.NewStyle().Bold(true),
			"error": lipgloss.NewStyle().Bold(true),
		},
	}
}
