package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	fg     string
	time   string
	id     string
	number string
	accent []string
	warn   string
	warnBg string
	err    string
	errBg  string
}

var themes = map[string]palette{
	// Everforest Dark: natural forest greens
	"everforest": {
		fg:     "\x1b[38;5;223m",
		time:   "\x1b[38;5;107m",
		id:     "\x1b[38;5;109m",
		number: "\x1b[38;5;108m",
		accent: []string{"\x1b[38;5;108m", "\x1b[38;5;65m", "\x1b[38;5;208m"},
		warn:   "\x1b[38;5;179m",
		warnBg: "\x1b[48;5;58m",
		err:    "\x1b[38;5;167m",
		errBg:  "\x1b[48;5;52m",
	},
	// Gruvbox Dark: warm, muted
	"gruvbox": {
		fg:     "\x1b[38;5;223m",
		time:   "\x1b[38;5;108m",
		id:     "\x1b[38;5;109m",
		number: "\x1b[38;5;175m",
		accent: []string{"\x1b[38;5;208m", "\x1b[38;5;214m"},
		warn:   "\x1b[38;5;214m",
		warnBg: "\x1b[48;5;58m",
		err:    "\x1b[38;5;167m",
		errBg:  "\x1b[48;5;88m",
	},
}

var currentTheme = "everforest"

// SetTheme configures the color scheme for console output.
// Unknown theme names are ignored.
func SetTheme(theme string) {
	if _, ok := themes[theme]; ok {
		currentTheme = theme
	}
}

func colors() palette {
	return themes[currentTheme]
}

// colorComponent hashes the logger name so each component keeps one color.
func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	accent := colors().accent
	return accent[hash%len(accent)]
}

// minimalEncoder is a compact console encoder.
// Format: "13:04:35  s.selection  Detail shown  17 (240x180)"
type minimalEncoder struct {
	zapcore.Encoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone()}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := buffer.NewPool().Get()

	final.AppendString(c.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	if lvl := levelColorString(ent.Level); lvl != "" {
		final.AppendString("  ")
		final.AppendString(lvl)
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(c.fg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if values := extractFieldValues(fields); values != "" {
		final.AppendString("  ")
		final.AppendString(values)
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN and above
func levelColorString(level zapcore.Level) string {
	c := colors()
	switch level {
	case zapcore.DebugLevel:
		return c.id + "DEBUG" + colorReset
	case zapcore.InfoLevel:
		return ""
	case zapcore.WarnLevel:
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	default:
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	}
}

// abbreviateName shortens component names: session.selection -> s.selection
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		if field.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// extractFieldValues renders well-known fields as bare colored values and
// everything else as key=value. Fields are never dropped.
// Input:  {"detail_id": 17, "width": 240, "height": 180, "kind": "topic"}
// Output: "17 kind=topic (240x180)"
func extractFieldValues(fields []zapcore.Field) string {
	c := colors()
	var values []string
	var width, height string

	for _, field := range fields {
		val := getFieldValue(field)
		if val == "" {
			continue
		}
		switch field.Key {
		case FieldSessionID, FieldClientID, FieldObjectID, FieldTopicID, FieldAssocID, FieldDetailID, FieldTopicmapID:
			values = append(values, c.id+val+colorReset)
		case FieldPhase, FieldDirective, FieldRevealType:
			values = append(values, c.fg+val+colorReset)
		case FieldDurationMS:
			values = append(values, c.number+val+colorReset+"ms")
		case FieldCount:
			values = append(values, c.number+val+colorReset+"x")
		case FieldWidth:
			width = val
		case FieldHeight:
			height = val
		case FieldError:
			values = append(values, c.err+val+colorReset)
		default:
			values = append(values, field.Key+"="+val)
		}
	}

	if width != "" && height != "" {
		values = append(values, c.fg+"("+c.number+width+"x"+height+colorReset+c.fg+")"+colorReset)
	}

	return strings.Join(values, " ")
}
