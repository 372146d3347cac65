package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: VerbosityInfo},
		{name: "Console output mode", jsonOutput: false, verbosity: VerbosityDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			if err := Initialize(tt.jsonOutput, tt.verbosity); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if Logger == nil {
				t.Fatal("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}
			if !Logger.Desugar().Core().Enabled(VerbosityToLevel(tt.verbosity)) {
				t.Errorf("level %v not enabled", VerbosityToLevel(tt.verbosity))
			}

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	cases := map[int]zapcore.Level{
		-1:             zapcore.WarnLevel,
		VerbosityUser:  zapcore.WarnLevel,
		VerbosityInfo:  zapcore.InfoLevel,
		VerbosityDebug: zapcore.DebugLevel,
		VerbosityAll:   zapcore.DebugLevel,
		9:              zapcore.DebugLevel,
	}
	for v, want := range cases {
		if got := VerbosityToLevel(v); got != want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestShouldOutput(t *testing.T) {
	if !ShouldOutput(VerbosityUser, OutputErrors) {
		t.Error("errors must always be shown")
	}
	if ShouldOutput(VerbosityInfo, OutputRenderCalls) {
		t.Error("render calls shown at -v")
	}
	if !ShouldOutput(VerbosityTrace, OutputRenderCalls) {
		t.Error("render calls hidden at -vvv")
	}
	if ShouldOutput(VerbosityTrace, OutputCategory(999)) {
		t.Error("unknown category shown below -vvvv")
	}
}

func TestFieldsFromContext(t *testing.T) {
	ctx := WithSessionID(context.Background(), "s1")
	ctx = WithComponent(ctx, "session")

	fields := FieldsFromContext(ctx)
	want := []interface{}{FieldSessionID, "s1", FieldComponent, "session"}
	if len(fields) != len(want) {
		t.Fatalf("got %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d = %v, want %v", i, fields[i], want[i])
		}
	}

	if got := FieldsFromContext(context.Background()); len(got) != 0 {
		t.Errorf("empty context produced fields %v", got)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample().Sugar()
	if OrNop(l) != l {
		t.Error("OrNop replaced a non-nil logger")
	}
}

func TestLoggingFunctionsNilSafe(t *testing.T) {
	Logger = nil
	defer func() { Logger = zap.NewNop().Sugar() }()

	Infow("x")
	Infof("%d", 1)
	Warnw("x")
	Errorw("x")
	Debugw("x")
	Cleanup()
}
