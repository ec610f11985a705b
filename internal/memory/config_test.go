package memory

import (
	"math"
	"os"
	"runtime/debug"
	"testing"
)

// isolateMemoryEnv clears the variables ConfigureFromEnv reads and restores
// the runtime limit afterwards.
func isolateMemoryEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GOMEMLIMIT", "MEMORY_LIMIT", "MEMORY_RATIO"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })
}

func TestConfigureFromEnvNoVariables(t *testing.T) {
	isolateMemoryEnv(t)

	result := ConfigureFromEnv()
	if result.Configured || result.Source != sourceNone {
		t.Errorf("result = %+v, want unconfigured", result)
	}
	if result.ContainerLimit != 0 || result.GoMemLimit != 0 || result.Ratio != 0 {
		t.Errorf("result = %+v, want zero values", result)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	tests := []struct {
		name      string
		ratio     string
		wantRatio float64
	}{
		{"default ratio", "", DefaultMemoryRatio},
		{"custom ratio", "0.5", 0.5},
		{"full ratio", "1", 1},
		{"ratio too large", "1.5", DefaultMemoryRatio},
		{"ratio zero", "0", DefaultMemoryRatio},
		{"ratio not a number", "half", DefaultMemoryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateMemoryEnv(t)
			os.Setenv("MEMORY_LIMIT", "1073741824")
			if tt.ratio != "" {
				os.Setenv("MEMORY_RATIO", tt.ratio)
			}

			result := ConfigureFromEnv()
			if !result.Configured || result.Source != sourceMemoryLimit {
				t.Fatalf("result = %+v", result)
			}
			if result.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.wantRatio)
			}
			want := int64(float64(1073741824) * tt.wantRatio)
			if result.GoMemLimit != want {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, want)
			}
			if got := debug.SetMemoryLimit(-1); got != want {
				t.Errorf("runtime limit = %d, want %d", got, want)
			}
		})
	}
}

func TestConfigureFromEnvInvalidLimit(t *testing.T) {
	for _, value := range []string{"lots", "-1", "0"} {
		t.Run(value, func(t *testing.T) {
			isolateMemoryEnv(t)
			os.Setenv("MEMORY_LIMIT", value)

			before := debug.SetMemoryLimit(-1)
			result := ConfigureFromEnv()
			if result.Configured {
				t.Errorf("result = %+v, want unconfigured", result)
			}
			if got := debug.SetMemoryLimit(-1); got != before {
				t.Errorf("runtime limit changed to %d", got)
			}
		})
	}
}

func TestConfigureFromEnvGOMEMLIMITWins(t *testing.T) {
	isolateMemoryEnv(t)
	os.Setenv("GOMEMLIMIT", "500MiB")
	os.Setenv("MEMORY_LIMIT", "1073741824")

	// The runtime reads GOMEMLIMIT only at startup.
	debug.SetMemoryLimit(500 << 20)

	result := ConfigureFromEnv()
	if !result.Configured || result.Source != sourceGOMEMLIMIT {
		t.Fatalf("result = %+v", result)
	}
	if result.GoMemLimit != 500<<20 {
		t.Errorf("GoMemLimit = %d", result.GoMemLimit)
	}
	if result.ContainerLimit != 0 {
		t.Errorf("ContainerLimit = %d, MEMORY_LIMIT should be ignored", result.ContainerLimit)
	}
}

func TestConfigureFromEnvGOMEMLIMITWithoutLimit(t *testing.T) {
	isolateMemoryEnv(t)
	os.Setenv("GOMEMLIMIT", "off")
	debug.SetMemoryLimit(math.MaxInt64)

	result := ConfigureFromEnv()
	if result.Configured {
		t.Errorf("result = %+v, want unconfigured", result)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:         "0 B",
		1023:      "1023 B",
		1024:      "1.0 KiB",
		1536:      "1.5 KiB",
		1 << 20:   "1.0 MiB",
		268435456: "256.0 MiB",
		5 << 30:   "5.0 GiB",
		3 << 40:   "3.0 TiB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
