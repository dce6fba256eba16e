package config

import "testing"

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	old := validConfig()
	new := validConfig()

	d := Diff(old, new)
	if d.Any() {
		t.Errorf("Diff of identical configs = %+v, want empty", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()

	old := validConfig()
	new := validConfig()
	new.Server.LogLevel = LogDebug

	d := Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Errorf("Diff = %+v, want log level change to debug", d)
	}
	if d.SchedulingChanged {
		t.Error("SchedulingChanged should be false")
	}
}

func TestDiff_Scheduling(t *testing.T) {
	t.Parallel()

	old := validConfig()
	new := validConfig()
	new.Scheduling.AttendeeEmail = "boss@example.com"

	d := Diff(old, new)
	if !d.SchedulingChanged {
		t.Fatalf("Diff = %+v, want scheduling change", d)
	}
	if d.NewScheduling.AttendeeEmail != "boss@example.com" {
		t.Errorf("NewScheduling = %+v", d.NewScheduling)
	}
	if d.LogLevelChanged {
		t.Error("LogLevelChanged should be false")
	}
}

func TestDiff_IgnoresRestartOnlyFields(t *testing.T) {
	t.Parallel()

	old := validConfig()
	new := validConfig()
	new.Providers.LLM.Model = "gpt-5"
	new.Session.Backend = SessionPostgres
	new.Session.PostgresDSN = "postgres://localhost/schedvox"

	if d := Diff(old, new); d.Any() {
		t.Errorf("Diff = %+v, provider/session changes must not be hot-reloadable", d)
	}
}
