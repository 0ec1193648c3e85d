package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got, want := topics.LoadingEvent("S1"), "wagonloader/event/loading/S1"; got != want {
		t.Errorf("LoadingEvent() = %q, want %q", got, want)
	}
	if got, want := topics.SystemStatus(), "wagonloader/system/status"; got != want {
		t.Errorf("SystemStatus() = %q, want %q", got, want)
	}
}
