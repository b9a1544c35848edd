package service

import "testing"

func TestBarSizeStr(t *testing.T) {
	cases := map[int]string{
		30:   "30 secs",
		60:   "1 min",
		300:  "5 mins",
		900:  "15 mins",
		3600: "1 hour",
		7200: "2 hours",
	}
	for sec, want := range cases {
		if got := barSizeStr(sec); got != want {
			t.Errorf("barSizeStr(%d) = %q, want %q", sec, got, want)
		}
	}
}

func TestDurationStr(t *testing.T) {
	if got := durationStr(23100); got != "23100 S" {
		t.Fatalf("duration = %q, want \"23100 S\"", got)
	}
}
