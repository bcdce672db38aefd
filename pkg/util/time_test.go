package util

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{90 * time.Second, "00:01:30.000"},
		{3661*time.Second + 500*time.Millisecond, "01:01:01.500"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(1500 * time.Millisecond); got != "1.500" {
		t.Errorf("FormatSeconds = %q, want 1.500", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"45.5", 45*time.Second + 500*time.Millisecond, false},
		{"1:30", 90 * time.Second, false},
		{"01:01:01.5", 3661*time.Second + 500*time.Millisecond, false},
		{" 10 ", 10 * time.Second, false},
		{"nope", 0, true},
		{"1:2:3:4", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30/1"); got != 30 {
		t.Errorf("ParseFrameRate(30/1) = %v, want 30", got)
	}
	if got := ParseFrameRate("30000/1001"); got < 29.9 || got > 30.0 {
		t.Errorf("ParseFrameRate(30000/1001) = %v, want ~29.97", got)
	}
	if got := ParseFrameRate("bad"); got != 0 {
		t.Errorf("ParseFrameRate(bad) = %v, want 0", got)
	}
	if got := ParseFrameRate("1/0"); got != 0 {
		t.Errorf("ParseFrameRate(1/0) = %v, want 0", got)
	}
}

func TestEnsureExt(t *testing.T) {
	if got := EnsureExt("out", ".mp4"); got != "out.mp4" {
		t.Errorf("EnsureExt = %q", got)
	}
	if got := EnsureExt("out.MP4", ".mp4"); got != "out.MP4" {
		t.Errorf("EnsureExt should keep existing extension, got %q", got)
	}
}
