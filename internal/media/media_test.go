package media

import "testing"

func TestRegistryAddCountRemove(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Add(Video, "a.mp4"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := reg.Add(Video, "b.mp4"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := reg.Add(Audio, "song.mp3"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := reg.Count(Video); got != 2 {
		t.Errorf("Count(Video) = %d, want 2", got)
	}
	if !reg.Remove(Video, "a.mp4") {
		t.Error("Remove should report success")
	}
	if reg.Remove(Video, "a.mp4") {
		t.Error("second Remove should report failure")
	}
	if got := reg.Count(Video); got != 1 {
		t.Errorf("Count(Video) after remove = %d, want 1", got)
	}

	reg.Clear(Audio)
	if got := reg.Count(Audio); got != 0 {
		t.Errorf("Count(Audio) after clear = %d", got)
	}
}

func TestRegistryRejectsBadInput(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Add(Kind("hologram"), "x"); err == nil {
		t.Error("unknown kind should be rejected")
	}
	if _, err := reg.Add(Video, "   "); err == nil {
		t.Error("empty locator should be rejected")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Video, "a.mp4")
	reg.Add(Video, "b.mp4")

	snap := reg.Snapshot()

	// Edits after the snapshot must not leak into it.
	reg.Add(Video, "c.mp4")
	reg.Remove(Video, "a.mp4")

	refs := snap.Refs(Video)
	if len(refs) != 2 {
		t.Fatalf("snapshot refs = %d, want 2", len(refs))
	}
	if refs[0].Locator != "a.mp4" || refs[1].Locator != "b.mp4" {
		t.Errorf("snapshot order changed: %v", refs)
	}
}

func TestSnapshotVisualsOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Image, "pic.png")
	reg.Add(Video, "a.mp4")
	reg.Add(GIF, "loop.gif")
	reg.Add(Audio, "song.mp3")

	vis := reg.Snapshot().Visuals()
	if len(vis) != 3 {
		t.Fatalf("visuals = %d, want 3", len(vis))
	}
	// Videos lead, then images, then GIFs.
	if vis[0].Kind != Video || vis[1].Kind != Image || vis[2].Kind != GIF {
		t.Errorf("visual order = %v", vis)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Video "); err != nil || k != Video {
		t.Errorf("ParseKind(Video) = %v, %v", k, err)
	}
	if _, err := ParseKind("nope"); err == nil {
		t.Error("ParseKind should reject unknown kinds")
	}
}

func TestKindForPath(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"clip.mp4", Video},
		{"clip.MKV", Video},
		{"song.mp3", Audio},
		{"pic.PNG", Image},
		{"loop.gif", GIF},
		{"noext", Video},
	}
	for _, tt := range tests {
		if got := KindForPath(tt.path); got != tt.want {
			t.Errorf("KindForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}
