package filter

import "testing"

func TestCheck(t *testing.T) {
	f := New([]string{"PORN", " xxx ", "", "hentai"})

	tests := []struct {
		filename    string
		wantKeyword string
		wantOK      bool
	}{
		{"holiday_video.mp4", "", true},
		{"family.dinner.2025.mkv", "", true},
		{"porn_clip.mp4", "porn", false},
		{"My.PORN.Collection.mp4", "porn", false},
		{"vacation_xxx_edit.avi", "xxx", false},
		{"HENTAI-episode-3.mkv", "hentai", false},
		{"", "", true},
	}
	for _, tt := range tests {
		keyword, ok := f.Check(tt.filename)
		if ok != tt.wantOK || keyword != tt.wantKeyword {
			t.Errorf("Check(%q) = (%q, %v), want (%q, %v)",
				tt.filename, keyword, ok, tt.wantKeyword, tt.wantOK)
		}
	}
}

func TestCheckEmptyBlocklist(t *testing.T) {
	f := New(nil)
	if keyword, ok := f.Check("anything_at_all.mp4"); !ok || keyword != "" {
		t.Errorf("empty blocklist blocked %q", keyword)
	}
}
