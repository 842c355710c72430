package markup

import "testing"

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		value   int
		wantCur int
		wantMax int
	}{
		{"fraction", "health 175/175", 100, 175, 175},
		{"partial fraction", "mana 386/407", 94, 386, 407},
		{"spaced fraction", "concentration 12 / 80", 0, 12, 80},
		{"percentage", "defensive (100%)", 0, 100, 100},
		{"label only", "stance", 42, 42, 100},
		{"empty", "", 7, 7, 100},
		{"fraction wins over percent", "spirit 50/100 (50%)", 0, 50, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, maxVal := ParseProgress(tt.text, tt.value)
			if cur != tt.wantCur || maxVal != tt.wantMax {
				t.Errorf("ParseProgress(%q, %d) = (%d, %d), want (%d, %d)",
					tt.text, tt.value, cur, maxVal, tt.wantCur, tt.wantMax)
			}
		})
	}
}

func TestParseProgress_Overflow(t *testing.T) {
	cur, maxVal := ParseProgress("gold 99999999999999999999/1", 5)
	if cur != 5 || maxVal != 100 {
		t.Errorf("expected fallback on overflow, got (%d, %d)", cur, maxVal)
	}
}
