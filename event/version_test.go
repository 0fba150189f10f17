package event

import "testing"

func TestVersionComparable(t *testing.T) {
	order := []Version{Version0, Version1, Version2, Version3, Version4, Version(5)}
	for i, ver := range order {
		if i > 0 {
			if older := order[i-1]; older > ver {
				t.Errorf(`expected Version%d(%q) > Version%[1]d(%[3]q)`, i, ver, older)
			}
		}
		if i < len(order)-1 {
			if newer := order[i+1]; newer < ver {
				t.Errorf(`expected Version%d(%q) < Version%[1]d(%[3]q)`, i, ver, newer)
			}
		}
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		ver Version
		exp string
	}{
		{Version0, `Version(#0)`},
		{Version1, `Version(#1)`},
		{Version4, `Version(#4)`},
		{Version(255), `Version(#255)`},
	}
	for i, test := range tests {
		t.Logf(`test #%v exp version %d String() to be %v`, i, test.ver, test.exp)
		if got := test.ver.String(); test.exp != got {
			t.Errorf(`expected version %d String() to be %v, got %v`,
				test.ver, test.exp, got)
		}
	}
}

func TestDescriptorAccepts(t *testing.T) {
	tests := []struct {
		since, until Version
		ver          Version
		exp          bool
	}{
		{0, 0, 0, true},
		{0, 0, 200, true},
		{0, 2, 1, true},
		{0, 2, 2, false},
		{2, 0, 1, false},
		{2, 0, 2, true},
		{2, 4, 3, true},
		{2, 4, 4, false},
	}
	for i, test := range tests {
		t.Logf(`test #%v exp [%d,%d).Accepts(%d) to be %v`,
			i, test.since, test.until, test.ver, test.exp)
		d := &Descriptor{Since: test.since, Until: test.until}
		if got := d.Accepts(test.ver); got != test.exp {
			t.Errorf(`expected Accepts(%d) to be %v, got %v`, test.ver, test.exp, got)
		}
	}
}
