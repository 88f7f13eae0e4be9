package util

import (
	"reflect"
	"testing"
)

func TestStripToText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "block tags become breaks then collapse",
			input: "<div><p>Chambre 3</p><p>Chambre&nbsp;7</p></div>",
			want:  "Chambre 3 Chambre 7",
		},
		{
			name:  "br variants",
			input: "Plus que<br>2<BR/>disponible(s)",
			want:  "Plus que 2 disponible(s)",
		},
		{
			name:  "entities decoded",
			input: "<span>Tom &amp; Jerry&#39;s &quot;suite&quot;</span>",
			want:  `Tom & Jerry's "suite"`,
		},
		{
			name:  "whitespace trimmed",
			input: "\n\t  <li>Deluxe</li>\n  ",
			want:  "Deluxe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripToText(tt.input); got != tt.want {
				t.Errorf("StripToText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripToTextDecodesEntitiesOnce(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"use &amp;lt;b&amp;gt; for bold", "use &lt;b&gt; for bold"},
		{"&amp;amp;", "&amp;"},
		{"&amp;nbsp;suite", "&nbsp;suite"},
		{"&lt;&amp;&gt;", "<&>"},
	}
	for _, tt := range tests {
		if got := StripToText(tt.input); got != tt.want {
			t.Errorf("StripToText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStripToTextIdempotent(t *testing.T) {
	inputs := []string{
		"Plus que 2 disponible(s)",
		"<h3>Classique</h3><p>Plus que 4 disponible(s)</p>",
		"  spaced   out\ttext \n",
	}
	for _, in := range inputs {
		once := StripToText(in)
		twice := StripToText(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSplitIntoCategoryBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []CategoryBlock
	}{
		{
			name:  "no headings",
			input: "<div>Plus que 3 disponible(s)</div>",
			want:  []CategoryBlock{{Category: "all", Text: "Plus que 3 disponible(s)"}},
		},
		{
			name: "headings in order",
			input: `<section><h2>Classique</h2><p>Plus que 2 disponible(s)</p></section>
				<section><h3 class="t">Appartement</h3><p>Plus que 4 disponible(s)</p></section>`,
			want: []CategoryBlock{
				{Category: "Classique", Text: "Plus que 2 disponible(s)"},
				{Category: "Appartement", Text: "Plus que 4 disponible(s)"},
			},
		},
		{
			name:  "empty heading falls back",
			input: "<h2> </h2><p>Plus que 1 disponible(s)</p>",
			want:  []CategoryBlock{{Category: "category", Text: "Plus que 1 disponible(s)"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitIntoCategoryBlocks(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitIntoCategoryBlocks() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFoldText(t *testing.T) {
	tests := map[string]string{
		"Vérifier toutes les disponibilités": "verifier toutes les disponibilites",
		"Les Séraphines":                     "les seraphines",
		"AOÛT":                               "aout",
		"plain":                              "plain",
	}
	for in, want := range tests {
		if got := FoldText(in); got != want {
			t.Errorf("FoldText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordKeyStable(t *testing.T) {
	a := RecordKey("run-1", "Maison_Pavlov", "2026-03-01")
	b := RecordKey("run-1", "maison_pavlov", "2026-03-01")
	if a != b {
		t.Fatalf("hotel id should be case-insensitive: %s vs %s", a, b)
	}
	if a == RecordKey("run-1", "maison_pavlov", "2026-03-02") {
		t.Fatal("different dates must yield different keys")
	}
}
