package segment

import (
	"reflect"
	"strings"
	"testing"
	"unicode"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "   \n\t ",
			want: nil,
		},
		{
			name: "no terminator",
			text: "  just a fragment without an end  ",
			want: []string{"just a fragment without an end"},
		},
		{
			name: "two sentences",
			text: "Hello world. Second sentence.",
			want: []string{"Hello world.", "Second sentence."},
		},
		{
			name: "mixed terminators",
			text: "Stop! Who goes there? A friend.",
			want: []string{"Stop!", "Who goes there?", "A friend."},
		},
		{
			name: "collapsed run",
			text: "Wait... What?! Fine.",
			want: []string{"Wait...", "What?!", "Fine."},
		},
		{
			name: "trailing fragment",
			text: "One. Two",
			want: []string{"One.", "Two"},
		},
		{
			name: "closing quote stays",
			text: `She said "go." Then she left.`,
			want: []string{`She said "go."`, "Then she left."},
		},
		{
			name: "cjk",
			text: "今日は晴れです。明日は？すごい！",
			want: []string{"今日は晴れです。", "明日は？", "すごい！"},
		},
		{
			name: "cjk run",
			text: "本当？！はい。",
			want: []string{"本当？！", "はい。"},
		},
		{
			name: "decimal",
			text: "Pi is 3.14 roughly. Yes.",
			want: []string{"Pi is 3.14 roughly.", "Yes."},
		},
		{
			name: "only terminators",
			text: "...",
			want: []string{"..."},
		},
		{
			name: "spaced ellipsis",
			text: "Wait . . . what?",
			want: []string{"Wait . . .", "what?"},
		},
		{
			name: "spaced run",
			text: "Really? !! Yes.",
			want: []string{"Really? !!", "Yes."},
		},
		{
			name: "punctuation folds into previous unit",
			text: "Done. ** ! Next.",
			want: []string{"Done. ** !", "Next."},
		},
		{
			name: "leading punctuation joins next unit",
			text: "** ! Start here. End.",
			want: []string{"** ! Start here.", "End."},
		},
		{
			name: "title abbreviation",
			text: "Dr. Smith arrived. He sat.",
			want: []string{"Dr. Smith arrived.", "He sat."},
		},
		{
			name: "dotted abbreviation",
			text: "Bring a snack, e.g. an apple. Then go.",
			want: []string{"Bring a snack, e.g. an apple.", "Then go."},
		},
		{
			name: "country abbreviation",
			text: "She moved to the U.S. last year. It was cold.",
			want: []string{"She moved to the U.S. last year.", "It was cold."},
		},
		{
			name: "initials",
			text: "J. K. Rowling wrote it. Yes.",
			want: []string{"J. K. Rowling wrote it.", "Yes."},
		},
		{
			name: "lone capital ends sentence",
			text: "We chose plan B. Then we left.",
			want: []string{"We chose plan B.", "Then we left."},
		},
		{
			name: "dot inside word",
			text: "Visit example.com today. Thanks.",
			want: []string{"Visit example.com today.", "Thanks."},
		},
		{
			name: "common word is not an abbreviation",
			text: "Come in. Sit down.",
			want: []string{"Come in.", "Sit down."},
		},
		{
			name: "newlines inside sentence",
			text: "A line\nthat wraps. Next.",
			want: []string{"A line\nthat wraps.", "Next."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplitProperties(t *testing.T) {
	inputs := []string{
		"Hello world. Second sentence.",
		"  leading and trailing space! ",
		"A?B!C.D",
		"Mixed 中文。And English! 再见？",
		"Nothing here",
		"Lots of dots.... and more!!! ok",
		"\"Quoted.\" (Bracketed.) [Done.]",
		"Wait . . . what? . . Mr. X. Y. Z. said so.",
		". . . leading dots. Then words.",
	}

	for _, in := range inputs {
		units := Split(in)

		for _, u := range units {
			if u == "" {
				t.Errorf("Split(%q) produced an empty unit", in)
			}
			if strings.TrimSpace(u) != u {
				t.Errorf("Split(%q) produced untrimmed unit %q", in, u)
			}
		}

		if got, want := stripSpace(strings.Join(units, "")), stripSpace(in); got != want {
			t.Errorf("Split(%q) lost characters: got %q, want %q", in, got, want)
		}

		if again := Split(in); !reflect.DeepEqual(units, again) {
			t.Errorf("Split(%q) is not deterministic", in)
		}
	}
}

func TestCount(t *testing.T) {
	if got := Count("One. Two. Three."); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	if got := Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
