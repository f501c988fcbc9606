package main

import (
	"flag"
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantPos    []string
		wantNameFl string
	}{
		{"positional first", []string{"song.wav", "-name", "Song"}, []string{"song.wav"}, "Song"},
		{"flags first", []string{"-name", "Song", "song.wav"}, []string{"song.wav"}, "Song"},
		{"no flags", []string{"a.wav", "b.wav"}, []string{"a.wav", "b.wav"}, ""},
		{"empty", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			name := fs.String("name", "", "")

			got := splitArgs(fs, tt.args)
			if len(got) != len(tt.wantPos) || (len(got) > 0 && !reflect.DeepEqual(got, tt.wantPos)) {
				t.Errorf("Expected positional %v, got %v", tt.wantPos, got)
			}
			if *name != tt.wantNameFl {
				t.Errorf("Expected name %q, got %q", tt.wantNameFl, *name)
			}
		})
	}
}
