package main

import (
	"strings"
	"testing"
)

func TestRenderImage(t *testing.T) {
	image := []float32{0, 1, 0.5, 0}
	out := renderImage(image, 2, 2)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != " @" {
		t.Errorf("first row: got %q, want %q", lines[0], " @")
	}
	if lines[1][1] != ' ' {
		t.Errorf("zero pixel should render as space, got %q", lines[1][1])
	}
}

func TestRenderImage_ClampsOutOfRange(t *testing.T) {
	image := []float32{-0.5, 2.0}
	out := renderImage(image, 1, 2)
	if out != " @\n" {
		t.Errorf("got %q, want %q", out, " @\n")
	}
}
