package main

import (
	"testing"

	"github.com/alecthomas/kong"
)

func TestCLI_RejectsAddressFlags(t *testing.T) {
	var c cli
	parser, err := kong.New(&c, kong.Vars{"version": "test"})
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}

	if _, err := parser.Parse([]string{"--flask-host", "http://elsewhere:5000"}); err == nil {
		t.Error("Parse() accepted --flask-host; the trip relay upstream is fixed")
	}
	if _, err := parser.Parse([]string{"--host", "127.0.0.1"}); err != nil {
		t.Errorf("Parse(--host) error = %v", err)
	}
}
