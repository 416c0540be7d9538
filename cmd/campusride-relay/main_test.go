package main

import (
	"testing"

	"github.com/alecthomas/kong"
)

func TestCLI_Flags(t *testing.T) {
	var c cli
	parser, err := kong.New(&c, kong.Vars{"version": "test"})
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}

	if _, err := parser.Parse([]string{"-c", "relay.toml", "-p", "4100", "--flask-host", "http://flask:5000", "--log-level", "debug"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.Config != "relay.toml" || c.Port != 4100 || c.FlaskHost != "http://flask:5000" || c.LogLevel != "debug" {
		t.Errorf("parsed = %+v", c.CLI)
	}
}

func TestCLI_Env(t *testing.T) {
	t.Setenv("FLASK_HOST", "http://10.1.2.3:5000")
	t.Setenv("PORT", "4200")

	var c cli
	parser, err := kong.New(&c, kong.Vars{"version": "test"})
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	if _, err := parser.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.FlaskHost != "http://10.1.2.3:5000" {
		t.Errorf("FlaskHost = %q, want from FLASK_HOST", c.FlaskHost)
	}
	if c.Port != 4200 {
		t.Errorf("Port = %d, want from PORT", c.Port)
	}
}
