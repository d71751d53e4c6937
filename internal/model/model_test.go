package model

import "testing"

func TestStepString(t *testing.T) {
	s := Step{Name: "cert", Status: StepOK}
	if got := s.String(); got != "cert: ok" {
		t.Errorf("unexpected step string: %q", got)
	}
}

func TestToolString(t *testing.T) {
	tl := Tool{Name: "openssl"}
	if got := tl.String(); got != "openssl" {
		t.Errorf("unexpected tool string: %q", got)
	}
	tl.Path = "/usr/local/bin/openssl"
	if got := tl.String(); got != "openssl (/usr/local/bin/openssl)" {
		t.Errorf("unexpected tool string with path: %q", got)
	}
}
