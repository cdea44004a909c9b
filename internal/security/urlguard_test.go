package security

import (
	"strings"
	"testing"
)

func TestValidateTargetURL_AllowsPublicHTTPS(t *testing.T) {
	urls := []string{
		"https://telegov.njportal.com/njmvc/AppointmentWizard/12",
		"http://example.com/page",
		"https://93.184.216.34/page",
	}
	for _, u := range urls {
		if err := ValidateTargetURL(u); err != nil {
			t.Errorf("ValidateTargetURL(%q) = %v, want nil", u, err)
		}
	}
}

func TestValidateTargetURL_RejectsDisallowedSchemes(t *testing.T) {
	urls := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"gopher://example.com",
	}
	for _, u := range urls {
		if err := ValidateTargetURL(u); err == nil {
			t.Errorf("ValidateTargetURL(%q) = nil, want error", u)
		}
	}
}

func TestValidateTargetURL_RejectsPrivateAndLoopbackIPs(t *testing.T) {
	urls := []string{
		"http://10.0.0.5/page",
		"http://172.16.1.1/page",
		"http://192.168.1.10/page",
		"http://127.0.0.1:8080/page",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/page",
	}
	for _, u := range urls {
		err := ValidateTargetURL(u)
		if err == nil {
			t.Errorf("ValidateTargetURL(%q) = nil, want blocked error", u)
			continue
		}
		if !strings.Contains(err.Error(), "blocked") {
			t.Errorf("ValidateTargetURL(%q) = %v, want blocked error", u, err)
		}
	}
}

func TestValidateTargetURL_RejectsLocalhost(t *testing.T) {
	if err := ValidateTargetURL("http://localhost:8080/page"); err == nil {
		t.Error("ValidateTargetURL(localhost) = nil, want error")
	}
}

func TestValidateTargetURL_RejectsEmptyAndMalformed(t *testing.T) {
	for _, u := range []string{"", "://missing-scheme", "https://"} {
		if err := ValidateTargetURL(u); err == nil {
			t.Errorf("ValidateTargetURL(%q) = nil, want error", u)
		}
	}
}
