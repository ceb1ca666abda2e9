package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	s.valid = true
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "larder")
	var s sample
	if err := Parse("inline", []byte("name: ${SAMPLE_NAME}\nport: 80\n"), &s); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "larder" || !s.valid {
		t.Errorf("got %+v", s)
	}
}

func TestParse_Validates(t *testing.T) {
	var s sample
	err := Parse("inline", []byte("port: 0\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "port must be positive") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || !s.valid {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &s); err == nil {
		t.Fatal("expected error for missing file")
	}
}
