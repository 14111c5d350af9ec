package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Encoding != "Macintosh" {
		t.Errorf("Encoding = %q", s.Encoding)
	}
	if s.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q", s.ListenAddr)
	}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "encoding: Windows 1252\nlisten_addr: \":9090\"\ntemplate_dir: /tmp/templates\n"
	if err := ioutil.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	defer SetEncoding("Macintosh")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", s.ListenAddr)
	}
	if s.TemplateDir != "/tmp/templates" {
		t.Errorf("TemplateDir = %q", s.TemplateDir)
	}
	if GetEncoding().String() != "Windows 1252" {
		t.Errorf("encoding = %q", GetEncoding().String())
	}
}

func TestLoadSettingsBadEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := ioutil.WriteFile(path, []byte("encoding: Klingon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("unknown encoding accepted")
	}
}

func TestLoadSettingsBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := ioutil.WriteFile(path, []byte("{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestListEncodings(t *testing.T) {
	found := false
	for _, name := range ListEncodings() {
		if name == "Macintosh" {
			found = true
		}
	}
	if !found {
		t.Error("Macintosh missing from encoding list")
	}
}
