package config

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings is the optional on-disk configuration. Everything has a
// workable zero value so the file may be absent.
type Settings struct {
	// Name of a single-byte encoding from ListEncodings, e.g. "Macintosh".
	Encoding string `yaml:"encoding"`
	// Address for the inspection web server.
	ListenAddr string `yaml:"listen_addr"`
	// Directory searched for TMPL resource files when a container does not
	// carry its own templates.
	TemplateDir string `yaml:"template_dir"`
}

func LoadSettings(path string) (*Settings, error) {
	s := &Settings{
		Encoding:   "Macintosh",
		ListenAddr: ":8000",
	}

	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "Cannot read settings %q", path)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "Cannot parse settings %q", path)
	}

	if s.Encoding != "" {
		if err := SetEncoding(s.Encoding); err != nil {
			return nil, err
		}
	}
	return s, nil
}
