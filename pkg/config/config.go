package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// malformedConfigTemplate is shown when a config file isn't valid YAML, or
// doesn't match the config's fields. The yaml library doesn't say which line
// is at fault, so the parser's message is passed on as is.
const malformedConfigTemplate = "%q isn't a valid foldersync config file.\n" +
	"Check that each field has the right type, and that the file only " +
	"contains the fields written by `foldersync config`.\n\n" +
	"The parser reported:\n" +
	"%s"

// versioned is implemented by config files that carry a `version` field.
type versioned interface {
	getVersion() string
}

type unsupportedVersionError struct {
	path, supported, found string
}

func (err unsupportedVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err unsupportedVersionError) FriendlyMessage() string {
	return fmt.Sprintf("%q was written for a different version of foldersync.\n"+
		"This version reads config version %q, but the file has version %q.",
		err.path, err.supported, err.found)
}

// decodeFile reads the YAML config at `path` into `out`.
// A file without a `version` field keeps the version `out` was initialized
// with, so callers set their default (InitialDaemonConfigVersion for the
// daemon config) before decoding.
// The version is checked before unknown fields are rejected. A file written
// for another version then reports the mismatch rather than the fields this
// version doesn't know about.
func decodeFile(path string, out versioned, supported string) error {
	contents, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		return errors.FileNotFound{Path: path}
	case err != nil:
		return errors.WithContext(err, "read file")
	}

	if err := yaml.Unmarshal(contents, out); err != nil {
		return malformedConfigError(path, err)
	}

	if found := out.getVersion(); found != supported {
		return unsupportedVersionError{path: path, supported: supported, found: found}
	}

	if err := yaml.UnmarshalStrict(contents, out, yaml.DisallowUnknownFields); err != nil {
		return malformedConfigError(path, err)
	}
	return nil
}

func malformedConfigError(path string, err error) error {
	return errors.NewFriendlyError(malformedConfigTemplate, path, err)
}
