package config

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/foldersync/pkg/errors"
)

func TestParseDaemon(t *testing.T) {
	out := "/etc/foldersync/foldersync.yaml"

	tests := []struct {
		name      string
		input     []byte
		expConfig Daemon
		expError  error
	}{
		{
			name: "EmptyVersion",
			input: mustMarshal(Daemon{
				Source:      "/data",
				Destination: "/backup",
				Interval:    60,
			}),
			expConfig: Daemon{
				Version:     InitialDaemonConfigVersion,
				Source:      "/data",
				Destination: "/backup",
				Interval:    60,
				path:        out,
			},
		},
		{
			name: "AllFields",
			input: mustMarshal(Daemon{
				Version:        SupportedDaemonConfigVersion,
				Source:         "/data/",
				Destination:    "/mnt/../backup",
				LogFile:        "/var/log/foldersync.log",
				Interval:       5,
				Watch:          true,
				MetricsAddress: ":9090",
			}),
			expConfig: Daemon{
				Version:        SupportedDaemonConfigVersion,
				Source:         "/data",
				Destination:    "/backup",
				LogFile:        "/var/log/foldersync.log",
				Interval:       5,
				Watch:          true,
				MetricsAddress: ":9090",
				path:           out,
			},
		},
		{
			name: "RelativePaths",
			input: mustMarshal(Daemon{
				Source:      "data",
				Destination: "~/backup",
				LogFile:     "logs/sync.log",
				Interval:    60,
			}),
			expConfig: Daemon{
				Version:     InitialDaemonConfigVersion,
				Source:      "/etc/foldersync/data",
				Destination: "/home/user/backup",
				LogFile:     "/etc/foldersync/logs/sync.log",
				Interval:    60,
				path:        out,
			},
		},
		{
			name: "IncorrectVersion",
			input: mustMarshal(Daemon{
				Version:     "incorrect_version",
				Source:      "/data",
				Destination: "/backup",
				Interval:    60,
			}),
			expError: errors.WithContext(unsupportedVersionError{
				path:      out,
				supported: SupportedDaemonConfigVersion,
				found:     "incorrect_version",
			}, "parse"),
		},
		{
			name: "ExtraFields",
			input: []byte(fmt.Sprintf(
				"version: %s\nextra: fields", SupportedDaemonConfigVersion)),
			expError: errors.WithContext(
				malformedConfigError(out,
					errors.New("error unmarshaling JSON: while decoding JSON: "+
						`json: unknown field "extra"`)),
				"parse"),
		},
		{
			name: "IncorrectVersionAndExtraFields",
			input: []byte(`
version: incorrect_version
extra: fields
`),
			expError: errors.WithContext(unsupportedVersionError{
				path:      out,
				supported: SupportedDaemonConfigVersion,
				found:     "incorrect_version",
			}, "parse"),
		},
		{
			name:     "MissingSource",
			input:    mustMarshal(Daemon{Destination: "/backup", Interval: 60}),
			expError: errors.MissingFieldError{Field: "source"},
		},
		{
			name:     "MissingDestination",
			input:    mustMarshal(Daemon{Source: "/data", Interval: 60}),
			expError: errors.MissingFieldError{Field: "destination"},
		},
		{
			name:  "MissingInterval",
			input: mustMarshal(Daemon{Source: "/data", Destination: "/backup"}),
			expError: errors.NewFriendlyError(
				"The sync interval must be a positive number of seconds, got 0."),
		},
		{
			name: "DestinationInsideSource",
			input: mustMarshal(Daemon{
				Source:      "/data",
				Destination: "/data/backup",
				Interval:    60,
			}),
			expError: errors.NewFriendlyError(
				"The source folder \"/data\" and the destination folder " +
					"\"/data/backup\" overlap.\n" +
					"Neither folder may be inside the other."),
		},
	}

	defer mockHomedir()()
	fs = afero.NewMemMapFs()
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := afero.WriteFile(fs, out, test.input, 0644)
			assert.NoError(t, err)
			config, err := ParseDaemon(out)
			assert.Equal(t, test.expConfig, config)
			assert.Equal(t, test.expError, err)
		})
	}
}

func TestParseDaemonNotFound(t *testing.T) {
	fs = afero.NewMemMapFs()
	_, err := ParseDaemon("/foldersync.yaml")
	assert.Equal(t, errors.WithContext(
		errors.FileNotFound{Path: "/foldersync.yaml"}, "parse"), err)
}

func TestFromArgs(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		destination string
		logFile     string
		interval    string
		expConfig   Daemon
		expError    error
	}{
		{
			name:        "AbsolutePaths",
			source:      "/data",
			destination: "/backup",
			logFile:     "/var/log/foldersync.log",
			interval:    "30",
			expConfig: Daemon{
				Version:     SupportedDaemonConfigVersion,
				Source:      "/data",
				Destination: "/backup",
				LogFile:     "/var/log/foldersync.log",
				Interval:    30,
			},
		},
		{
			name:        "RelativePaths",
			source:      "data",
			destination: "../backup",
			logFile:     "~/sync.log",
			interval:    "1",
			expConfig: Daemon{
				Version:     SupportedDaemonConfigVersion,
				Source:      "/work/data",
				Destination: "/backup",
				LogFile:     "/home/user/sync.log",
				Interval:    1,
			},
		},
		{
			name:        "NonNumericInterval",
			source:      "/data",
			destination: "/backup",
			logFile:     "/sync.log",
			interval:    "ten",
			expError: errors.NewFriendlyError(
				"The sync interval must be a whole number of seconds, got \"ten\"."),
		},
		{
			name:        "NegativeInterval",
			source:      "/data",
			destination: "/backup",
			logFile:     "/sync.log",
			interval:    "-5",
			expError: errors.NewFriendlyError(
				"The sync interval must be a positive number of seconds, got -5."),
		},
		{
			name:        "SameFolder",
			source:      "/data",
			destination: "/data/",
			logFile:     "/sync.log",
			interval:    "5",
			expError: errors.NewFriendlyError(
				"The source folder \"/data\" and the destination folder " +
					"\"/data\" overlap.\n" +
					"Neither folder may be inside the other."),
		},
	}

	defer mockHomedir()()
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			config, err := FromArgs("/work", test.source, test.destination,
				test.logFile, test.interval)
			assert.Equal(t, test.expConfig, config)
			assert.Equal(t, test.expError, err)
		})
	}
}

func TestIntervalDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, Daemon{Interval: 90}.IntervalDuration())
}

// mockHomedir expands ~ to /home/user. The returned function restores the
// real implementation.
func mockHomedir() func() {
	homedirExpand = func(path string) (string, error) {
		if strings.HasPrefix(path, "~") {
			return "/home/user" + strings.TrimPrefix(path, "~"), nil
		}
		return path, nil
	}
	return func() {
		homedirExpand = homedir.Expand
	}
}

func mustMarshal(cfg interface{}) []byte {
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		panic(fmt.Errorf("bad test input, unable to marshal to yaml: %s", err))
	}
	return yamlBytes
}

func TestParseWrittenDaemon(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := "/etc/foldersync/foldersync.yaml"
	cfg := Daemon{
		Version:        "ignored",
		Source:         "/data",
		Destination:    "/backup",
		LogFile:        "/var/log/foldersync.log",
		Interval:       30,
		MetricsAddress: "127.0.0.1:9090",
	}
	assert.NoError(t, WriteDaemon(path, cfg))

	parsed, err := ParseDaemon(path)
	assert.NoError(t, err)

	cfg.Version = SupportedDaemonConfigVersion
	cfg.path = path
	assert.Equal(t, cfg, parsed)
}
