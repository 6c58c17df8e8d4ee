package config

import (
	"os"
	"time"
)

const (
	DefaultServerURL = "http://localhost:7498"
	DefaultOutputDir = "./demo/output"
	DefaultHost      = "aspire"
	DefaultTimeout   = 30 * time.Second
)

// Settings is the fully resolved configuration handed to the recorder.
// There are no ambient globals: everything the scenario needs travels
// through this struct.
type Settings struct {
	ServerURL   string
	OutputDir   string
	Host        string
	Timeout     time.Duration
	ConfigPath  string
	ContextName string
	Config      *Config
	Context     *Context
}

// ResolveSettings layers configuration sources:
// 1) flags (serverURL, outputDir, host, timeout)
// 2) config file context values
// 3) environment (SHELLWRIGHT_URL, SHELLWRIGHT_OUTPUT, DEMO_HOST)
// 4) defaults (http://localhost:7498, ./demo/output, aspire, 30s)
func ResolveSettings(configPath, contextName, serverURL, outputDir, host string, timeout time.Duration) (*Settings, error) {
	s := &Settings{
		ConfigPath:  configPath,
		ContextName: contextName,
		ServerURL:   serverURL,
		OutputDir:   outputDir,
		Host:        host,
		Timeout:     timeout,
	}

	if s.ConfigPath != "" {
		cfg, err := Load(s.ConfigPath)
		if err != nil {
			return nil, err
		}
		s.Config = cfg
	}

	if s.Config != nil {
		ctx, _, err := s.Config.Resolve(s.ContextName)
		if err != nil {
			return nil, err
		}
		s.Context = ctx
	}

	if s.Context != nil {
		if s.ServerURL == "" {
			s.ServerURL = s.Context.Server
		}
		if s.OutputDir == "" {
			s.OutputDir = s.Context.OutputDir
		}
		if s.Host == "" {
			s.Host = s.Context.SSHHost
		}
		if s.Timeout == 0 && s.Context.TimeoutSeconds > 0 {
			s.Timeout = time.Duration(s.Context.TimeoutSeconds) * time.Second
		}
	}

	if s.ServerURL == "" {
		s.ServerURL = os.Getenv("SHELLWRIGHT_URL")
	}
	if s.OutputDir == "" {
		s.OutputDir = os.Getenv("SHELLWRIGHT_OUTPUT")
	}
	if s.Host == "" {
		s.Host = os.Getenv("DEMO_HOST")
	}

	if s.ServerURL == "" {
		s.ServerURL = DefaultServerURL
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}

	return s, nil
}
