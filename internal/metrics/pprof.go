package metrics

import (
	"github.com/grafana/pyroscope-go"
)

type PProfConfig struct {
	Enabled       bool
	AppInstanceID string
	AppName       string
	ServerAddr    string
	AuthToken     string
	Env           string
	Tags          map[string]string
}

// InitPProf starts continuous profiling; nil profiler when disabled
func InitPProf(cfg *PProfConfig) (*pyroscope.Profiler, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	env := cfg.Env
	if env == "" {
		env = "dev"
	}
	pTags := map[string]string{
		"env":      env,
		"instance": cfg.AppInstanceID,
	}
	for k, v := range cfg.Tags {
		pTags[k] = v
	}

	return pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.AppName,
		ServerAddress:   cfg.ServerAddr,
		AuthToken:       cfg.AuthToken,
		Logger:          pyroscope.StandardLogger,
		Tags:            pTags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
}
