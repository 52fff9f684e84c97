package lsp

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/DevSymphony/scalastyle-marker/internal/runner"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.log.WithError(err).Debug("ignoring malformed configuration")
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

// applySettings records client overrides. Empty values fall back to the
// project configuration; the next run picks the change up.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.log.WithError(err).Debug("ignoring malformed settings")
		return
	}

	s.mu.Lock()
	if settings.Marker.OutputFile != nil {
		s.overrides.ReportFile = *settings.Marker.OutputFile
	}
	if settings.Marker.Command != nil {
		s.overrides.Command = *settings.Marker.Command
	}
	overrides := s.overrides
	base := s.base
	pipeline := s.pipeline
	s.mu.Unlock()

	if pipeline == nil {
		return
	}
	pipeline.UpdateSettings(func(cur *runner.Settings) {
		*cur = withOverrides(base, overrides)
	})
	current := pipeline.Settings()
	s.log.WithFields(logrus.Fields{
		"report":  current.ReportFile,
		"command": current.Command,
	}).Info("settings updated")
}

func withOverrides(base, overrides runner.Settings) runner.Settings {
	out := base
	if overrides.ReportFile != "" {
		out.ReportFile = overrides.ReportFile
	}
	if overrides.Command != "" {
		out.Command = overrides.Command
	}
	return out
}
