package models

import (
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionResponse struct {
	Body version.Info
}

// Parameter models
type ParametersData struct {
	Version     uint64                   `json:"version" example:"3" doc:"Store version, incremented on every accepted write"`
	QualityName string                   `json:"quality_name" example:"Medium" doc:"Name of the selected quality level"`
	Parameters  params.CaptureParameters `json:"parameters" doc:"Current capture parameters"`
}

type ParametersResponse struct {
	Body ParametersData
}

type ParametersPatchRequest struct {
	Body struct {
		Values map[string]string `json:"values" doc:"Raw values keyed by field name. Blank clears optional fields." example:"{\"resolution\":\"1280x720\",\"decode_interval\":\"250ms\"}"`
	}
}

type ParameterOptionsData struct {
	Fields        []string `json:"fields" doc:"Parameter field names in menu order"`
	QualityLevels []string `json:"quality_levels" doc:"Quality level names, indexed by quality_level"`
	FilterModes   []string `json:"filter_modes" doc:"Accepted filter modes"`
	VSyncCounts   []int    `json:"vsync_counts" doc:"Accepted vsync_count values"`
}

type ParameterOptionsResponse struct {
	Body ParameterOptionsData
}

// Scanner models
type ScannerData struct {
	Open       bool                 `json:"open" doc:"Whether a capture session exists"`
	SessionID  string               `json:"session_id,omitempty" doc:"Capture session identifier"`
	State      string               `json:"state" example:"scanning" doc:"Session state"`
	Ready      bool                 `json:"ready" doc:"Whether the camera has delivered a frame"`
	Info       *scanner.Info        `json:"info,omitempty" doc:"Orientation of the raw image, set once ready"`
	Settings   *scanner.Settings    `json:"settings,omitempty" doc:"Settings the device was opened with"`
	Host       scanner.HostSettings `json:"host" doc:"Host tick configuration"`
	LastResult *scanner.Result      `json:"last_result,omitempty" doc:"Most recent detection"`
	Detections uint64               `json:"detections" example:"3" doc:"Codes detected since start"`
}

type ScannerResponse struct {
	Body ScannerData
}

