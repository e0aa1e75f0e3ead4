package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
)

// LEDIndicator is the LED driven by scanner state.
type LEDIndicator interface {
	LED() string
	State() string
}

// LEDRequest sets one LED by hand.
type LEDRequest struct {
	Body struct {
		Type    string  `json:"type" example:"act" doc:"LED type as listed by /api/leds"`
		Enabled bool    `json:"enabled" example:"true" doc:"Turn the LED on or off"`
		Pattern *string `json:"pattern,omitempty" example:"solid" doc:"solid, blink or heartbeat; omitted keeps the current trigger"`
	}
}

// LEDStatusResponse describes the board LEDs and the scanner indicator.
type LEDStatusResponse struct {
	Body struct {
		AvailableTypes    []string `json:"available_types" doc:"LED types on this board"`
		AvailablePatterns []string `json:"available_patterns" doc:"Patterns the board supports"`
		Indicator         string   `json:"indicator,omitempty" example:"act" doc:"LED following the scanner state"`
		ScannerState      string   `json:"scanner_state,omitempty" example:"scanning" doc:"Last session state shown on the indicator"`
	}
}

func (s *Server) ledStatus() *LEDStatusResponse {
	resp := &LEDStatusResponse{}
	resp.Body.AvailableTypes = s.options.LEDController.Available()
	resp.Body.AvailablePatterns = s.options.LEDController.Patterns()
	if ind := s.options.LEDIndicator; ind != nil {
		resp.Body.Indicator = ind.LED()
		resp.Body.ScannerState = ind.State()
	}
	return resp
}

func (s *Server) registerLEDRoutes() {
	if s.options.LEDController == nil {
		s.logger.Debug("LED control disabled, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "LED Status",
		Description: "List the board LEDs and which one follows the scanner",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*LEDStatusResponse, error) {
		return s.ledStatus(), nil
	})

	// Kept for clients of the capabilities path.
	huma.Register(s.api, huma.Operation{
		OperationID: "get-led-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/leds/capabilities",
		Summary:     "LED Capabilities",
		Description: "Same body as GET /api/leds",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*LEDStatusResponse, error) {
		return s.ledStatus(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "control-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Control LED",
		Description: "Set an LED by hand. The indicator LED is overwritten on the next session state change.",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *LEDRequest) (*struct{}, error) {
		ctrl := s.options.LEDController
		if available := ctrl.Available(); len(available) > 0 && !slices.Contains(available, input.Body.Type) {
			return nil, huma.Error404NotFound("Unknown LED type: " + input.Body.Type)
		}

		pattern := ""
		if input.Body.Pattern != nil {
			pattern = *input.Body.Pattern
		}
		if pattern != "" && !slices.Contains(ctrl.Patterns(), pattern) {
			return nil, huma.Error400BadRequest("Unsupported LED pattern: " + pattern)
		}
		if err := ctrl.Set(input.Body.Type, input.Body.Enabled, pattern); err != nil {
			return nil, huma.Error400BadRequest("Failed to set LED", err)
		}
		s.logger.Debug("LED set via API", "led", input.Body.Type, "enabled", input.Body.Enabled, "pattern", pattern)
		return &struct{}{}, nil
	})

	s.logger.Info("LED routes registered")
}
