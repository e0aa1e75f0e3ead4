package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/scannode/internal/api/models"
	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/params"
)

// Parameter change sources reported on the event bus.
const (
	SourceAPI   = "api"
	SourceReset = "reset"
)

func (s *Server) parametersResponse() *models.ParametersResponse {
	snap := s.options.Store.Snapshot()
	return &models.ParametersResponse{
		Body: models.ParametersData{
			Version:     s.options.Store.Version(),
			QualityName: s.options.Store.QualityName(snap.QualityLevel),
			Parameters:  snap,
		},
	}
}

func (s *Server) publishParametersChanged(fields []params.Field, source string) {
	if s.options.EventBus == nil {
		return
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	s.options.EventBus.Publish(events.ParametersChangedEvent{
		Version:   s.options.Store.Version(),
		Fields:    names,
		Source:    source,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// registerParameterRoutes registers the capture parameter endpoints.
func (s *Server) registerParameterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-parameters",
		Method:      http.MethodGet,
		Path:        "/api/parameters",
		Summary:     "Get Parameters",
		Description: "Get the capture parameters the next scanner session will be opened with",
		Tags:        []string{"parameters"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ParametersResponse, error) {
		return s.parametersResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-parameters",
		Method:      http.MethodPatch,
		Path:        "/api/parameters",
		Summary:     "Update Parameters",
		Description: "Set parameters from raw text values. Either every value is accepted or none is. Changes apply to the next opened session.",
		Tags:        []string{"parameters"},
		Errors:      []int{400, 401, 422},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ParametersPatchRequest) (*models.ParametersResponse, error) {
		if len(input.Body.Values) == 0 {
			return nil, huma.Error400BadRequest("No parameter values given")
		}

		// Map order is random; apply in menu order so errors are stable
		patch := make(params.Patch, 0, len(input.Body.Values))
		for name, raw := range input.Body.Values {
			field, err := params.ParseField(name)
			if err != nil {
				return nil, mapScannerError(err)
			}
			patch = append(patch, params.Change{Field: field, Value: raw})
		}
		slices.SortFunc(patch, func(a, b params.Change) int {
			return slices.Index(params.Fields, a.Field) - slices.Index(params.Fields, b.Field)
		})

		if err := s.options.Store.Apply(patch); err != nil {
			return nil, mapScannerError(err)
		}
		s.logger.Info("Parameters updated", "fields", patch.Fields(), "version", s.options.Store.Version())
		s.publishParametersChanged(patch.Fields(), SourceAPI)
		return s.parametersResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-parameters",
		Method:      http.MethodDelete,
		Path:        "/api/parameters",
		Summary:     "Reset Parameters",
		Description: "Restore every capture parameter to its default",
		Tags:        []string{"parameters"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ParametersResponse, error) {
		s.options.Store.Reset()
		s.logger.Info("Parameters reset", "version", s.options.Store.Version())
		s.publishParametersChanged(nil, SourceReset)
		return s.parametersResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-parameter-options",
		Method:      http.MethodGet,
		Path:        "/api/parameters/options",
		Summary:     "Get Parameter Options",
		Description: "List parameter fields and the accepted values of enumerated parameters",
		Tags:        []string{"parameters"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ParameterOptionsResponse, error) {
		fields := make([]string, len(params.Fields))
		for i, f := range params.Fields {
			fields[i] = string(f)
		}
		modes := make([]string, len(params.FilterModes))
		for i, m := range params.FilterModes {
			modes[i] = string(m)
		}
		return &models.ParameterOptionsResponse{
			Body: models.ParameterOptionsData{
				Fields:        fields,
				QualityLevels: s.options.Store.QualityLevels(),
				FilterModes:   modes,
				VSyncCounts:   []int{0, 1, 2},
			},
		}, nil
	})
}
