package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/scannode/internal/api/models"
	"github.com/smazurov/scannode/internal/host"
	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/session"
)

// ScannerHost is the host loop as seen by the API.
type ScannerHost interface {
	Open(ctx context.Context) (host.Status, error)
	Scan(ctx context.Context, onMatch session.MatchFunc) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
	Status(ctx context.Context) (host.Status, error)
}

// ScanRequest starts a scan, optionally waiting for the first code.
type ScanRequest struct {
	Wait int `query:"wait" minimum:"0" maximum:"60" default:"0" doc:"Seconds to wait for a detection before returning; 0 returns immediately"`
}

func toScannerData(st host.Status) models.ScannerData {
	data := models.ScannerData{
		Open:       st.Open,
		SessionID:  st.SessionID,
		State:      string(st.State),
		Ready:      st.Ready,
		Host:       st.Host,
		LastResult: st.LastResult,
		Detections: st.Detections,
	}
	if data.State == "" {
		data.State = string(session.StateIdle)
	}
	if st.Ready {
		info := st.Info
		data.Info = &info
	}
	if st.Open {
		settings := st.Settings
		data.Settings = &settings
	}
	return data
}

func (s *Server) scannerResponse(ctx context.Context) (*models.ScannerResponse, error) {
	st, err := s.options.Host.Status(ctx)
	if err != nil {
		return nil, mapScannerError(err)
	}
	return &models.ScannerResponse{Body: toScannerData(st)}, nil
}

// registerScannerRoutes registers the capture session endpoints.
func (s *Server) registerScannerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-scanner",
		Method:      http.MethodGet,
		Path:        "/api/scanner",
		Summary:     "Get Scanner",
		Description: "Get the capture session state, ready information and last detection",
		Tags:        []string{"scanner"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ScannerResponse, error) {
		return s.scannerResponse(ctx)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "open-scanner",
		Method:        http.MethodPost,
		Path:          "/api/scanner",
		Summary:       "Open Scanner",
		Description:   "Open a capture session from the current parameters, replacing any open session",
		Tags:          []string{"scanner"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{401, 409, 503},
		Security:      withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ScannerResponse, error) {
		st, err := s.options.Host.Open(ctx)
		if err != nil {
			return nil, mapScannerError(err)
		}
		return &models.ScannerResponse{Body: toScannerData(st)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "scan",
		Method:      http.MethodPost,
		Path:        "/api/scanner/scan",
		Summary:     "Start Scan",
		Description: "Start decoding frames. The session stops on the first detection. With wait set, the request blocks until a code is found or the wait expires, and an expired scan is stopped.",
		Tags:        []string{"scanner"},
		Errors:      []int{401, 404, 408, 409, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *ScanRequest) (*models.ScannerResponse, error) {
		found := make(chan scanner.Result, 1)
		if err := s.options.Host.Scan(ctx, func(r scanner.Result) {
			select {
			case found <- r:
			default:
			}
		}); err != nil {
			return nil, mapScannerError(err)
		}
		if input.Wait <= 0 {
			return s.scannerResponse(ctx)
		}

		timer := time.NewTimer(time.Duration(input.Wait) * time.Second)
		defer timer.Stop()
		select {
		case r := <-found:
			s.logger.Debug("Scan request satisfied", "symbology", r.Symbology)
			return s.scannerResponse(ctx)
		case <-timer.C:
		case <-ctx.Done():
		}

		// Detached: the request context may already be cancelled
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.options.Host.Stop(stopCtx); err != nil {
			s.logger.Warn("Failed to stop expired scan", "error", err)
		}
		return nil, huma.NewError(http.StatusRequestTimeout, "No code detected before the wait expired")
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-scan",
		Method:      http.MethodPost,
		Path:        "/api/scanner/stop",
		Summary:     "Stop Scan",
		Description: "Stop decoding. The camera keeps running.",
		Tags:        []string{"scanner"},
		Errors:      []int{401, 404, 409, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ScannerResponse, error) {
		if err := s.options.Host.Stop(ctx); err != nil {
			return nil, mapScannerError(err)
		}
		return s.scannerResponse(ctx)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "close-scanner",
		Method:        http.MethodDelete,
		Path:          "/api/scanner",
		Summary:       "Close Scanner",
		Description:   "Destroy the capture session and release the camera",
		Tags:          []string{"scanner"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 503},
		Security:      withAuth(),
	}, func(ctx context.Context, input *struct{}) (*struct{}, error) {
		if err := s.options.Host.Close(ctx); err != nil {
			return nil, mapScannerError(err)
		}
		return &struct{}{}, nil
	})
}
