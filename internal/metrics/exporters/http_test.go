package exporters

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/scannode/internal/metrics"
)

func TestHTTPHandler(t *testing.T) {
	// A second handler must not re-register anything.
	_ = HTTPHandler()
	handler := HTTPHandler()

	// Set a metric so there's something to export
	metrics.RecordDecode(true, false, false, 5*time.Millisecond)
	metrics.RecordDetection("QR_CODE")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	for _, name := range []string{
		"scannode_decoder_attempts_total",
		"scannode_decoder_duration_seconds",
		`scannode_scanner_detections_total{symbology="QR_CODE"}`,
		"scannode_build_info{",
		"promhttp_metric_handler_requests_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in response", name)
		}
	}
}
