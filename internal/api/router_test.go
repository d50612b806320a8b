package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/timmy/linemaint/internal/apiclient"
	"github.com/timmy/linemaint/internal/config"
	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/logger"
	"github.com/timmy/linemaint/internal/reportstore"
	"github.com/timmy/linemaint/internal/repository"
	"github.com/timmy/linemaint/internal/service"
	"github.com/timmy/linemaint/internal/storage"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})

	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(dir, "linemaint.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	objects, err := storage.NewLocalStorage(filepath.Join(dir, "photos"), "")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	photos := service.NewPhotoService(objects, log, &service.PhotoConfig{MaxFileSize: 1 << 20})
	maintenance := service.NewMaintenanceService(repository.NewFailureReportRepository(db), photos, log, nil)

	router := SetupRouter(maintenance, photos, log, RouterConfig{Mode: "test", MaxUploadSize: 1 << 20})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func newStore(server *httptest.Server) *reportstore.HTTPStore {
	client := apiclient.New(apiclient.Config{BaseURL: server.URL, Timeout: 5 * time.Second},
		apiclient.WithHTTPClient(server.Client()))
	return reportstore.NewHTTPStore(client)
}

func pngPhoto(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func statusPtr(s domain.ReportStatus) *domain.ReportStatus { return &s }

func TestAPI_Lifecycle(t *testing.T) {
	ctx := context.Background()
	server := setupServer(t)
	store := newStore(server)

	r, err := store.Create(ctx, domain.ReportCreate{
		LineID:      "L1",
		LineName:    "Line A",
		Description: "motor noise",
		ReportedBy:  "Op1",
		Priority:    domain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(r.ID, domain.ReportIDPrefix) || r.Status != domain.StatusOpen || r.Priority != domain.PriorityHigh {
		t.Fatalf("Create() = %+v", r)
	}

	if r, err = store.MarkWorkerArrived(ctx, r.ID); err != nil || r.WorkerArrivedAt == nil {
		t.Fatalf("MarkWorkerArrived() = %+v, %v", r, err)
	}
	if r, err = store.Update(ctx, r.ID, domain.ReportUpdate{Status: statusPtr(domain.StatusInProgress)}); err != nil || r.StartTime == nil {
		t.Fatalf("Update(in_progress) = %+v, %v", r, err)
	}
	if r, err = store.UploadPhoto(ctx, r.ID, domain.Photo{Filename: "seal.png", Content: bytes.NewReader(pngPhoto(t))}); err != nil {
		t.Fatalf("UploadPhoto() error = %v", err)
	}
	if len(r.PhotoURLs) != 1 || !strings.HasPrefix(r.PhotoURLs[0], "uploads/seal_") {
		t.Fatalf("photo_urls = %v", r.PhotoURLs)
	}
	if r, err = store.Update(ctx, r.ID, domain.ReportUpdate{Status: statusPtr(domain.StatusClosed)}); err != nil {
		t.Fatalf("Update(closed) error = %v", err)
	}
	if r.CompletedAt == nil || r.TotalDurationMinutes == nil {
		t.Fatalf("closed report = %+v", r)
	}

	// the stored photo is served back
	resp, err := server.Client().Get(server.URL + "/api/v1/maintenance/photos/" + r.PhotoURLs[0])
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || !bytes.Equal(body, pngPhoto(t)) {
		t.Errorf("photo download: status=%d type=%q len=%d", resp.StatusCode, resp.Header.Get("Content-Type"), len(body))
	}

	list, err := store.List(ctx, domain.ListFilter{Status: domain.StatusClosed})
	if err != nil || len(list) != 1 || list[0].ID != r.ID {
		t.Errorf("List(closed) = %v, %v", list, err)
	}

	if err := store.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}

func TestAPI_ServerSideValidation(t *testing.T) {
	ctx := context.Background()
	server := setupServer(t)
	store := newStore(server)

	r, err := store.Create(ctx, domain.ReportCreate{LineID: "L1", Description: "leak", ReportedBy: "Op1"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = store.UploadPhoto(ctx, r.ID, domain.Photo{Filename: "notes.txt", Content: strings.NewReader("hello")})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "file" || !strings.HasPrefix(ve.Message, "File type not allowed") {
		t.Fatalf("UploadPhoto(txt) error = %v", err)
	}
	if apiErr, ok := apiclient.AsAPIError(err); !ok || apiErr.Status != http.StatusBadRequest {
		t.Errorf("UploadPhoto(txt) transport error = %v", err)
	}
}

func TestAPI_ErrorEnvelope(t *testing.T) {
	server := setupServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantType   string
	}{
		{"unknown report", http.MethodGet, "/api/v1/maintenance/failure-reports/fr_missing", "", http.StatusNotFound, "NotFoundError"},
		{"bad status filter", http.MethodGet, "/api/v1/maintenance/failure-reports?status_filter=done", "", http.StatusUnprocessableEntity, "ValidationError"},
		{"malformed body", http.MethodPost, "/api/v1/maintenance/failure-reports", "{", http.StatusUnprocessableEntity, "ValidationError"},
		{"missing line", http.MethodPost, "/api/v1/maintenance/failure-reports", `{"description":"x","reported_by":"y"}`, http.StatusBadRequest, "ValidationError"},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound, "HTTPException"},
		{"wrong method", http.MethodPut, "/api/v1/maintenance/failure-reports", "", http.StatusMethodNotAllowed, "HTTPException"},
		{"photo outside uploads", http.MethodGet, "/api/v1/maintenance/photos/etc/passwd", "", http.StatusNotFound, "HTTPException"},
		{"missing photo", http.MethodGet, "/api/v1/maintenance/photos/uploads/none.png", "", http.StatusNotFound, "NotFoundError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, server.URL+tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var envelope struct {
				Error struct {
					Message string `json:"message"`
					Type    string `json:"type"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if envelope.Error.Type != tt.wantType || envelope.Error.Message == "" {
				t.Errorf("error = %+v, want type %s", envelope.Error, tt.wantType)
			}
		})
	}
}

func TestAPI_CloseTwice(t *testing.T) {
	server := setupServer(t)
	r, err := newStore(server).Create(context.Background(), domain.ReportCreate{
		LineID: "L1", Description: "belt slipping", ReportedBy: "Op1",
	})
	if err != nil {
		t.Fatal(err)
	}
	closeURL := server.URL + "/api/v1/maintenance/failure-reports/" + r.ID + "/close"

	resp, err := server.Client().Post(closeURL, "application/json", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	var closed domain.FailureReport
	json.NewDecoder(resp.Body).Decode(&closed)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || closed.Status != domain.StatusClosed {
		t.Fatalf("first close: status %d, report %+v", resp.StatusCode, closed)
	}

	resp, err = server.Client().Post(closeURL, "application/json", strings.NewReader(`{"comments":"again"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var envelope struct {
		Error struct {
			Type  string `json:"type"`
			Field string `json:"field"`
		} `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&envelope)
	if resp.StatusCode != http.StatusBadRequest || envelope.Error.Type != "ValidationError" || envelope.Error.Field != "status" {
		t.Errorf("second close: status %d, error %+v", resp.StatusCode, envelope.Error)
	}
}

func TestAPI_Health(t *testing.T) {
	server := setupServer(t)
	for _, path := range []string{"/health", "/api/v1/maintenance/health"} {
		resp, err := server.Client().Get(server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
			t.Errorf("GET %s = %d %v", path, resp.StatusCode, body)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Errorf("GET %s: missing X-Request-ID", path)
		}
	}
}

func TestAPI_Stats(t *testing.T) {
	ctx := context.Background()
	server := setupServer(t)
	store := newStore(server)
	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, domain.ReportCreate{LineID: "L1", Description: "x", ReportedBy: "y"}); err != nil {
			t.Fatal(err)
		}
	}

	client := apiclient.New(apiclient.Config{BaseURL: server.URL}, apiclient.WithHTTPClient(server.Client()))
	var stats struct {
		Total    int64            `json:"total"`
		ByStatus map[string]int64 `json:"by_status"`
	}
	if err := client.Get(ctx, "/maintenance/stats", nil, &stats); err != nil {
		t.Fatalf("GET stats error = %v", err)
	}
	if stats.Total != 3 || stats.ByStatus["open"] != 3 || stats.ByStatus["closed"] != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
