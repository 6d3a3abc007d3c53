package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// stubEngine records what it was asked to extract.
type stubEngine struct {
	pages    []string
	pdf      []byte
	rules    []models.CorrectionRule
	err      error
	received bool
}

func (s *stubEngine) result() *models.Result {
	return &models.Result{
		Success: true,
		Transactions: []models.Transaction{
			{Date: "2024-12-01", Description: "Deposit", Amount: 100, Type: models.Credit},
		},
		ValidationWarnings: []models.Warning{},
		Summary:            models.Summarize([]models.Transaction{{Amount: 100, Type: models.Credit}}),
	}
}

func (s *stubEngine) Run(ctx context.Context, path string, rules []models.CorrectionRule) (*models.Result, error) {
	s.received = true
	s.rules = rules
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s.pdf = data
	if s.err != nil {
		return &models.Result{Error: s.err.Error()}, s.err
	}
	return s.result(), nil
}

func (s *stubEngine) RunDocument(ctx context.Context, doc *models.Document, rules []models.CorrectionRule) (*models.Result, error) {
	s.received = true
	s.rules = rules
	for _, p := range doc.Pages {
		s.pages = append(s.pages, p.Text)
	}
	if s.err != nil {
		return &models.Result{Error: s.err.Error()}, s.err
	}
	return s.result(), nil
}

func setupTestApp(engine Extractor) *fiber.App {
	return NewApp(&Handler{Engine: engine, Log: zerolog.Nop(), Version: "test"})
}

// multipartRequest builds a POST /api/extract request from form fields
// and an optional file.
func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeResult(t *testing.T, resp *http.Response) models.Result {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	var res models.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("failed to decode response %q: %v", body, err)
	}
	return res
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(&stubEngine{})

	req := httptest.NewRequest("GET", "/api/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %q", result["engine"])
	}
}

func TestExtractEndpointRequiresInput(t *testing.T) {
	engine := &stubEngine{}
	app := setupTestApp(engine)

	resp, err := app.Test(multipartRequest(t, nil, "", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if res := decodeResult(t, resp); res.Success || res.Error == "" {
		t.Errorf("got %+v, want an error result", res)
	}
	if engine.received {
		t.Error("engine should not run without input")
	}
}

func TestExtractEndpointRejectsNonPDF(t *testing.T) {
	app := setupTestApp(&stubEngine{})
	resp, err := app.Test(multipartRequest(t, nil, "statement.txt", []byte("hello")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestExtractEndpointFile(t *testing.T) {
	engine := &stubEngine{}
	app := setupTestApp(engine)

	req := multipartRequest(t, map[string]string{
		"corrections": `[{"description_pattern":"zelle","correct_type":"credit"}]`,
	}, "december.pdf", []byte("%PDF-1.4 fake"))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	res := decodeResult(t, resp)
	if !res.Success || len(res.Transactions) != 1 {
		t.Errorf("got %+v", res)
	}
	if res.Metadata.SourceFile != "december.pdf" {
		t.Errorf("source file: got %q, want %q", res.Metadata.SourceFile, "december.pdf")
	}
	if string(engine.pdf) != "%PDF-1.4 fake" {
		t.Errorf("uploaded content: got %q", engine.pdf)
	}
	if len(engine.rules) != 1 || engine.rules[0].CorrectType != models.Credit {
		t.Errorf("rules: got %+v", engine.rules)
	}
}

func TestExtractEndpointText(t *testing.T) {
	engine := &stubEngine{}
	app := setupTestApp(engine)

	text := "page one\n---PAGE_BREAK---\n\n---PAGE_BREAK---\npage two"
	resp, err := app.Test(multipartRequest(t, map[string]string{"text": text, "format": "csv"}, "", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %q, want text/csv", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "2024-12-01,Deposit,credit,100.00") {
		t.Errorf("expected transaction row in:\n%s", body)
	}
	if len(engine.pages) != 2 || engine.pages[0] != "page one" || engine.pages[1] != "page two" {
		t.Errorf("pages: got %q", engine.pages)
	}
}

func TestExtractEndpointErrors(t *testing.T) {
	t.Run("bad corrections", func(t *testing.T) {
		engine := &stubEngine{}
		app := setupTestApp(engine)
		resp, err := app.Test(multipartRequest(t, map[string]string{"text": "x", "corrections": "[{"}, "", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		if engine.received {
			t.Error("engine should not run with invalid corrections")
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		app := setupTestApp(&stubEngine{err: errors.New("model unavailable after 5 attempts")})
		resp, err := app.Test(multipartRequest(t, map[string]string{"text": "x"}, "", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", resp.StatusCode)
		}
		if res := decodeResult(t, resp); res.Success || !strings.Contains(res.Error, "model unavailable") {
			t.Errorf("got %+v", res)
		}
	})
}
