package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/ingest"
	"github.com/budgetbook/budgetbook/internal/pipeline"
	"github.com/budgetbook/budgetbook/internal/store"
)

const statementCSV = "Дата;Описание;Сумма\n15.01.2024;Salary;50000\n16.01.2024;Пятерочка;-1 250,50\n02.02.2024;Метро;-60\n"

func setupTestApp(t *testing.T) (*fiber.App, *store.Ledger) {
	t.Helper()
	reg := importer.DefaultRegistry()
	ledger := store.NewLedger(store.NewMemory())
	svc := ingest.NewService(pipeline.New(reg, pipeline.Options{}), reg, ledger, ingest.Options{})
	return New(svc, ledger, reg, zerolog.Nop()).App(), ledger
}

func upload(t *testing.T, name string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return resp.StatusCode, out
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestBanksEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/banks", nil))
	assert.Equal(t, fiber.StatusOK, status)
	banks := body["banks"].([]any)
	require.Len(t, banks, 4)
	sber := banks[0].(map[string]any)
	assert.Equal(t, "sber", sber["key"])
	assert.Equal(t, []any{"full", "date-description-amount", "date-time-description-amount"}, sber["rules"])
}

func TestImportEndpoint(t *testing.T) {
	app, ledger := setupTestApp(t)

	status, body := do(t, app, upload(t, "jan.csv", []byte(statementCSV), nil))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["accepted"], 3)
	assert.Len(t, body["duplicates"], 0)

	all, err := ledger.All(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	status, body = do(t, app, upload(t, "jan.csv", []byte(statementCSV), map[string]string{"dryRun": "true"}))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["dryRun"])
	assert.Len(t, body["accepted"], 0)
	assert.Len(t, body["duplicates"], 3)
}

func TestImportEndpoint_Errors(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	status, body := do(t, app, req)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	status, body = do(t, app, upload(t, "notes.txt", []byte("05.03.2024 14:20 001 Кафе -100,00 900,00"), nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "institution_not_selected", body["kind"])

	status, body = do(t, app, upload(t, "notes.txt", []byte("x"), map[string]string{"bank": "nowhere"}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "unknown_institution", body["kind"])

	status, body = do(t, app, upload(t, "odd.csv", []byte("Foo;Bar\n1;2\n"), nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "format_not_recognized", body["kind"])
	assert.NotEmpty(t, body["attempts"])
}

func TestTransactionsEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)
	status, _ := do(t, app, upload(t, "jan.csv", []byte(statementCSV), nil))
	require.Equal(t, fiber.StatusOK, status)

	q := url.Values{"from": {"2024-01-16"}, "sort": {"amount"}, "order": {"desc"}}
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/transactions?"+q.Encode(), nil))
	require.Equal(t, fiber.StatusOK, status)
	txns := body["transactions"].([]any)
	require.Len(t, txns, 2)
	assert.Equal(t, "Метро", txns[0].(map[string]any)["description"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/transactions?from=yesterday", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)

	id := txns[0].(map[string]any)["id"].(string)
	status, body = do(t, app, jsonRequest(http.MethodPatch, "/api/transactions/"+id, `{"category":"Продукты"}`))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Groceries", body["transaction"].(map[string]any)["category"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/transactions/"+id, nil))
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/transactions/"+id, nil))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/transactions", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["deletedCount"])
}

func TestCategoriesEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := do(t, app, jsonRequest(http.MethodPost, "/api/categories", `{"name":"Здоровье"}`))
	require.Equal(t, fiber.StatusCreated, status)
	assert.Contains(t, body["categories"], "Здоровье")

	status, body = do(t, app, jsonRequest(http.MethodPut, "/api/categories/"+url.PathEscape("Здоровье"), `{"name":"Health"}`))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body["categories"], "Health")
	assert.NotContains(t, body["categories"], "Здоровье")

	status, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/categories/Missing", nil))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, jsonRequest(http.MethodPost, "/api/categories", `{}`))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestExportRestoreEndpoints(t *testing.T) {
	app, ledger := setupTestApp(t)
	status, _ := do(t, app, upload(t, "jan.csv", []byte(statementCSV), nil))
	require.Equal(t, fiber.StatusOK, status)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/export", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "budgetbook-backup-")
	bundle, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	status, body := do(t, app, jsonRequest(http.MethodPost, "/api/restore?replace=true", string(bundle)))
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 3, body["count"])

	all, err := ledger.All(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	status, _ = do(t, app, jsonRequest(http.MethodPost, "/api/restore", `{"version":"2.0"}`))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestDedupeEndpoint(t *testing.T) {
	app, ledger := setupTestApp(t)
	status, _ := do(t, app, upload(t, "jan.csv", []byte(statementCSV), nil))
	require.Equal(t, fiber.StatusOK, status)

	all, err := ledger.All(t.Context())
	require.NoError(t, err)
	_, err = ledger.Save(t.Context(), all[:1])
	require.NoError(t, err)

	status, body := do(t, app, httptest.NewRequest(http.MethodPost, "/api/dedupe", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["removed"])
	assert.EqualValues(t, 3, body["remaining"])
}

func TestSummaryEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)
	status, _ := do(t, app, upload(t, "jan.csv", []byte(statementCSV), nil))
	require.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/summary?unusual=2024-02&k=0.5", nil))
	require.Equal(t, fiber.StatusOK, status, body)
	r := body["report"].(map[string]any)
	assert.Equal(t, []any{"2024-01", "2024-02"}, r["months"])
	assert.Equal(t, "50000", r["income"])
	assert.Equal(t, "48689.5", r["net"])
	assert.Len(t, r["categories"], 3)
	assert.NotNil(t, body["unusual"])

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/summary?to=2024-01-31", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"2024-01"}, body["report"].(map[string]any)["months"])
	assert.Nil(t, body["unusual"])
}

func TestCORS(t *testing.T) {
	reg := importer.DefaultRegistry()
	ledger := store.NewLedger(store.NewMemory())
	svc := ingest.NewService(pipeline.New(reg, pipeline.Options{}), reg, ledger, ingest.Options{})
	app := New(svc, ledger, reg, zerolog.Nop(), WithCORS([]string{"http://localhost:5173"})).App()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	plain, _ := setupTestApp(t)
	resp, err = plain.Test(req.Clone(t.Context()), -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
