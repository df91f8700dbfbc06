package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/importlog"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/pipeline"
	"github.com/budgetbook/budgetbook/internal/store"
)

const januaryCSV = "Дата;Описание;Сумма\n15.01.2024;Salary;50000\n16.01.2024;Пятерочка;-1 250,50\n"
const februaryCSV = "Дата;Описание;Сумма\n16.01.2024;Пятерочка;-1 250,50\n02.02.2024;Метро;-60\n"

func newService(opts Options) (*Service, *store.Ledger) {
	reg := importer.DefaultRegistry()
	ledger := store.NewLedger(store.NewMemory())
	p := pipeline.New(reg, pipeline.Options{})
	return NewService(p, reg, ledger, opts), ledger
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad_ByExtension(t *testing.T) {
	doc, err := Load("jan.csv", []byte(januaryCSV), "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Tabular, doc.Container)
	assert.Equal(t, 3, doc.Grid.RowCount())

	doc, err = Load("statement.TXT", []byte("05.03.2024 14:20 001 Кафе -100,00 900,00"), "sber")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Textual, doc.Container)
	assert.Equal(t, "sber", doc.Institution)
}

func TestLoad_Windows1251(t *testing.T) {
	data, err := charmap.Windows1251.NewEncoder().String(januaryCSV)
	require.NoError(t, err)

	doc, err := Load("jan.csv", []byte(data), "")
	require.NoError(t, err)
	assert.Equal(t, "Дата", doc.Grid.Cell(1, 1).Text)
	assert.Equal(t, "Пятерочка", doc.Grid.Cell(3, 2).Text)
}

func TestLoad_SniffsPDF(t *testing.T) {
	data, err := os.ReadFile("../pdftext/testdata/statement.pdf")
	require.NoError(t, err)

	doc, err := Load("download", data, "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Textual, doc.Container)
	assert.Contains(t, doc.Text, "Taxi ride")
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("photo.jpg", []byte{0xFF, 0xD8, 0xFF}, "")
	assert.True(t, errors.Is(err, model.ErrUnsupportedContainer))
}

func TestLoad_CorruptWorkbook(t *testing.T) {
	_, err := Load("broken.xlsx", []byte("not a zip"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.xlsx")
}

func TestImportFiles_CrossFileDuplicate(t *testing.T) {
	dir := t.TempDir()
	jan := writeFile(t, dir, "jan.csv", []byte(januaryCSV))
	feb := writeFile(t, dir, "feb.csv", []byte(februaryCSV))

	svc, ledger := newService(Options{Workers: 2})
	outcomes, err := svc.ImportFiles(context.Background(), []string{jan, feb}, Selection{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	require.NoError(t, outcomes[0].Err)
	assert.Len(t, outcomes[0].Commit.Unique, 2)
	require.NoError(t, outcomes[1].Err)
	assert.Len(t, outcomes[1].Commit.Unique, 1)
	assert.Len(t, outcomes[1].Commit.Duplicates, 1)

	all, err := ledger.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "jan.csv", all[0].FileName)
	assert.Equal(t, "feb.csv", all[2].FileName)
	assert.Equal(t, "Transport", all[2].Category)
}

func TestImportFiles_Idempotent(t *testing.T) {
	dir := t.TempDir()
	jan := writeFile(t, dir, "jan.csv", []byte(januaryCSV))
	svc, ledger := newService(Options{})

	_, err := svc.ImportFiles(context.Background(), []string{jan}, Selection{})
	require.NoError(t, err)
	outcomes, err := svc.ImportFiles(context.Background(), []string{jan}, Selection{})
	require.NoError(t, err)
	assert.Empty(t, outcomes[0].Commit.Unique)
	assert.Len(t, outcomes[0].Commit.Duplicates, 2)

	all, err := ledger.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportFiles_DryRun(t *testing.T) {
	dir := t.TempDir()
	jan := writeFile(t, dir, "jan.csv", []byte(januaryCSV))
	svc, ledger := newService(Options{})

	outcomes, err := svc.ImportFiles(context.Background(), []string{jan}, Selection{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, outcomes[0].Commit.Unique, 2)
	assert.Equal(t, importlog.StatusDryRun, outcomes[0].Status(true))

	all, err := ledger.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImportFiles_FailureIsolated(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "notes.txt", []byte("05.03.2024 14:20 001 Кафе -100,00 900,00"))
	jan := writeFile(t, dir, "jan.csv", []byte(januaryCSV))
	missing := filepath.Join(dir, "missing.csv")

	svc, _ := newService(Options{})
	outcomes, err := svc.ImportFiles(context.Background(), []string{bad, jan, missing}, Selection{})
	require.NoError(t, err)

	assert.True(t, errors.Is(outcomes[0].Err, model.ErrInstitutionNotSelected))
	assert.Nil(t, outcomes[0].Result)
	assert.NoError(t, outcomes[1].Err)
	assert.Error(t, outcomes[2].Err)

	e := outcomes[0].LogEntry(time.Now(), false)
	assert.Equal(t, importlog.StatusFailed, e.Status)
	assert.Equal(t, "notes.txt", e.File)
	assert.NotEmpty(t, e.Error)

	e = outcomes[1].LogEntry(time.Now(), false)
	assert.Equal(t, importlog.StatusImported, e.Status)
	assert.Equal(t, 2, e.Accepted)
}

func TestImportFiles_Cancelled(t *testing.T) {
	dir := t.TempDir()
	jan := writeFile(t, dir, "jan.csv", []byte(januaryCSV))
	svc, ledger := newService(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ImportFiles(ctx, []string{jan}, Selection{})
	assert.ErrorIs(t, err, context.Canceled)

	all, err := ledger.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImportDocument_AutoDetectText(t *testing.T) {
	data, err := os.ReadFile("../pdftext/testdata/statement.pdf")
	require.NoError(t, err)
	doc, err := Load("statement.pdf", data, "")
	require.NoError(t, err)

	plain, _ := newService(Options{})
	out := plain.ImportDocument(context.Background(), doc, false)
	assert.True(t, errors.Is(out.Err, model.ErrInstitutionNotSelected))

	svc, ledger := newService(Options{AutoDetectText: true})
	out = svc.ImportDocument(context.Background(), doc, false)
	require.NoError(t, out.Err)
	assert.Equal(t, "Sberbank", out.Result.Statement.Institution())
	require.Len(t, out.Commit.Unique, 2)
	assert.True(t, out.Commit.Unique[1].Amount.Equal(decimal.NewFromInt(-350)))

	all, err := ledger.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestScan_FindsStatements(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bank.csv", []byte("data"))
	writeFile(t, dir, "statement.PDF", []byte("data"))
	writeFile(t, dir, "notes.md", []byte("data"))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "bank.csv", files[0].Name)
	assert.Equal(t, "statement.PDF", files[1].Name)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProcessedDir), 0o755))
	writeFile(t, dir, "new.xlsx", []byte("data"))
	writeFile(t, filepath.Join(dir, ProcessedDir), "old.xlsx", []byte("data"))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.xlsx", files[0].Name)
}

func TestScan_MissingInbox(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "import"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bank.csv", []byte("data"))

	require.NoError(t, MarkProcessed(dir, "bank.csv"))

	_, err := os.Stat(filepath.Join(dir, "bank.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, ProcessedDir, "bank.csv"))
	assert.NoError(t, err)
}

func TestImportInbox(t *testing.T) {
	inbox := t.TempDir()
	writeFile(t, inbox, "jan.csv", []byte(januaryCSV))
	writeFile(t, inbox, "broken.csv", []byte("Foo;Bar\n1;2\n"))
	writeFile(t, inbox, "blank.csv", []byte("Дата;Описание;Сумма\n15.01.2024;Кофе;\n"))
	svc, ledger := newService(Options{})

	outcomes, err := svc.ImportInbox(context.Background(), inbox, Selection{DryRun: true})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	_, err = os.Stat(filepath.Join(inbox, "jan.csv"))
	assert.NoError(t, err, "dry run leaves the inbox alone")

	outcomes, err = svc.ImportInbox(context.Background(), inbox, Selection{})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	_, err = os.Stat(filepath.Join(inbox, ProcessedDir, "jan.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(inbox, "broken.csv"))
	assert.NoError(t, err, "failed files stay for the next run")

	for _, o := range outcomes {
		if filepath.Base(o.File) == "blank.csv" {
			require.NoError(t, o.Err)
			assert.True(t, o.Result.YieldedNothing)
		}
	}
	_, err = os.Stat(filepath.Join(inbox, "blank.csv"))
	assert.NoError(t, err, "files without records stay for the next run")
	_, err = os.Stat(filepath.Join(inbox, ProcessedDir, "blank.csv"))
	assert.True(t, os.IsNotExist(err))

	all, err := ledger.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInboxJob(t *testing.T) {
	root := t.TempDir()
	inbox := filepath.Join(root, "import")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	svc, ledger := newService(Options{})
	job := &InboxJob{Service: svc, Inbox: inbox, DataDir: root}

	require.NoError(t, job.Run(), "an empty inbox is not an error")

	writeFile(t, inbox, "feb.csv", []byte(februaryCSV))
	require.NoError(t, job.Run())

	all, err := ledger.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	entries, err := importlog.Read(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "feb.csv", entries[0].File)
	assert.Equal(t, importlog.StatusImported, entries[0].Status)

	writeFile(t, inbox, "broken.csv", []byte("Foo;Bar\n1;2\n"))
	assert.ErrorContains(t, job.Run(), "1 of 1 files failed")
	assert.Equal(t, "inbox-import", job.Name())
}
