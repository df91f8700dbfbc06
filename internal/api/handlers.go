package api

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/budgetbook/budgetbook/internal/buildinfo"
	"github.com/budgetbook/budgetbook/internal/ingest"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/query"
	"github.com/budgetbook/budgetbook/internal/report"
	"github.com/budgetbook/budgetbook/internal/store"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

type bankInfo struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Layouts []string `json:"layouts"`
	Rules   []string `json:"rules"`
}

func (s *Server) handleBanks(c *fiber.Ctx) error {
	var banks []bankInfo
	for _, st := range s.registry.Strategies() {
		b := bankInfo{Key: st.Key(), Name: st.Institution(), Aliases: st.Aliases(), Layouts: []string{}, Rules: st.RuleNames()}
		for _, l := range st.Layouts() {
			b.Layouts = append(b.Layouts, l.Name)
		}
		banks = append(banks, b)
	}
	return c.JSON(fiber.Map{"success": true, "banks": banks})
}

type importResponse struct {
	Success    bool                      `json:"success"`
	DryRun     bool                      `json:"dryRun"`
	Bank       string                    `json:"bank"`
	Layout     string                    `json:"layout,omitempty"`
	Statement  *model.Statement          `json:"statement"`
	Accepted   []model.TransactionRecord `json:"accepted"`
	Duplicates []model.TransactionRecord `json:"duplicates"`
	Dropped    int                       `json:"dropped"`
	Empty      bool                      `json:"empty"`
	Preview    []string                  `json:"preview,omitempty"`
}

func (s *Server) handleImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "no file uploaded, use form field 'file'")
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}

	dryRun := c.FormValue("dryRun") == "true"
	doc, err := ingest.Load(fh.Filename, buf.Bytes(), strings.TrimSpace(c.FormValue("bank")))
	if err != nil {
		return err
	}

	out := s.ingest.ImportDocument(c.UserContext(), doc, dryRun)
	if out.Err != nil {
		return out.Err
	}
	res := out.Result
	resp := importResponse{
		Success:    true,
		DryRun:     dryRun,
		Bank:       res.Detection.Institution,
		Statement:  res.Statement,
		Accepted:   nonNil(out.Commit.Unique),
		Duplicates: nonNil(out.Commit.Duplicates),
		Dropped:    res.Dropped,
		Empty:      res.YieldedNothing,
	}
	if res.Detection.Layout != nil {
		resp.Layout = res.Detection.Layout.Name
	}
	if res.YieldedNothing {
		resp.Preview = res.Preview
	}
	return c.JSON(resp)
}

func (s *Server) handleDedupe(c *fiber.Ctx) error {
	removed, remaining, err := s.ledger.RemoveDuplicates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "removed": removed, "remaining": remaining})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	b, err := s.ledger.Export(c.UserContext())
	if err != nil {
		return err
	}
	c.Attachment(fmt.Sprintf("budgetbook-backup-%s.json", b.ExportedAt.Format("2006-01-02")))
	return c.JSON(b)
}

func (s *Server) handleRestore(c *fiber.Ctx) error {
	b, err := store.ReadBundle(bytes.NewReader(c.Body()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	n, err := s.ledger.Restore(c.UserContext(), b, c.QueryBool("replace", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "count": n, "categoriesRestored": b.Categories != nil})
}

func (s *Server) handleListTransactions(c *fiber.Ctx) error {
	f := query.Filters{
		Institution: c.Query("institution"),
		Category:    c.Query("category"),
		Search:      c.Query("search"),
	}
	var err error
	if f.DateFrom, err = queryDate(c, "from"); err != nil {
		return err
	}
	if f.DateTo, err = queryDate(c, "to"); err != nil {
		return err
	}
	sort := query.Sort{Field: c.Query("sort"), Desc: strings.EqualFold(c.Query("order"), "desc")}

	all, err := s.ledger.All(c.UserContext())
	if err != nil {
		return err
	}
	txns := query.FilterAndSort(all, f, sort)
	return c.JSON(fiber.Map{"success": true, "count": len(txns), "transactions": txns})
}

func (s *Server) handleSummary(c *fiber.Ctx) error {
	f := query.Filters{Institution: c.Query("institution")}
	var err error
	if f.DateFrom, err = queryDate(c, "from"); err != nil {
		return err
	}
	if f.DateTo, err = queryDate(c, "to"); err != nil {
		return err
	}

	all, err := s.ledger.All(c.UserContext())
	if err != nil {
		return err
	}
	r := report.Build(query.FilterAndSort(all, f, query.Sort{}))

	resp := fiber.Map{"success": true, "report": r}
	if month := c.Query("unusual"); month != "" {
		unusual := r.Unusual(report.Month(month), c.QueryFloat("k", 2))
		if unusual == nil {
			unusual = []report.CategoryLine{}
		}
		resp["unusual"] = unusual
	}
	return c.JSON(resp)
}

func queryDate(c *fiber.Ctx, key string) (model.Date, error) {
	v := c.Query(key)
	if v == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s date %q", key, v))
	}
	return d, nil
}

type categoryRequest struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

func (s *Server) handleUpdateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	rec, err := s.ledger.UpdateCategory(c.UserContext(), c.Params("id"), req.Category)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "transaction": rec})
}

func (s *Server) handleDeleteTransaction(c *fiber.Ctx) error {
	if err := s.ledger.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleDeleteAll(c *fiber.Ctx) error {
	n, err := s.ledger.DeleteAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "deletedCount": n})
}

func (s *Server) handleListCategories(c *fiber.Ctx) error {
	cats, err := s.ledger.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "categories": cats})
}

func (s *Server) handleAddCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "category name is required")
	}
	cats, err := s.ledger.AddCategory(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "categories": cats})
}

func (s *Server) handleRenameCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "new category name is required")
	}
	cats, err := s.ledger.RenameCategory(c.UserContext(), c.Params("name"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "categories": cats})
}

func (s *Server) handleDeleteCategory(c *fiber.Ctx) error {
	cats, err := s.ledger.DeleteCategory(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "categories": cats})
}

func nonNil(recs []model.TransactionRecord) []model.TransactionRecord {
	if recs == nil {
		return []model.TransactionRecord{}
	}
	return recs
}
