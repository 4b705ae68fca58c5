// Package api exposes the statement pipeline over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/insightdelivered/statement-layout-parser/internal/extractor"
	"github.com/insightdelivered/statement-layout-parser/internal/metrics"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
	"github.com/insightdelivered/statement-layout-parser/internal/parser"
	"github.com/insightdelivered/statement-layout-parser/internal/statement"
	"github.com/insightdelivered/statement-layout-parser/internal/writer"
)

const Version = "1.0.0"

// ConvertResponse is the JSON response from the /api/convert endpoint.
type ConvertResponse struct {
	Success       bool                     `json:"success"`
	Error         string                   `json:"error,omitempty"`
	Issuer        models.IssuerID          `json:"issuer,omitempty"`
	ParserVersion string                   `json:"parserVersion,omitempty"`
	Pages         int                      `json:"pages"`
	AnchorsFound  int                      `json:"anchorsFound"`
	Count         int                      `json:"count"`
	Rejected      map[models.Outcome]int   `json:"rejected,omitempty"`
	Transactions  []models.TransactionItem `json:"transactions"`
	Diagnostics   []models.Diagnostic      `json:"diagnostics,omitempty"`
	Duplicates    [][]string               `json:"duplicates,omitempty"`
	CSV           string                   `json:"csv,omitempty"`
	Version       string                   `json:"version,omitempty"`
}

// Loader opens an uploaded document as a page source.
type Loader func(data []byte) (statement.PageSource, error)

// Options configures a Handler.
type Options struct {
	Factory     *parser.Factory
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	MaxFileSize int64
	LineEpsilon float64
	// Years is used when a request names no statement period.
	Years parser.YearResolver
	// Load defaults to extractor.Load.
	Load Loader
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	factory     *parser.Factory
	extractor   *statement.Extractor
	metrics     *metrics.Recorder
	logger      *slog.Logger
	maxFileSize int64
	lineEpsilon float64
	years       parser.YearResolver
	load        Loader
}

// NewHandler wires a Handler from opts.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := opts.Factory
	if factory == nil {
		factory = parser.NewFactory(logger)
	}
	load := opts.Load
	if load == nil {
		load = func(data []byte) (statement.PageSource, error) {
			return extractor.Load(data, logger)
		}
	}

	var observer statement.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics
	}

	return &Handler{
		factory:     factory,
		extractor:   statement.NewExtractor(factory, logger, observer),
		metrics:     opts.Metrics,
		logger:      logger,
		maxFileSize: opts.MaxFileSize,
		lineEpsilon: opts.LineEpsilon,
		years:       opts.Years,
		load:        load,
	}
}

// NewApp returns a fiber app with all routes registered.
func (h *Handler) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "statement-parser",
		BodyLimit:    int(h.bodyLimit()),
		ErrorHandler: h.handleError,
	})
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/api/health", h.HandleHealth)
	app.Get("/api/issuers", h.HandleIssuers)
	app.Post("/api/convert", h.HandleConvert)
	if h.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.metrics.Handler()))
	}
}

func (h *Handler) bodyLimit() int64 {
	if h.maxFileSize <= 0 {
		return 32 << 20
	}
	// leave room for the multipart envelope and form fields
	return h.maxFileSize + 1<<20
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"engine":  "fiber",
	})
}

// HandleIssuers lists the registered parsers.
func (h *Handler) HandleIssuers(c *fiber.Ctx) error {
	return c.JSON(h.factory.ParserInfo())
}

// HandleConvert extracts transactions from an uploaded PDF. The form field
// "format" selects the response: json (default), csv or xlsx.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		return writeError(c, fiber.StatusBadRequest, "Only PDF files are supported.")
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		return writeError(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File is %d bytes; the limit is %d.", fh.Size, h.maxFileSize))
	}

	opts, err := h.requestOptions(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	format := strings.ToLower(c.FormValue("format", "json"))
	includeHeader := c.FormValue("header") != "false"

	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "Failed to read uploaded file.")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "Failed to read uploaded file.")
	}

	src, err := h.load(data)
	if err != nil {
		return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
	}

	info, err := h.extractor.Extract(c.UserContext(), src, opts)
	if err != nil {
		h.logger.Warn("conversion failed", "file", fh.Filename, "error", err)
		status := fiber.StatusUnprocessableEntity
		if errors.Is(err, statement.ErrAmountRejected) {
			status = fiber.StatusConflict
		}
		return writeError(c, status, fmt.Sprintf("Parsing failed: %v", err))
	}

	if format != "json" {
		return h.download(c, fh.Filename, format, includeHeader, info)
	}

	var csvBuf bytes.Buffer
	if err := (&writer.CSVWriter{IncludeHeader: includeHeader}).Write(&csvBuf, info); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}

	doc := writer.NewDocument(info)
	resp := ConvertResponse{
		Success:       true,
		Issuer:        doc.Issuer,
		ParserVersion: doc.ParserVersion,
		Pages:         doc.Pages,
		AnchorsFound:  doc.AnchorsFound,
		Count:         len(doc.Transactions),
		Rejected:      doc.Rejected,
		Transactions:  doc.Transactions,
		Diagnostics:   doc.Diagnostics,
		Duplicates:    duplicateKeys(info.Transactions),
		CSV:           csvBuf.String(),
		Version:       Version,
	}
	return c.JSON(resp)
}

// requestOptions reads issuer, strict mode and statement period from the
// form. "bank" is accepted as an alias for "issuer".
func (h *Handler) requestOptions(c *fiber.Ctx) (statement.Options, error) {
	issuer := c.FormValue("issuer")
	if issuer == "" {
		issuer = c.FormValue("bank")
	}
	opts := statement.Options{
		Issuer:      models.IssuerID(issuer),
		Years:       h.years,
		Strict:      c.FormValue("strict") == "true",
		LineEpsilon: h.lineEpsilon,
	}

	start, end := c.FormValue("periodStart"), c.FormValue("periodEnd")
	if start == "" && end == "" {
		return opts, nil
	}
	ps, err := time.Parse("2006-01-02", start)
	if err != nil {
		return opts, fmt.Errorf("invalid periodStart %q: use YYYY-MM-DD", start)
	}
	pe, err := time.Parse("2006-01-02", end)
	if err != nil {
		return opts, fmt.Errorf("invalid periodEnd %q: use YYYY-MM-DD", end)
	}
	period := parser.StatementPeriod{Start: ps, End: pe}
	if err := period.Validate(); err != nil {
		return opts, err
	}
	opts.Years = period
	return opts, nil
}

func (h *Handler) download(c *fiber.Ctx, filename, format string, includeHeader bool, info *models.StatementInfo) error {
	w, err := writer.New(format, includeHeader)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	var buf bytes.Buffer
	if err := w.Write(&buf, info); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
	}
	name := strings.TrimSuffix(filename, ".pdf")
	name = strings.TrimSuffix(name, ".PDF") + w.Extension()
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, w.ContentType())
	return c.Send(buf.Bytes())
}

func duplicateKeys(items []models.TransactionItem) [][]string {
	var out [][]string
	for _, group := range statement.FindPotentialDuplicates(items) {
		keys := make([]string, 0, len(group))
		for _, it := range group {
			keys = append(keys, it.Key)
		}
		out = append(out, keys)
	}
	return out
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return writeError(c, status, err.Error())
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ConvertResponse{
		Success: false,
		Error:   msg,
	})
}
