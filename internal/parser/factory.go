package parser

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// Info describes a registered parser.
type Info struct {
	Issuer  models.IssuerID `json:"issuer"`
	Version string          `json:"version"`
}

// Factory maps issuer identifiers to parsers. The registry lives in memory
// and is rebuilt at process start.
type Factory struct {
	mu       sync.RWMutex
	parsers  map[models.IssuerID]Parser
	fallback Parser
	logger   *slog.Logger
}

// NewFactory returns a factory with the built-in Citibank, OCBC and Unknown
// parsers registered. A nil logger uses slog.Default().
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	unknown := NewUnknownParser(logger)
	f := &Factory{
		parsers:  make(map[models.IssuerID]Parser),
		fallback: unknown,
		logger:   logger,
	}
	f.RegisterParser(models.IssuerCitibank, NewCitibankParser(logger))
	f.RegisterParser(models.IssuerOCBC, NewOCBCParser(logger))
	f.RegisterParser(models.IssuerUnknown, unknown)
	return f
}

// CreateParser returns the parser registered for issuer. It never fails: an
// unregistered issuer gets the Unknown parser and a warning is logged.
func (f *Factory) CreateParser(issuer models.IssuerID) Parser {
	f.mu.RLock()
	p, ok := f.parsers[issuer]
	if !ok {
		p, ok = f.lookupFold(issuer)
	}
	fallback := f.fallback
	f.mu.RUnlock()

	if ok {
		return p
	}
	f.logger.Warn("no parser registered for issuer, using generic parser",
		"issuer", string(issuer), "fallback", string(fallback.Issuer()))
	return fallback
}

// lookupFold matches issuer case-insensitively. Callers must hold mu.
func (f *Factory) lookupFold(issuer models.IssuerID) (Parser, bool) {
	for id, p := range f.parsers {
		if strings.EqualFold(string(id), string(issuer)) {
			return p, true
		}
	}
	return nil, false
}

// RegisterParser adds or replaces the parser for issuer. Registering
// IssuerUnknown also replaces the fallback.
func (f *Factory) RegisterParser(issuer models.IssuerID, p Parser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parsers[issuer] = p
	if issuer == models.IssuerUnknown {
		f.fallback = p
	}
}

// SupportedIssuers returns the registered issuer identifiers, sorted.
func (f *Factory) SupportedIssuers() []models.IssuerID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]models.IssuerID, 0, len(f.parsers))
	for id := range f.parsers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ParserInfo lists issuer and version for every registered parser.
func (f *Factory) ParserInfo() []Info {
	ids := f.SupportedIssuers()
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		out = append(out, Info{Issuer: id, Version: f.parsers[id].Version()})
	}
	return out
}
