package services

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

const creditPacksEnv = "CREDIT_PACKS_YAML"

//go:embed credit_packs.yaml
var creditPacksFS embed.FS

// PackCatalog exposes the purchasable credit packs. The catalog is loaded
// once at startup from the embedded YAML (or an override file) and is
// immutable afterwards.
type PackCatalog interface {
	Packs() []types.CreditPack
	Get(id string) (*types.CreditPack, bool)
}

type packCatalog struct {
	log   *logger.Logger
	packs []types.CreditPack
	byID  map[string]types.CreditPack
}

type packCatalogFile struct {
	Packs []types.CreditPack `yaml:"packs"`
}

// NewPackCatalog parses and validates the pack list. CREDIT_PACKS_YAML may
// point at an override file; otherwise the embedded default is used.
func NewPackCatalog(log *logger.Logger) (PackCatalog, error) {
	catalogLog := log.With("service", "PackCatalog")

	raw, source, err := loadPackYAML()
	if err != nil {
		return nil, err
	}

	var file packCatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse credit packs yaml (%s): %w", source, err)
	}
	if len(file.Packs) == 0 {
		return nil, fmt.Errorf("credit packs yaml (%s) defines no packs", source)
	}

	byID := make(map[string]types.CreditPack, len(file.Packs))
	for i, p := range file.Packs {
		if p.ID == "" {
			return nil, fmt.Errorf("credit pack %d has no id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate credit pack id %q", p.ID)
		}
		if p.Credits <= 0 {
			return nil, fmt.Errorf("credit pack %q has non-positive credits %d", p.ID, p.Credits)
		}
		if p.PriceCents <= 0 {
			return nil, fmt.Errorf("credit pack %q has non-positive price %d", p.ID, p.PriceCents)
		}
		byID[p.ID] = p
	}

	catalogLog.Info("Loaded credit pack catalog", "source", source, "packs", len(file.Packs))
	return &packCatalog{log: catalogLog, packs: file.Packs, byID: byID}, nil
}

func loadPackYAML() ([]byte, string, error) {
	if path := os.Getenv(creditPacksEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read %s=%s: %w", creditPacksEnv, path, err)
		}
		return raw, path, nil
	}
	raw, err := creditPacksFS.ReadFile("credit_packs.yaml")
	if err != nil {
		return nil, "", fmt.Errorf("read embedded credit_packs.yaml: %w", err)
	}
	return raw, "embedded", nil
}

func (pc *packCatalog) Packs() []types.CreditPack {
	out := make([]types.CreditPack, len(pc.packs))
	copy(out, pc.packs)
	return out
}

func (pc *packCatalog) Get(id string) (*types.CreditPack, bool) {
	p, ok := pc.byID[id]
	if !ok {
		return nil, false
	}
	return &p, true
}
