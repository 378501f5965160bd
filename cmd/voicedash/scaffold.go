package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ettle/strcase"

	"github.com/pharmai/voicedash/components/dashboard"
)

const defaultProviderPackage = "github.com/pharmai/voicedash/components/dashboard"

type scaffoldCmd struct {
	Code            string   `required:"" help:"Fully-qualified widget code (e.g. voice.widget.hold_times)."`
	Name            string   `help:"Display name; derived from the code when empty."`
	Description     string   `required:"" help:"One-line description used in manifests."`
	Category        string   `default:"analytics" help:"Widget category (analytics, stats, etc.)."`
	ManifestPath    string   `required:"" type:"path" help:"Path to the widget manifest YAML file to update."`
	SchemaPath      string   `type:"path" help:"Optional path to a JSON schema file for the widget configuration."`
	Tag             []string `help:"Tags to include in the manifest (repeatable)."`
	Maintainer      []string `help:"Maintainers to record in the manifest."`
	Capabilities    []string `help:"Provider capability labels (json,echarts,svg,...)."`
	DocsURL         string   `help:"Link to provider documentation."`
	Channel         string   `help:"Distribution channel label (demo, partner, internal)."`
	ProviderPackage string   `default:"github.com/pharmai/voicedash/components/dashboard" help:"Go package where the provider factory lives."`
	ProviderEntry   string   `help:"Factory identifier recorded in the manifest (defaults to New<Widget>Provider)."`
	ProviderOut     string   `help:"File path for the generated provider stub (defaults to components/dashboard/<code>_provider.go)."`
	Overwrite       bool     `help:"Overwrite an existing provider stub or manifest entry."`
	SkipProvider    bool     `name:"skip-provider" help:"Skip provider stub generation."`

	out io.Writer
}

func (cmd *scaffoldCmd) Run(_ context.Context) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("voicedash: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	schema, err := cmd.loadSchema()
	if err != nil {
		return err
	}

	baseName := deriveBaseName(cmd.Code)
	providerType := baseName + "Provider"
	providerPackage := cmd.ProviderPackage
	if providerPackage == "" {
		providerPackage = defaultProviderPackage
	}
	providerEntry := cmd.ProviderEntry
	if providerEntry == "" {
		providerEntry = fmt.Sprintf("%s.New%s", providerPackage, providerType)
	}
	name := cmd.Name
	if name == "" {
		name = deriveTitle(cmd.Code)
	}

	entry := dashboard.ManifestWidget{
		Definition: dashboard.WidgetDefinition{
			Code:        cmd.Code,
			Name:        name,
			Description: cmd.Description,
			Category:    cmd.Category,
			Schema:      schema,
		},
		Provider: dashboard.ManifestProvider{
			Name:         name + " Provider",
			Summary:      cmd.Description,
			Entry:        providerEntry,
			Package:      providerPackage,
			DocsURL:      cmd.DocsURL,
			Capabilities: cmd.Capabilities,
			Channel:      cmd.Channel,
		},
		Maintainers: cmd.Maintainer,
		Tags:        cmd.Tag,
	}
	if err := doc.Upsert(entry, cmd.Overwrite); err != nil {
		return err
	}
	if err := dashboard.WriteManifest(manifestPath, doc); err != nil {
		return err
	}

	out := writerOr(cmd.out)
	if cmd.SkipProvider {
		fmt.Fprintf(out, "added %s to %s (provider entry %s)\n", cmd.Code, manifestPath, providerEntry)
		return nil
	}
	providerPath := cmd.ProviderOut
	if providerPath == "" {
		providerPath = filepath.Join("components", "dashboard", sanitizeFileName(cmd.Code)+"_provider.go")
	}
	if err := writeProviderStub(providerPath, providerType, cmd.Code, cmd.Overwrite); err != nil {
		return err
	}
	fmt.Fprintf(out, "added %s to %s and generated %s\n", cmd.Code, manifestPath, providerPath)
	return nil
}

func (cmd *scaffoldCmd) validate() error {
	if !strings.Contains(cmd.Code, ".") {
		return fmt.Errorf("voicedash: widget code %s must contain at least one '.' segment", cmd.Code)
	}
	return nil
}

func (cmd *scaffoldCmd) loadSchema() (map[string]any, error) {
	if cmd.SchemaPath == "" {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}, nil
	}
	data, err := os.ReadFile(cmd.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("voicedash: read schema file: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("voicedash: parse schema JSON: %w", err)
	}
	return schema, nil
}

func loadOrInitManifest(path string) (*dashboard.WidgetManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dashboard.NewManifest(path), nil
		}
		return nil, fmt.Errorf("voicedash: stat manifest: %w", err)
	}
	return dashboard.ReadManifest(path)
}

const providerStubTemplate = `package dashboard

import (
	"context"
)

// %[1]s serves data for %[2]s widgets.
type %[1]s struct {
	repo CallVolumeRepository
}

// New%[1]s binds the provider to a repository.
func New%[1]s(repo CallVolumeRepository) Provider {
	return &%[1]s{repo: repo}
}

// Fetch builds the widget payload.
func (p *%[1]s) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	days, err := p.repo.FetchCallVolume(ctx, CallVolumeQuery{})
	if err != nil {
		return nil, err
	}
	return WidgetData{
		"widget": meta.Instance.ID,
		"days":   days,
	}, nil
}
`

func writeProviderStub(path, providerType, code string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("voicedash: provider stub %s already exists (use --overwrite or --provider-out)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("voicedash: mkdir provider dir: %w", err)
	}
	content := fmt.Sprintf(providerStubTemplate, providerType, code)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("voicedash: write provider stub: %w", err)
	}
	return nil
}

func lastSegment(code string) string {
	parts := strings.Split(code, ".")
	slug := strings.TrimSpace(parts[len(parts)-1])
	if slug == "" {
		return code
	}
	return slug
}

func deriveBaseName(code string) string {
	return strcase.ToPascal(lastSegment(code))
}

func deriveTitle(code string) string {
	return strcase.ToCase(lastSegment(code), strcase.TitleCase, ' ')
}

func sanitizeFileName(code string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_", "/", "_", " ", "_")
	return strings.ToLower(replacer.Replace(code))
}
