package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ManifestVersion is the only manifest format version understood here.
const ManifestVersion = "1"

// ErrManifestWidgetExists is returned by Upsert when the code is taken and
// overwriting was not requested.
var ErrManifestWidgetExists = errors.New("dashboard: manifest already defines widget")

// WidgetManifestDocument lists extra widgets to register next to the built-in
// call analytics widgets. Seed, when present, replaces the default starter
// layout.
type WidgetManifestDocument struct {
	Version  string           `json:"version" yaml:"version"`
	Name     string           `json:"name,omitempty" yaml:"name,omitempty"`
	Package  string           `json:"package,omitempty" yaml:"package,omitempty"`
	Homepage string           `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Widgets  []ManifestWidget `json:"widgets" yaml:"widgets"`
	Seed     []SeedPlacement  `json:"seed,omitempty" yaml:"seed,omitempty"`
	Source   string           `json:"-" yaml:"-"`
}

// ManifestWidget pairs a definition with where its provider lives.
type ManifestWidget struct {
	Definition  WidgetDefinition `json:"definition" yaml:"definition"`
	Provider    ManifestProvider `json:"provider,omitempty" yaml:"provider,omitempty"`
	Maintainers []string         `json:"maintainers,omitempty" yaml:"maintainers,omitempty"`
	Tags        []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ManifestProvider is descriptive only; providers are still bound in code.
type ManifestProvider struct {
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Summary      string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Entry        string   `json:"entry,omitempty" yaml:"entry,omitempty"`
	Package      string   `json:"package,omitempty" yaml:"package,omitempty"`
	DocsURL      string   `json:"docs_url,omitempty" yaml:"docs_url,omitempty"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Channel      string   `json:"channel,omitempty" yaml:"channel,omitempty"`
}

func (p ManifestProvider) empty() bool {
	return p.Name == "" && p.Summary == "" && p.Entry == "" && p.Package == "" &&
		p.DocsURL == "" && len(p.Capabilities) == 0 && p.Channel == ""
}

// NewManifest returns an empty document for path.
func NewManifest(path string) *WidgetManifestDocument {
	return &WidgetManifestDocument{
		Version: ManifestVersion,
		Widgets: []ManifestWidget{},
		Source:  path,
	}
}

// LoadManifestFile reads path and registers its widgets.
func (r *Registry) LoadManifestFile(path string) (*WidgetManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers every definition in doc and keeps the
// provider metadata for ProviderMetadata lookups.
func (r *Registry) LoadManifestDocument(doc *WidgetManifestDocument) error {
	if doc == nil {
		return errors.New("dashboard: manifest document is nil")
	}
	for _, widget := range doc.Widgets {
		if err := r.RegisterDefinition(widget.Definition); err != nil {
			return fmt.Errorf("dashboard: register %s from %s: %w", widget.Definition.Code, doc.Source, err)
		}
		r.recordProviderMetadata(widget.Definition.Code, widget.Provider)
	}
	return nil
}

// ReadManifest decodes the manifest at path.
func ReadManifest(path string) (*WidgetManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest parses YAML (or JSON) and rejects unknown fields.
func DecodeManifest(r io.Reader) (*WidgetManifestDocument, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc WidgetManifestDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	if doc.Version == "" {
		doc.Version = ManifestVersion
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeManifest writes doc as two-space indented YAML.
func EncodeManifest(w io.Writer, doc *WidgetManifestDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("dashboard: encode manifest: %w", err)
	}
	return enc.Close()
}

// WriteManifest validates doc and writes it to path, creating parent
// directories.
func WriteManifest(path string, doc *WidgetManifestDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dashboard: mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("dashboard: create manifest %s: %w", path, err)
	}
	if err := EncodeManifest(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Upsert adds widget, replacing an entry with the same code only when
// overwrite is set. Widgets stay sorted by code.
func (doc *WidgetManifestDocument) Upsert(widget ManifestWidget, overwrite bool) error {
	code := widget.Definition.Code
	idx := -1
	for i := range doc.Widgets {
		if doc.Widgets[i].Definition.Code == code {
			idx = i
			break
		}
	}
	switch {
	case idx >= 0 && !overwrite:
		return fmt.Errorf("%w %s (use --overwrite to replace)", ErrManifestWidgetExists, code)
	case idx >= 0:
		doc.Widgets[idx] = widget
	default:
		doc.Widgets = append(doc.Widgets, widget)
	}
	sort.Slice(doc.Widgets, func(i, j int) bool {
		return doc.Widgets[i].Definition.Code < doc.Widgets[j].Definition.Code
	})
	return nil
}

// Validate checks the version and that every widget has a unique code and a
// name.
func (doc *WidgetManifestDocument) Validate() error {
	if doc.Version != ManifestVersion {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Widgets))
	for idx, widget := range doc.Widgets {
		code := widget.Definition.Code
		if code == "" {
			return fmt.Errorf("dashboard: manifest widget at index %d is missing definition.code", idx)
		}
		if widget.Definition.Name == "" {
			return fmt.Errorf("dashboard: manifest widget %s missing definition.name", code)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("dashboard: manifest duplicates widget code %s", code)
		}
		seen[code] = struct{}{}
	}
	for idx, p := range doc.Seed {
		if p.Widget == "" || p.Area == "" {
			return fmt.Errorf("dashboard: manifest seed at index %d needs widget and area", idx)
		}
	}
	return nil
}
