// Package planfile reads and writes cycle files: the version sets and raw plans
// of one folder as produced by the comparison stage, and the optimized result.
package planfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ning0612/drivesync/internal/domain"
)

// Format is the encoding of a cycle or result document
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (must be 'yaml' or 'json')", s)
	}
}

// FormatFromPath guesses the format from a file extension (yaml unless .json)
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// VersionDoc is a directory (path) or file (name) version
type VersionDoc struct {
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Checksum string `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

// CauseDoc is the three-way comparison behind an action
type CauseDoc struct {
	Original *VersionDoc `yaml:"original,omitempty" json:"original,omitempty"`
	Client   *VersionDoc `yaml:"client,omitempty" json:"client,omitempty"`
	Server   *VersionDoc `yaml:"server,omitempty" json:"server,omitempty"`
}

// ParamsDoc holds the optimizer annotations of an action
type ParamsDoc struct {
	NestedRemoves []ActionDoc `yaml:"nested_removes,omitempty" json:"nested_removes,omitempty"`
	SourceVersion *VersionDoc `yaml:"source_version,omitempty" json:"source_version,omitempty"`
	SourceFolder  string      `yaml:"source_folder,omitempty" json:"source_folder,omitempty"`

	// Inline is the base64 payload of an inlined metadata download (nil = not inlined)
	Inline    *string `yaml:"inline,omitempty" json:"inline,omitempty"`
	NoPayload bool    `yaml:"no_payload,omitempty" json:"no_payload,omitempty"`
}

// ActionDoc is one planned operation
type ActionDoc struct {
	// ID is generated when empty
	ID         string      `yaml:"id,omitempty" json:"id,omitempty"`
	Kind       string      `yaml:"kind" json:"kind"`
	Version    *VersionDoc `yaml:"version,omitempty" json:"version,omitempty"`
	NewVersion *VersionDoc `yaml:"new_version,omitempty" json:"new_version,omitempty"`
	Cause      *CauseDoc   `yaml:"cause,omitempty" json:"cause,omitempty"`
	DependsOn  string      `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Params     *ParamsDoc  `yaml:"params,omitempty" json:"params,omitempty"`
}

// PlanDoc is the pair of ordered action lists
type PlanDoc struct {
	ForServer []ActionDoc `yaml:"for_server" json:"for_server"`
	ForClient []ActionDoc `yaml:"for_client" json:"for_client"`
}

// SideDoc is the complete version set of one side
type SideDoc struct {
	Directories []VersionDoc `yaml:"directories,omitempty" json:"directories,omitempty"`
	Files       []VersionDoc `yaml:"files,omitempty" json:"files,omitempty"`
}

// Cycle is the input of one optimization cycle
type Cycle struct {
	// Folder names the folder being synced (used for run history)
	Folder string `yaml:"folder" json:"folder"`

	// FolderID identifies the folder in storage ("" = storage root)
	FolderID string `yaml:"folder_id,omitempty" json:"folder_id,omitempty"`

	// MetaMode overrides the configured metadata mode when set
	MetaMode *bool `yaml:"meta_mode,omitempty" json:"meta_mode,omitempty"`

	Server SideDoc `yaml:"server" json:"server"`
	Client SideDoc `yaml:"client" json:"client"`

	// Contents maps a server directory path to the files it holds, for plain checksums
	Contents map[string][]VersionDoc `yaml:"contents,omitempty" json:"contents,omitempty"`

	Directories PlanDoc `yaml:"directories" json:"directories"`
	Files       PlanDoc `yaml:"files" json:"files"`
}

// StatsDoc summarizes a run
type StatsDoc struct {
	DirectoryActionsBefore int      `yaml:"directory_actions_before" json:"directory_actions_before"`
	DirectoryActionsAfter  int      `yaml:"directory_actions_after" json:"directory_actions_after"`
	FileActionsBefore      int      `yaml:"file_actions_before" json:"file_actions_before"`
	FileActionsAfter       int      `yaml:"file_actions_after" json:"file_actions_after"`
	FailedPasses           []string `yaml:"failed_passes,omitempty" json:"failed_passes,omitempty"`
	Warnings               []string `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// DifferenceDoc is an end-state difference found by verification
type DifferenceDoc struct {
	Entity    string `yaml:"entity" json:"entity"`
	Side      string `yaml:"side" json:"side"`
	Key       string `yaml:"key" json:"key"`
	Raw       string `yaml:"raw" json:"raw"`
	Optimized string `yaml:"optimized" json:"optimized"`
	Expected  bool   `yaml:"expected" json:"expected"`
}

// Result is the output of one optimization cycle
type Result struct {
	Folder      string          `yaml:"folder" json:"folder"`
	Directories PlanDoc         `yaml:"directories" json:"directories"`
	Files       PlanDoc         `yaml:"files" json:"files"`
	Stats       StatsDoc        `yaml:"stats" json:"stats"`
	Differences []DifferenceDoc `yaml:"differences,omitempty" json:"differences,omitempty"`
}

// ReadFile loads a cycle from disk, picking the format from the extension
func ReadFile(path string) (*Cycle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cycle file: %w", err)
	}
	return Decode(bytes.NewReader(data), FormatFromPath(path))
}

// Decode parses and validates a cycle document
func Decode(r io.Reader, format Format) (*Cycle, error) {
	var c Cycle
	if err := decodeStrict(r, format, &c); err != nil {
		return nil, err
	}

	assignIDs(&c.Directories)
	assignIDs(&c.Files)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReadResult loads an optimization result from disk
func ReadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}
	return DecodeResult(bytes.NewReader(data), FormatFromPath(path))
}

// DecodeResult parses an optimization result
func DecodeResult(r io.Reader, format Format) (*Result, error) {
	var res Result
	if err := decodeStrict(r, format, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// decodeStrict rejects unknown fields in either format
func decodeStrict(r io.Reader, format Format, v any) error {
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(v)
	default:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(v)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPlanInvalid, err)
	}
	return nil
}

// Encode writes v in the given format
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}

// Validate checks the version sets and decodes both plans once
func (c *Cycle) Validate() error {
	for _, side := range []struct {
		name string
		doc  SideDoc
	}{{"server", c.Server}, {"client", c.Client}} {
		for i, d := range side.doc.Directories {
			if err := dirCodec.check(d); err != nil {
				return fmt.Errorf("%s directory %d: %w", side.name, i, err)
			}
		}
		for i, f := range side.doc.Files {
			if err := fileCodec.check(f); err != nil {
				return fmt.Errorf("%s file %d: %w", side.name, i, err)
			}
		}
	}
	if _, err := c.DirectoryPlan(); err != nil {
		return err
	}
	if _, err := c.FilePlan(); err != nil {
		return err
	}
	return nil
}

// Mapper indexes the version sets of both sides
func (c *Cycle) Mapper() *domain.VersionMapper {
	return domain.NewVersionMapper(
		dirCodec.versions(c.Server.Directories),
		dirCodec.versions(c.Client.Directories),
		fileCodec.versions(c.Server.Files),
		fileCodec.versions(c.Client.Files),
	)
}

// DirectoryVersions returns the server and client directory sets
func (c *Cycle) DirectoryVersions() (server, client []domain.DirectoryVersion) {
	return dirCodec.versions(c.Server.Directories), dirCodec.versions(c.Client.Directories)
}

// FileVersions returns the server and client file sets
func (c *Cycle) FileVersions() (server, client []domain.FileVersion) {
	return fileCodec.versions(c.Server.Files), fileCodec.versions(c.Client.Files)
}

// DirectoryContents returns the files of each listed directory
func (c *Cycle) DirectoryContents() map[string][]domain.FileVersion {
	if len(c.Contents) == 0 {
		return nil
	}
	out := make(map[string][]domain.FileVersion, len(c.Contents))
	for dir, files := range c.Contents {
		out[dir] = fileCodec.versions(files)
	}
	return out
}

// DirectoryPlan decodes the raw directory plan
func (c *Cycle) DirectoryPlan() (domain.DirectoryPlan, error) {
	p, err := decodePlan(dirCodec, c.Directories)
	if err != nil {
		return p, fmt.Errorf("directories: %w", err)
	}
	return p, nil
}

// FilePlan decodes the raw file plan
func (c *Cycle) FilePlan() (domain.FilePlan, error) {
	p, err := decodePlan(fileCodec, c.Files)
	if err != nil {
		return p, fmt.Errorf("files: %w", err)
	}
	return p, nil
}

// EncodeDirectoryPlan converts a directory plan to its document form
func EncodeDirectoryPlan(p domain.DirectoryPlan) PlanDoc {
	return encodePlan(dirCodec, p)
}

// EncodeFilePlan converts a file plan to its document form
func EncodeFilePlan(p domain.FilePlan) PlanDoc {
	return encodePlan(fileCodec, p)
}
